package rove

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func produce(s *Stream, chunks []string, err error) {
	go func() {
		for _, c := range chunks {
			if !s.Send(c) {
				break
			}
		}
		s.CloseSend(err)
	}()
}

func TestStream_ChunksConcatenateToText(t *testing.T) {
	s := NewStream(nil)
	produce(s, []string{"Hel", "lo,", " wor", "ld"}, nil)

	var got strings.Builder
	for chunk := range s.Chunks() {
		got.WriteString(chunk)
	}

	assert.Equal(t, "Hello, world", got.String())
	assert.NoError(t, s.Err())
}

func TestStream_Text_DrainsToCompletion(t *testing.T) {
	s := NewStream(nil)
	produce(s, []string{"a", "b", "c"}, nil)

	content, err := s.Text()
	require.NoError(t, err)
	assert.Equal(t, "abc", content)
}

func TestStream_Message_MatchesInvokeShape(t *testing.T) {
	s := NewStream(nil)
	produce(s, []string{"the ", "answer"}, nil)

	msg, err := s.Message()
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "the answer", msg.Content)
}

func TestStream_TerminalError(t *testing.T) {
	boom := errors.New("connection lost")

	s := NewStream(nil)
	produce(s, []string{"partial"}, boom)

	content, err := s.Text()
	assert.Equal(t, "partial", content)
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStream_ReleaseExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		use  func(s *Stream)
	}{
		{
			name: "drained then closed",
			use: func(s *Stream) {
				produce(s, []string{"x"}, nil)
				_, _ = s.Text()
				_ = s.Close()
				_ = s.Close()
			},
		},
		{
			name: "abandoned early",
			use: func(s *Stream) {
				_ = s.Close()
				_ = s.Close()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var released atomic.Int32
			s := NewStream(func() { released.Add(1) })
			tc.use(s)
			assert.Equal(t, int32(1), released.Load())
		})
	}
}

func TestStream_SendAfterCloseReturnsFalse(t *testing.T) {
	s := NewStream(nil)
	require.NoError(t, s.Close())

	assert.False(t, s.Send("late"))
}
