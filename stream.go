package rove

import (
	"strings"
	"sync"
)

// Stream is a finite, non-restartable sequence of response chunks produced
// by [Client.Stream]. The concatenation of all chunks is byte-for-byte equal
// to the content an equivalent Invoke call would have returned.
//
// Consumers either drain Chunks() to exhaustion or abandon the stream with
// Close(). The producer's release function is invoked exactly once, whether
// the stream is drained, abandoned, or both, so the underlying connection
// resource is always freed.
//
//	stream, err := client.Stream(ctx, history)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for chunk := range stream.Chunks() {
//	    fmt.Print(chunk)
//	}
//	msg, err := stream.Message()
type Stream struct {
	chunks   chan string
	done     chan struct{} // closed by Close(); producer stops sending
	finished chan struct{} // closed by CloseSend(); final error available

	closeOnce sync.Once
	sendOnce  sync.Once

	mu      sync.Mutex
	release func()
	accum   strings.Builder
	err     error
}

// NewStream creates a Stream for producers (Client implementations).
//
// release is invoked exactly once, when the stream completes or is closed,
// and must free any underlying connection resource. It may be nil.
func NewStream(release func()) *Stream {
	return &Stream{
		chunks:   make(chan string, 16),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		release:  release,
	}
}

// Chunks returns the channel of response chunks. The channel is closed when
// the provider response is complete or the producer failed; check Err()
// afterwards.
func (s *Stream) Chunks() <-chan string {
	return s.chunks
}

// Send delivers a chunk to the consumer. It returns false when the stream
// has been closed by the consumer, signaling the producer to stop. Producer
// side only.
func (s *Stream) Send(chunk string) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	s.mu.Lock()
	s.accum.WriteString(chunk)
	s.mu.Unlock()

	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// CloseSend marks the stream complete with an optional terminal error and
// releases the connection resource. Producer side only.
func (s *Stream) CloseSend(err error) {
	s.sendOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.chunks)
		close(s.finished)
		s.releaseOnce()
	})
}

// Close abandons the stream. Pending and future Send calls return false, and
// the connection resource is released. Close is safe to call multiple times
// and after the stream is exhausted.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.releaseOnce()
	})
	return nil
}

func (s *Stream) releaseOnce() {
	s.mu.Lock()
	release := s.release
	s.release = nil
	s.mu.Unlock()
	if release != nil {
		release()
	}
}

// Err returns the terminal error, if any. Valid after Chunks() is closed or
// after Message()/Text() returned.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Text drains the stream to exhaustion and returns the concatenated content.
func (s *Stream) Text() (string, error) {
	for range s.chunks {
	}
	<-s.finished

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accum.String(), s.err
}

// Message drains the stream and returns the accumulated content as a single
// assistant Message, matching what an equivalent Invoke call would return.
func (s *Stream) Message() (Message, error) {
	content, err := s.Text()
	if err != nil {
		return Message{}, err
	}
	return Message{Role: RoleAssistant, Content: content}, nil
}
