// Package mcp exposes tools from a Model Context Protocol server
// subprocess as rove.Tools.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jmelwick/rove"
)

// Server manages the connection to a single MCP server subprocess and the
// tools it advertises.
type Server struct {
	name    string
	cmd     *exec.Cmd
	session *mcpsdk.ClientSession
	tools   []*Tool
}

// Connect starts the server subprocess, performs the MCP handshake, and
// discovers its tools. The caller must Close the server when done.
func Connect(ctx context.Context, name, command string, args ...string) (*Server, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "rove", Version: "v1.0.0"}, nil)
	session, err := client.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return nil, fmt.Errorf("failed to connect to MCP server %q: %w", name, err)
	}

	s := &Server{name: name, cmd: cmd, session: session}
	if err := s.discoverTools(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// discoverTools pages through the server's tool list.
func (s *Server) discoverTools(ctx context.Context) error {
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := s.session.ListTools(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list tools from MCP server %q: %w", s.name, err)
		}
		for _, t := range list.Tools {
			s.tools = append(s.tools, &Tool{
				server:      s,
				name:        t.Name,
				description: t.Description,
			})
		}
		if list.NextCursor == "" {
			return nil
		}
		params.Cursor = list.NextCursor
	}
}

// Name returns the server's configured name.
func (s *Server) Name() string { return s.name }

// Tools returns the tools the server advertises, as rove.Tools ready for
// registration.
func (s *Server) Tools() []rove.Tool {
	out := make([]rove.Tool, len(s.tools))
	for i, t := range s.tools {
		out[i] = t
	}
	return out
}

// Close shuts down the session and terminates the subprocess.
func (s *Server) Close() error {
	if s.session != nil {
		s.session.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}

// Tool adapts one MCP server tool to the rove.Tool interface.
type Tool struct {
	server      *Server
	name        string
	description string
}

func (t *Tool) Name() string { return t.name }

func (t *Tool) Description() string { return t.description }

// Execute calls the tool on the server and concatenates the text content
// of the result.
func (t *Tool) Execute(ctx context.Context, args map[string]string) (string, error) {
	arguments := make(map[string]any, len(args))
	for k, v := range args {
		arguments[k] = v
	}

	result, err := t.server.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: arguments,
	})
	if err != nil {
		return "", fmt.Errorf("MCP tool %q failed: %w", t.name, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("MCP tool %q returned an error: %s", t.name, sb.String())
	}
	return sb.String(), nil
}

var _ rove.Tool = (*Tool)(nil)
