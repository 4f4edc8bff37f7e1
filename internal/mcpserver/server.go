// Package mcpserver exposes the session coordinator as MCP tools over stdio,
// so a writing agent can drive sessions directly.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/Iron-Ham/inkgate/internal/payload"
	"github.com/Iron-Ham/inkgate/internal/session"
)

// Name is the server name announced during initialization.
const Name = "inkgate"

// Coordinator is the subset of session operations served as tools.
type Coordinator interface {
	Open(repoPath string) (*payload.Payload, error)
	Close(repoPath string, in session.CloseInput) (*session.CloseResult, error)
	Complete(repoPath string) (*session.CompleteResult, error)
	AdvanceChapter(repoPath string) (*session.AdvanceResult, error)
	Status(repoPath string) (*session.StatusResult, error)
}

// New creates an MCP server with every session tool registered.
func New(coord Coordinator, version string) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	s.AddTools(NewTools(coord).ServerTools()...)
	return s
}

// Serve runs the server on stdin/stdout until the input closes.
func Serve(coord Coordinator, version string) error {
	return server.ServeStdio(New(coord, version))
}

const instructions = `inkgate coordinates writing sessions on a git-backed book repository.
Call session_open first. If kill_requested or session_already_run is true, stop.
Otherwise write the session's prose from the payload, then call session_close with
the prose, a one-paragraph summary and the human_edits from the payload.
Use advance_chapter when chapter_close_suggested is true and the chapter is done,
and complete once completion_ready is reported.`
