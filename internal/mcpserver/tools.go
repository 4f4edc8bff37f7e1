package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Iron-Ham/inkgate/internal/errors"
	"github.com/Iron-Ham/inkgate/internal/session"
)

// Tool names.
const (
	ToolSessionOpen    = "session_open"
	ToolSessionClose   = "session_close"
	ToolComplete       = "complete"
	ToolAdvanceChapter = "advance_chapter"
	ToolStatus         = "status"
)

const repoPathDescription = "Absolute path to the book repository"

// Tools binds tool handlers to a coordinator.
type Tools struct {
	coord Coordinator
}

// NewTools creates the tool set for coord.
func NewTools(coord Coordinator) *Tools {
	return &Tools{coord: coord}
}

// ServerTools returns every tool definition paired with its handler.
func (t *Tools) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolSessionOpen,
				mcp.WithDescription("Open a writing session: sync with the remote, commit human edits, "+
					"tag a snapshot, take the session lock and load the book context. "+
					"Returns the session payload."),
				mcp.WithString("repo_path", mcp.Required(), mcp.Description(repoPathDescription)),
			),
			Handler: t.HandleOpen,
		},
		{
			Tool: mcp.NewTool(ToolSessionClose,
				mcp.WithDescription("Close the open session: replace the review draft with the prose, "+
					"append to the summary, changelog and full text, release the lock and push. "+
					"Returns word counts and completion_ready."),
				mcp.WithString("repo_path", mcp.Required(), mcp.Description(repoPathDescription)),
				mcp.WithString("prose", mcp.Required(), mcp.Description("Prose written in this session")),
				mcp.WithString("summary", mcp.Description("One-paragraph narrative summary of this session")),
				mcp.WithArray("human_edits",
					mcp.Description("Paths the human edited between sessions, from the session_open payload"),
					mcp.WithStringItems(),
				),
			),
			Handler: t.HandleClose,
		},
		{
			Tool: mcp.NewTool(ToolComplete,
				mcp.WithDescription("Finalise the book. Returns needs_revision while the review draft "+
					"still carries INK instructions; otherwise writes the COMPLETE marker and pushes."),
				mcp.WithString("repo_path", mcp.Required(), mcp.Description(repoPathDescription)),
				mcp.WithDestructiveHintAnnotation(false),
			),
			Handler: t.HandleComplete,
		},
		{
			Tool: mcp.NewTool(ToolAdvanceChapter,
				mcp.WithDescription("Move to the next chapter and reset its word count. Returns "+
					"needs_chapter_outline when the next outline is missing. Commits without pushing."),
				mcp.WithString("repo_path", mcp.Required(), mcp.Description(repoPathDescription)),
			),
			Handler: t.HandleAdvanceChapter,
		},
		{
			Tool: mcp.NewTool(ToolStatus,
				mcp.WithDescription("Read-only snapshot of the book: chapter, word counts, lock and "+
					"completion flags. Runs no git commands."),
				mcp.WithString("repo_path", mcp.Required(), mcp.Description(repoPathDescription)),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: t.HandleStatus,
		},
	}
}

// HandleOpen serves session_open.
func (t *Tools) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return errorResult(invalidArgument("repo_path", err)), nil
	}
	return respond(t.coord.Open(repoPath))
}

// HandleClose serves session_close.
func (t *Tools) HandleClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return errorResult(invalidArgument("repo_path", err)), nil
	}
	prose, err := req.RequireString("prose")
	if err != nil {
		return errorResult(invalidArgument("prose", err)), nil
	}
	return respond(t.coord.Close(repoPath, session.CloseInput{
		Prose:      prose,
		Summary:    req.GetString("summary", ""),
		HumanEdits: req.GetStringSlice("human_edits", nil),
	}))
}

// HandleComplete serves complete.
func (t *Tools) HandleComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return errorResult(invalidArgument("repo_path", err)), nil
	}
	return respond(t.coord.Complete(repoPath))
}

// HandleAdvanceChapter serves advance_chapter.
func (t *Tools) HandleAdvanceChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return errorResult(invalidArgument("repo_path", err)), nil
	}
	return respond(t.coord.AdvanceChapter(repoPath))
}

// HandleStatus serves status.
func (t *Tools) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := req.RequireString("repo_path")
	if err != nil {
		return errorResult(invalidArgument("repo_path", err)), nil
	}
	return respond(t.coord.Status(repoPath))
}

// ErrorBody is the JSON reported for a failed tool call.
type ErrorBody struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// respond renders a coordinator result as JSON text, or its error as a tool
// error. Failures are tool results rather than protocol errors so the agent
// sees them.
func respond[T any](v T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(errors.Wrap(err, "failed to encode result")), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(ErrorBody{
		Status: "error",
		Code:   errors.Code(err),
		Error:  err.Error(),
	})
	return mcp.NewToolResultError(string(data))
}

func invalidArgument(field string, err error) error {
	return errors.NewValidationError(err.Error()).WithField(field)
}
