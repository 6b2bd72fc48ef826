package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/typefully-mcp/internal/config"
	"github.com/hpungsan/typefully-mcp/internal/credentials"
	"github.com/hpungsan/typefully-mcp/internal/errors"
	"github.com/hpungsan/typefully-mcp/internal/format"
	"github.com/hpungsan/typefully-mcp/internal/typefully"
)

// Handlers holds dependencies for MCP tool handlers.
// Each call opens and closes its own Typefully session.
type Handlers struct {
	opts typefully.Options
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, resolver *credentials.Resolver) *Handlers {
	return &Handlers{opts: typefully.Options{
		BaseURL:  cfg.APIBaseURL,
		Resolver: resolver,
	}}
}

// CreateDraftRequest represents the arguments for create_draft.
type CreateDraftRequest struct {
	Content            string  `json:"content"`
	Threadify          *bool   `json:"threadify,omitempty"`
	Share              *bool   `json:"share,omitempty"`
	ScheduleDate       *string `json:"schedule_date,omitempty"`
	ScheduleDateWire   *string `json:"schedule-date,omitempty"`
	AutoRetweetEnabled *bool   `json:"auto_retweet_enabled,omitempty"`
	AutoPlugEnabled    *bool   `json:"auto_plug_enabled,omitempty"`
}

// toDraftRequest maps tool arguments to the API request.
// The wire spelling schedule-date is accepted as an alias.
func (r CreateDraftRequest) toDraftRequest() typefully.DraftCreationRequest {
	schedule := r.ScheduleDate
	if schedule == nil {
		schedule = r.ScheduleDateWire
	}
	return typefully.DraftCreationRequest{
		Content:            r.Content,
		Threadify:          r.Threadify,
		Share:              r.Share,
		ScheduleDate:       schedule,
		AutoRetweetEnabled: r.AutoRetweetEnabled,
		AutoPlugEnabled:    r.AutoPlugEnabled,
	}
}

// ListDraftsRequest represents the arguments for get_scheduled_drafts and get_published_drafts.
type ListDraftsRequest struct {
	ContentFilter string `json:"content_filter,omitempty"`
}

// HandleCreateDraft handles the create_draft tool call.
func (h *Handlers) HandleCreateDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateDraftRequest](req)
	if err != nil {
		return errorResult("create_draft", errors.NewValidation(err.Error())), nil
	}

	draftReq := input.toDraftRequest()
	if err := draftReq.Validate(); err != nil {
		return errorResult("create_draft", err), nil
	}

	var draft *typefully.Draft
	err = typefully.WithSession(h.opts, func(s *typefully.Session) error {
		var err error
		draft, err = s.CreateDraft(ctx, draftReq)
		return err
	})
	if err != nil {
		return errorResult("create_draft", err), nil
	}

	return mcp.NewToolResultText(format.DraftCreated(draft)), nil
}

// HandleGetScheduledDrafts handles the get_scheduled_drafts tool call.
func (h *Handlers) HandleGetScheduledDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drafts, err := h.listDrafts(req, func(s *typefully.Session, f typefully.DraftQueryFilter) ([]typefully.Draft, error) {
		return s.ListScheduledDrafts(ctx, f)
	})
	if err != nil {
		return errorResult("get_scheduled_drafts", err), nil
	}
	return mcp.NewToolResultText(format.ScheduledDrafts(drafts)), nil
}

// HandleGetPublishedDrafts handles the get_published_drafts tool call.
func (h *Handlers) HandleGetPublishedDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drafts, err := h.listDrafts(req, func(s *typefully.Session, f typefully.DraftQueryFilter) ([]typefully.Draft, error) {
		return s.ListPublishedDrafts(ctx, f)
	})
	if err != nil {
		return errorResult("get_published_drafts", err), nil
	}
	return mcp.NewToolResultText(format.PublishedDrafts(drafts)), nil
}

type listFunc func(*typefully.Session, typefully.DraftQueryFilter) ([]typefully.Draft, error)

func (h *Handlers) listDrafts(req mcp.CallToolRequest, list listFunc) ([]typefully.Draft, error) {
	input, err := decode[ListDraftsRequest](req)
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}
	filter, err := typefully.ParseFilter(input.ContentFilter)
	if err != nil {
		return nil, err
	}

	var drafts []typefully.Draft
	err = typefully.WithSession(h.opts, func(s *typefully.Session) error {
		var err error
		drafts, err = list(s, filter)
		return err
	})
	return drafts, err
}

// guard converts a panic in a handler into an error result so a single
// failed call never takes down the server.
func guard(tool string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = errorResult(tool, errors.NewInternal(fmt.Errorf("panic: %v", r)))
				err = nil
			}
		}()
		return next(ctx, req)
	}
}

// errorResult creates a single-line MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are logged but not returned.
func errorResult(tool string, err error) *mcp.CallToolResult {
	tErr, ok := errors.As(err)
	if !ok {
		tErr = errors.NewInternal(err)
	}

	if tErr.Code == errors.ErrInternal {
		log.Printf("tool %s failed: %s: %v", tool, tErr.Code, tErr.Details["internal_error"])
	} else {
		log.Printf("tool %s failed: %v", tool, tErr)
	}

	msg := tErr.Message
	if tErr.Code != errors.ErrInternal && err != error(tErr) {
		// Keep wrapper context such as "drafts[2]: ".
		msg = strings.TrimSuffix(err.Error(), tErr.Error()) + msg
	}
	text := fmt.Sprintf("❌ Error: [%s] %s", tErr.Code, msg)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
