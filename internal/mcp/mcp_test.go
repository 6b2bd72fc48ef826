package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/typefully-mcp/internal/config"
	"github.com/hpungsan/typefully-mcp/internal/credentials"
	"github.com/hpungsan/typefully-mcp/internal/errors"
	"github.com/hpungsan/typefully-mcp/internal/typefully"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	m.Run()
}

// upstream is a fake Typefully API.
type upstream struct {
	mu       sync.Mutex
	calls    int
	bodies   []map[string]any
	status   int
	response string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.calls++
	if r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.bodies = append(u.bodies, body)
	}
	status, response := u.status, u.response
	u.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

// testSetup starts a fake upstream and returns handlers pointed at it.
func testSetup(t *testing.T, u *upstream) *Handlers {
	t.Helper()
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	return &Handlers{opts: typefully.Options{
		BaseURL:  srv.URL,
		Resolver: &credentials.Resolver{Explicit: "test-key"},
		Logger:   log.New(io.Discard, "", 0),
	}}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not TextContent")
	return text.Text
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, code errors.ErrorCode) {
	t.Helper()
	require.True(t, result.IsError, "expected error result, got: %s", resultText(t, result))
	require.Contains(t, resultText(t, result), "["+string(code)+"]")
}

func TestHandleCreateDraft(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError errors.ErrorCode
		wantSent  map[string]any
	}{
		{
			name:     "content only",
			args:     map[string]any{"content": "hello"},
			wantSent: map[string]any{"content": "hello"},
		},
		{
			name: "all options",
			args: map[string]any{
				"content":              "hello",
				"threadify":            true,
				"share":                true,
				"schedule_date":        "next-free-slot",
				"auto_retweet_enabled": false,
				"auto_plug_enabled":    true,
			},
			wantSent: map[string]any{
				"content":              "hello",
				"threadify":            true,
				"share":                true,
				"schedule-date":        "next-free-slot",
				"auto_retweet_enabled": false,
				"auto_plug_enabled":    true,
			},
		},
		{
			name:     "wire alias for schedule date",
			args:     map[string]any{"content": "hello", "schedule-date": "2022-06-13T11:13:31.662Z"},
			wantSent: map[string]any{"content": "hello", "schedule-date": "2022-06-13T11:13:31.662Z"},
		},
		{
			name:     "unknown arguments are ignored",
			args:     map[string]any{"content": "hello", "mystery": 1},
			wantSent: map[string]any{"content": "hello"},
		},
		{
			name:      "missing content",
			args:      map[string]any{"share": true},
			wantError: errors.ErrValidation,
		},
		{
			name:      "no arguments",
			args:      nil,
			wantError: errors.ErrValidation,
		},
		{
			name:      "wrong type",
			args:      map[string]any{"content": 42},
			wantError: errors.ErrValidation,
		},
		{
			name:      "bad schedule date",
			args:      map[string]any{"content": "hello", "schedule_date": "next tuesday"},
			wantError: errors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &upstream{response: `{"id": 101, "text_first_tweet": "hello", "num_tweets": 1}`}
			h := testSetup(t, u)

			result, err := h.HandleCreateDraft(ctx, makeRequest(tt.args))
			require.NoError(t, err)

			if tt.wantError != "" {
				assertErrorCode(t, result, tt.wantError)
				require.Zero(t, u.calls, "validation must happen before any network call")
				return
			}

			require.False(t, result.IsError, resultText(t, result))
			require.Contains(t, resultText(t, result), "**Draft ID:** 101")
			require.Len(t, u.bodies, 1)
			require.Equal(t, tt.wantSent, u.bodies[0])
		})
	}
}

func TestHandleCreateDraft_ExcerptTruncation(t *testing.T) {
	long := strings.Repeat("a", 120)
	u := &upstream{response: fmt.Sprintf(`{"id": 1, "text_first_tweet": %q, "num_tweets": 2, "share_url": "https://typefully.com/t/1"}`, long)}
	h := testSetup(t, u)

	result, err := h.HandleCreateDraft(context.Background(), makeRequest(map[string]any{"content": long, "share": true}))
	require.NoError(t, err)

	text := resultText(t, result)
	require.Contains(t, text, "**First tweet:** "+strings.Repeat("a", 100)+"...\n")
	require.Contains(t, text, "**Share URL:** https://typefully.com/t/1")
}

func TestHandleCreateDraft_ShapeError(t *testing.T) {
	u := &upstream{response: `{"text_first_tweet": "hello", "num_tweets": 1}`}
	h := testSetup(t, u)

	result, err := h.HandleCreateDraft(context.Background(), makeRequest(map[string]any{"content": "hello"}))
	require.NoError(t, err)
	assertErrorCode(t, result, errors.ErrResponseShape)
}

func TestHandleListDrafts(t *testing.T) {
	ctx := context.Background()
	twoDrafts := `[
		{"id": 2, "text_first_tweet": "second", "num_tweets": 1, "scheduled_date": "2024-05-01T10:00:00Z", "published_on": "2024-05-02T10:00:00Z", "twitter_url": "https://twitter.com/u/status/2"},
		{"id": 1, "text_first_tweet": "first", "num_tweets": 3}
	]`

	tests := []struct {
		name     string
		handler  func(*Handlers) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		response string
		args     map[string]any
		want     []string
	}{
		{
			name:     "scheduled",
			handler:  func(h *Handlers) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return h.HandleGetScheduledDrafts },
			response: twoDrafts,
			want:     []string{"📅 Found 2 scheduled draft(s):", "**1. Draft ID 2**", "Scheduled: 2024-05-01T10:00:00Z", "**2. Draft ID 1**"},
		},
		{
			name:     "scheduled empty",
			handler:  func(h *Handlers) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return h.HandleGetScheduledDrafts },
			response: `[]`,
			want:     []string{"No scheduled drafts found."},
		},
		{
			name:     "published",
			handler:  func(h *Handlers) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return h.HandleGetPublishedDrafts },
			response: twoDrafts,
			args:     map[string]any{"content_filter": "tweets"},
			want:     []string{"✅ Found 2 published draft(s):", "Published: 2024-05-02T10:00:00Z", "Twitter: https://twitter.com/u/status/2"},
		},
		{
			name:     "published empty",
			handler:  func(h *Handlers) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return h.HandleGetPublishedDrafts },
			response: `[]`,
			want:     []string{"No published drafts found."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testSetup(t, &upstream{response: tt.response})

			result, err := tt.handler(h)(ctx, makeRequest(tt.args))
			require.NoError(t, err)
			require.False(t, result.IsError, resultText(t, result))

			text := resultText(t, result)
			for _, w := range tt.want {
				require.Contains(t, text, w)
			}
		})
	}
}

func TestHandleListDrafts_InvalidFilter(t *testing.T) {
	u := &upstream{response: `[]`}
	h := testSetup(t, u)

	result, err := h.HandleGetScheduledDrafts(context.Background(), makeRequest(map[string]any{"content_filter": "replies"}))
	require.NoError(t, err)
	assertErrorCode(t, result, errors.ErrValidation)
	require.Zero(t, u.calls)
}

func TestHandlers_UpstreamAuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := testSetup(t, &upstream{status: status, response: `{"detail": "Invalid API key"}`})

			result, err := h.HandleGetPublishedDrafts(context.Background(), makeRequest(nil))
			require.NoError(t, err, "no error escapes to the dispatcher")
			assertErrorCode(t, result, errors.ErrUpstream)

			text := resultText(t, result)
			require.True(t, strings.HasPrefix(text, "❌ Error: "))
			require.Contains(t, text, fmt.Sprintf("%d", status))
		})
	}
}

func TestHandlers_NoCredential(t *testing.T) {
	u := &upstream{response: `[]`}
	h := testSetup(t, u)
	h.opts.Resolver = &credentials.Resolver{LookupEnv: func(string) (string, bool) { return "", false }}

	result, err := h.HandleGetScheduledDrafts(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assertErrorCode(t, result, errors.ErrConfiguration)
	require.Zero(t, u.calls)
}

func TestHandlers_ConcurrentCallsUseIndependentSessions(t *testing.T) {
	// Both requests must be in flight at once before either is answered.
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		filter := r.URL.Query().Get("content_filter")
		id := 1
		if filter == "tweets" {
			id = 2
		}
		fmt.Fprintf(w, `[{"id": %d, "text_first_tweet": %q, "num_tweets": 1}]`, id, filter)
	}))
	defer srv.Close()

	h := &Handlers{opts: typefully.Options{
		BaseURL:  srv.URL,
		Resolver: &credentials.Resolver{Explicit: "test-key"},
		Logger:   log.New(io.Discard, "", 0),
	}}

	results := make([]string, 2)
	var wg sync.WaitGroup
	for i, filter := range []string{"threads", "tweets"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.HandleGetScheduledDrafts(context.Background(), makeRequest(map[string]any{"content_filter": filter}))
			if err == nil && !result.IsError {
				results[i] = result.Content[0].(mcp.TextContent).Text
			}
		}()
	}
	wg.Wait()

	require.Contains(t, results[0], "Draft ID 1")
	require.Contains(t, results[0], "First tweet: threads")
	require.Contains(t, results[1], "Draft ID 2")
	require.Contains(t, results[1], "First tweet: tweets")
}

func TestGuard_RecoversPanic(t *testing.T) {
	handler := guard("create_draft", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("unexpected")
	})

	result, err := handler(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assertErrorCode(t, result, errors.ErrInternal)
	require.NotContains(t, resultText(t, result), "unexpected")
}

func TestServerRegistration(t *testing.T) {
	cfg := config.DefaultConfig()
	s := NewServer(cfg, credentials.NewResolver("x"), "test")
	tools := s.ListTools()

	require.Len(t, tools, 3)
	for _, name := range []string{"create_draft", "get_scheduled_drafts", "get_published_drafts"} {
		require.Contains(t, tools, name)
	}

	create := tools["create_draft"].Tool
	require.Equal(t, []string{"content"}, create.InputSchema.Required)
	for _, prop := range []string{"content", "threadify", "share", "schedule_date", "auto_retweet_enabled", "auto_plug_enabled"} {
		require.Contains(t, create.InputSchema.Properties, prop)
	}
	require.Contains(t, tools["get_published_drafts"].Tool.InputSchema.Properties, "content_filter")
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"create_draft", "create_draft"}
	s := NewServer(cfg, credentials.NewResolver("x"), "test")
	tools := s.ListTools()

	require.Len(t, tools, 2)
	require.NotContains(t, tools, "create_draft")
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTools = AllToolNames()
	s := NewServer(cfg, credentials.NewResolver("x"), "test")

	require.Empty(t, s.ListTools())
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"create_draft", "get_published_drafts"}, wantLen: 0},
		{name: "one unknown", input: []string{"create_draft", "delete_draft"}, wantLen: 1},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, ValidateDisabledTools(tt.input), tt.wantLen)
		})
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult("create_draft", fmt.Errorf("open /secret/path: permission denied"))
	require.True(t, r.IsError)
	require.Equal(t, "❌ Error: [INTERNAL] an internal error occurred", resultText(t, r))
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("drafts[2]: %w", errors.NewResponseShape("missing id"))

	r := errorResult("get_published_drafts", wrapped)
	require.Equal(t, "❌ Error: [RESPONSE_SHAPE] drafts[2]: missing id", resultText(t, r))
}
