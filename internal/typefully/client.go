// Package typefully is a client for the Typefully drafts API.
package typefully

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/typefully-mcp/internal/credentials"
	"github.com/hpungsan/typefully-mcp/internal/errors"
)

// DefaultBaseURL is the Typefully API root.
const DefaultBaseURL = "https://api.typefully.com/v1"

const (
	draftsPath           = "/drafts/"
	recentlyScheduledURL = "/drafts/recently-scheduled/"
	recentlyPublishedURL = "/drafts/recently-published/"
	contentFilterParam   = "content_filter"
)

// Options configures a Session.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Resolver supplies the API key. nil uses credentials.NewResolver("").
	Resolver *credentials.Resolver

	// HTTPClient overrides the session's client. The session does not
	// close connections of a client it did not create.
	HTTPClient *http.Client

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Session is a scoped connection to the Typefully API.
// Open it with Open and always Close it, typically with defer.
type Session struct {
	id         string
	baseURL    string
	header     http.Header
	http       *http.Client
	ownsClient bool
	logger     *log.Logger
	closed     atomic.Bool
}

// Open resolves the API key and returns a ready Session.
// Fails with a CONFIGURATION error when no key is available.
func Open(opts Options) (*Session, error) {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = credentials.NewResolver("")
	}
	apiKey, err := resolver.Resolve()
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf(
			"no typefully api key: set %s or store one in the keychain (typefully-mcp auth set)", credentials.EnvVar))
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("invalid api base url %q: %v", baseURL, err))
	}

	client := opts.HTTPClient
	owns := false
	if client == nil {
		// Own transport so Close releases this session's connections only.
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
		owns = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	header := make(http.Header)
	header.Set("X-API-KEY", "Bearer "+apiKey)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")

	return &Session{
		id:         ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String(),
		baseURL:    baseURL,
		header:     header,
		http:       client,
		ownsClient: owns,
		logger:     logger,
	}, nil
}

// WithSession opens a session, runs fn, and closes the session on every
// exit path, including a panic in fn.
func WithSession(opts Options, fn func(*Session) error) error {
	s, err := Open(opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// ID returns the session's ULID, used to correlate log lines.
func (s *Session) ID() string {
	return s.id
}

// Close releases the session's connections. Safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.ownsClient {
		s.http.CloseIdleConnections()
	}
	return nil
}

// CreateDraft creates a draft and returns it as stored upstream.
func (s *Session) CreateDraft(ctx context.Context, req DraftCreationRequest) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("encode draft: %w", err))
	}
	body, err := s.do(ctx, http.MethodPost, draftsPath, nil, payload)
	if err != nil {
		return nil, err
	}
	return ParseDraft(body)
}

// ListScheduledDrafts returns recently scheduled drafts in upstream order.
func (s *Session) ListScheduledDrafts(ctx context.Context, filter DraftQueryFilter) ([]Draft, error) {
	return s.listDrafts(ctx, recentlyScheduledURL, filter)
}

// ListPublishedDrafts returns recently published drafts in upstream order.
func (s *Session) ListPublishedDrafts(ctx context.Context, filter DraftQueryFilter) ([]Draft, error) {
	return s.listDrafts(ctx, recentlyPublishedURL, filter)
}

func (s *Session) listDrafts(ctx context.Context, path string, filter DraftQueryFilter) ([]Draft, error) {
	if _, err := ParseFilter(string(filter)); err != nil {
		return nil, err
	}
	var query url.Values
	if filter != FilterNone {
		query = url.Values{contentFilterParam: []string{string(filter)}}
	}
	body, err := s.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return ParseDrafts(body)
}

// do issues a single request. There is no retry.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, errors.NewInternal(fmt.Errorf("session %s is closed", s.id))
	}

	reqURL := s.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("build request: %w", err))
	}
	req.Header = s.header.Clone()

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Printf("session %s: %s %s: %v", s.id, method, path, err)
		return nil, errors.NewTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransport(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Printf("session %s: %s %s: status %d", s.id, method, path, resp.StatusCode)
		return nil, errors.NewUpstream(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
