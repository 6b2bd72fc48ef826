package typefully

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/typefully-mcp/internal/errors"
)

// NextFreeSlot asks Typefully to schedule a draft in the next free queue slot.
const NextFreeSlot = "next-free-slot"

// DraftQueryFilter limits listed drafts to threads or single tweets.
// The zero value means unfiltered.
type DraftQueryFilter string

const (
	FilterNone    DraftQueryFilter = ""
	FilterThreads DraftQueryFilter = "threads"
	FilterTweets  DraftQueryFilter = "tweets"
)

// ParseFilter validates a content filter argument.
func ParseFilter(s string) (DraftQueryFilter, error) {
	switch f := DraftQueryFilter(strings.TrimSpace(s)); f {
	case FilterNone, FilterThreads, FilterTweets:
		return f, nil
	default:
		return "", errors.NewValidation(fmt.Sprintf("content_filter must be %q or %q, got %q", FilterThreads, FilterTweets, s))
	}
}

// DraftCreationRequest holds the fields of a new draft.
// Optional fields are pointers: nil means unset and is never sent upstream.
type DraftCreationRequest struct {
	Content            string
	Threadify          *bool
	Share              *bool
	ScheduleDate       *string
	AutoRetweetEnabled *bool
	AutoPlugEnabled    *bool
}

// fieldMapping pairs a logical field name with its wire name and accessor.
// get reports false when the field is unset.
type fieldMapping struct {
	logical string
	wire    string
	get     func(*DraftCreationRequest) (any, bool)
}

func boolField(f func(*DraftCreationRequest) *bool) func(*DraftCreationRequest) (any, bool) {
	return func(r *DraftCreationRequest) (any, bool) {
		if v := f(r); v != nil {
			return *v, true
		}
		return nil, false
	}
}

// draftFields is the serialization table for DraftCreationRequest.
// schedule_date is the one field whose wire name differs.
var draftFields = []fieldMapping{
	{
		logical: "content",
		wire:    "content",
		get:     func(r *DraftCreationRequest) (any, bool) { return r.Content, true },
	},
	{
		logical: "threadify",
		wire:    "threadify",
		get:     boolField(func(r *DraftCreationRequest) *bool { return r.Threadify }),
	},
	{
		logical: "share",
		wire:    "share",
		get:     boolField(func(r *DraftCreationRequest) *bool { return r.Share }),
	},
	{
		logical: "schedule_date",
		wire:    "schedule-date",
		get: func(r *DraftCreationRequest) (any, bool) {
			if r.ScheduleDate == nil {
				return nil, false
			}
			return *r.ScheduleDate, true
		},
	},
	{
		logical: "auto_retweet_enabled",
		wire:    "auto_retweet_enabled",
		get:     boolField(func(r *DraftCreationRequest) *bool { return r.AutoRetweetEnabled }),
	},
	{
		logical: "auto_plug_enabled",
		wire:    "auto_plug_enabled",
		get:     boolField(func(r *DraftCreationRequest) *bool { return r.AutoPlugEnabled }),
	},
}

// WireName returns the upstream name of a logical request field.
func WireName(logical string) (string, bool) {
	for _, f := range draftFields {
		if f.logical == logical {
			return f.wire, true
		}
	}
	return "", false
}

// scheduleLayouts are the accepted timestamp forms for schedule_date.
var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// Validate checks the request before any network call.
func (r *DraftCreationRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.NewValidation("content is required")
	}
	if r.ScheduleDate != nil {
		if err := validateScheduleDate(*r.ScheduleDate); err != nil {
			return err
		}
	}
	return nil
}

func validateScheduleDate(s string) error {
	if s == NextFreeSlot {
		return nil
	}
	for _, layout := range scheduleLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return errors.NewValidation(fmt.Sprintf("schedule_date must be an ISO-8601 timestamp or %q, got %q", NextFreeSlot, s))
}

// Payload returns the wire representation, omitting unset fields.
func (r *DraftCreationRequest) Payload() map[string]any {
	out := make(map[string]any, len(draftFields))
	for _, f := range draftFields {
		if v, ok := f.get(r); ok {
			out[f.wire] = v
		}
	}
	return out
}

// MarshalJSON encodes the request through the wire mapping table.
func (r DraftCreationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Payload())
}

// Draft is a Typefully draft as returned by the API.
// Optional fields are nil when absent or null upstream.
type Draft struct {
	ID             int64   `json:"id"`
	Text           *string `json:"text,omitempty"`
	TextFirstTweet string  `json:"text_first_tweet"`
	NumTweets      int     `json:"num_tweets"`
	ScheduledDate  *string `json:"scheduled_date,omitempty"`
	PublishedOn    *string `json:"published_on,omitempty"`
	ShareURL       *string `json:"share_url,omitempty"`
	TwitterURL     *string `json:"twitter_url,omitempty"`
	LinkedinURL    *string `json:"linkedin_url,omitempty"`
}

// wireDraft mirrors Draft with every field optional so missing required
// fields can be detected instead of zero-filled.
type wireDraft struct {
	ID             *int64  `json:"id"`
	Text           *string `json:"text"`
	TextFirstTweet *string `json:"text_first_tweet"`
	NumTweets      *int    `json:"num_tweets"`
	ScheduledDate  *string `json:"scheduled_date"`
	PublishedOn    *string `json:"published_on"`
	ShareURL       *string `json:"share_url"`
	TwitterURL     *string `json:"twitter_url"`
	LinkedinURL    *string `json:"linkedin_url"`
}

func (w *wireDraft) toDraft() (*Draft, error) {
	var missing []string
	if w.ID == nil {
		missing = append(missing, "id")
	}
	if w.TextFirstTweet == nil {
		missing = append(missing, "text_first_tweet")
	}
	if w.NumTweets == nil {
		missing = append(missing, "num_tweets")
	}
	if len(missing) > 0 {
		return nil, errors.NewResponseShape(fmt.Sprintf("draft is missing required fields: %s", strings.Join(missing, ", ")))
	}
	if *w.NumTweets < 1 {
		return nil, errors.NewResponseShape(fmt.Sprintf("draft %d has num_tweets %d, want at least 1", *w.ID, *w.NumTweets))
	}
	return &Draft{
		ID:             *w.ID,
		Text:           w.Text,
		TextFirstTweet: *w.TextFirstTweet,
		NumTweets:      *w.NumTweets,
		ScheduledDate:  w.ScheduledDate,
		PublishedOn:    w.PublishedOn,
		ShareURL:       w.ShareURL,
		TwitterURL:     w.TwitterURL,
		LinkedinURL:    w.LinkedinURL,
	}, nil
}

// ParseDraft decodes a single draft object.
func ParseDraft(data []byte) (*Draft, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.NewResponseShape("expected a draft object")
	}
	var w wireDraft
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.NewResponseShape(fmt.Sprintf("decode draft: %v", err))
	}
	return w.toDraft()
}

// ParseDrafts decodes an array of drafts, preserving upstream order.
func ParseDrafts(data []byte) ([]Draft, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.NewResponseShape("expected an array of drafts")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewResponseShape(fmt.Sprintf("decode drafts: %v", err))
	}
	drafts := make([]Draft, 0, len(raw))
	for i, item := range raw {
		d, err := ParseDraft(item)
		if err != nil {
			if tErr, ok := errors.As(err); ok {
				return nil, errors.NewResponseShape(fmt.Sprintf("drafts[%d]: %s", i, tErr.Message))
			}
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, nil
}
