// Package format renders drafts as the text returned to tool callers.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/typefully-mcp/internal/typefully"
)

const (
	// ViewURLPrefix links a draft ID to the Typefully editor.
	ViewURLPrefix = "https://typefully.com/?d="

	// CreatedExcerptLen bounds the first-tweet excerpt in a create confirmation.
	CreatedExcerptLen = 100

	// ListExcerptLen bounds the first-tweet excerpt in draft lists.
	ListExcerptLen = 80

	NoScheduledDrafts = "No scheduled drafts found."
	NoPublishedDrafts = "No published drafts found."
)

// Excerpt returns s unchanged if it has at most max runes, otherwise the
// first max runes followed by "...".
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// ViewURL returns the editor link for a draft.
func ViewURL(id int64) string {
	return fmt.Sprintf("%s%d", ViewURLPrefix, id)
}

// DraftCreated formats the confirmation for a newly created draft.
func DraftCreated(d *typefully.Draft) string {
	var b strings.Builder
	b.WriteString("✅ Draft created successfully!\n\n")
	fmt.Fprintf(&b, "**Draft ID:** %d\n", d.ID)
	fmt.Fprintf(&b, "**First tweet:** %s\n", Excerpt(d.TextFirstTweet, CreatedExcerptLen))
	fmt.Fprintf(&b, "**Number of tweets:** %d\n", d.NumTweets)
	if v := value(d.ScheduledDate); v != "" {
		fmt.Fprintf(&b, "**Scheduled for:** %s\n", v)
	}
	if v := value(d.ShareURL); v != "" {
		fmt.Fprintf(&b, "**Share URL:** %s\n", v)
	}
	fmt.Fprintf(&b, "\n**View draft:** %s", ViewURL(d.ID))
	return b.String()
}

// ScheduledDrafts formats a list of recently scheduled drafts.
func ScheduledDrafts(drafts []typefully.Draft) string {
	if len(drafts) == 0 {
		return NoScheduledDrafts
	}
	return draftList(fmt.Sprintf("📅 Found %d scheduled draft(s):", len(drafts)), drafts)
}

// PublishedDrafts formats a list of recently published drafts.
func PublishedDrafts(drafts []typefully.Draft) string {
	if len(drafts) == 0 {
		return NoPublishedDrafts
	}
	return draftList(fmt.Sprintf("✅ Found %d published draft(s):", len(drafts)), drafts)
}

func draftList(header string, drafts []typefully.Draft) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for i, d := range drafts {
		fmt.Fprintf(&b, "**%d. Draft ID %d**\n", i+1, d.ID)
		fmt.Fprintf(&b, "   First tweet: %s\n", Excerpt(d.TextFirstTweet, ListExcerptLen))
		fmt.Fprintf(&b, "   Tweets: %d\n", d.NumTweets)
		optional := []struct {
			label string
			value *string
		}{
			{"Scheduled", d.ScheduledDate},
			{"Published", d.PublishedOn},
			{"Share URL", d.ShareURL},
			{"Twitter", d.TwitterURL},
			{"LinkedIn", d.LinkedinURL},
		}
		for _, o := range optional {
			if v := value(o.value); v != "" {
				fmt.Fprintf(&b, "   %s: %s\n", o.label, v)
			}
		}
		fmt.Fprintf(&b, "   View: %s\n", ViewURL(d.ID))
		if i < len(drafts)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderHTML converts a markdown summary to HTML.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
