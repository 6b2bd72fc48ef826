package mcp

import "github.com/mark3labs/mcp-go/mcp"

const contentFilterDescription = "Filter drafts to only include tweets or threads"

var createDraftToolDef = mcp.NewTool("create_draft",
	mcp.WithDescription("Create a new draft in Typefully with optional scheduling"),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The content of the draft. Use 4 consecutive newlines to split into multiple tweets."),
	),
	mcp.WithBoolean("threadify",
		mcp.Description("Automatically split content into multiple tweets"),
		mcp.DefaultBool(false),
	),
	mcp.WithBoolean("share",
		mcp.Description("If true, returned payload will include a share_url"),
		mcp.DefaultBool(false),
	),
	mcp.WithString("schedule_date",
		mcp.Description("ISO formatted date (e.g.:2022-06-13T11:13:31.662Z) or 'next-free-slot'"),
	),
	mcp.WithBoolean("auto_retweet_enabled",
		mcp.Description("Enable AutoRT for this post"),
		mcp.DefaultBool(false),
	),
	mcp.WithBoolean("auto_plug_enabled",
		mcp.Description("Enable AutoPlug for this post"),
		mcp.DefaultBool(false),
	),
)

var getScheduledDraftsToolDef = mcp.NewTool("get_scheduled_drafts",
	mcp.WithDescription("Get recently scheduled drafts from Typefully"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("content_filter",
		mcp.Description(contentFilterDescription),
		mcp.Enum("threads", "tweets"),
	),
)

var getPublishedDraftsToolDef = mcp.NewTool("get_published_drafts",
	mcp.WithDescription("Get recently published drafts from Typefully"),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("content_filter",
		mcp.Description(contentFilterDescription),
		mcp.Enum("threads", "tweets"),
	),
)
