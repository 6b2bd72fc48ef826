package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/typefully-mcp/internal/config"
	"github.com/hpungsan/typefully-mcp/internal/credentials"
)

// ServerName is the name reported to MCP clients.
const ServerName = "typefully-mcp-server"

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"create_draft": {
		def:     createDraftToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreateDraft },
	},
	"get_scheduled_drafts": {
		def:     getScheduledDraftsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetScheduledDrafts },
	},
	"get_published_drafts": {
		def:     getPublishedDraftsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetPublishedDrafts },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the Typefully tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(cfg *config.Config, resolver *credentials.Resolver, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(cfg, resolver)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, guard(name, entry.handler(h)))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(cfg *config.Config, resolver *credentials.Resolver, version string) error {
	s := NewServer(cfg, resolver, version)
	return server.ServeStdio(s)
}
