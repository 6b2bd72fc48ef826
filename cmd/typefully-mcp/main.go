package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hpungsan/typefully-mcp/internal/config"
	"github.com/hpungsan/typefully-mcp/internal/credentials"
	"github.com/hpungsan/typefully-mcp/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"create": true, "scheduled": true, "published": true,
	"auth": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion()
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	switch os.Args[1] {
	case "--help", "-h", "--version", "-v", "help":
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a usage hint when run interactively without args.
func printBanner() {
	fmt.Println(`
  typefully-mcp: Typefully drafts over MCP

  Usage: typefully-mcp <command> [options]
         typefully-mcp --help

  MCP server mode requires piped input.`)
}

func main() {
	// MCP owns stdout; keep logs on stderr.
	log.SetOutput(os.Stderr)
	log.SetPrefix("typefully-mcp: ")

	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(filepath.Join(homeDir, config.DirName), cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	resolver := credentials.NewResolver("")

	if isCLIMode() {
		app := newCLIApp(cfg, resolver)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'typefully-mcp --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("WARNING: unknown tools in disabled_tools: %v (known: %v)", unknown, mcp.AllToolNames())
	}

	// MCP server mode (default)
	if err := mcp.Run(cfg, resolver, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
