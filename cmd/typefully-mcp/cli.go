package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/typefully-mcp/internal/config"
	"github.com/hpungsan/typefully-mcp/internal/credentials"
	"github.com/hpungsan/typefully-mcp/internal/errors"
	"github.com/hpungsan/typefully-mcp/internal/format"
	"github.com/hpungsan/typefully-mcp/internal/typefully"
)

// cliEnv carries the dependencies shared by all commands.
type cliEnv struct {
	cfg      *config.Config
	resolver *credentials.Resolver
}

func apiKeyFlag() cli.Flag {
	return &cli.StringFlag{Name: "api-key", Usage: "Typefully API key (overrides " + credentials.EnvVar + " and the keychain)"}
}

func htmlFlag() cli.Flag {
	return &cli.BoolFlag{Name: "html", Usage: "Render output as HTML"}
}

func filterFlag() cli.Flag {
	return &cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Content filter: threads|tweets"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, resolver *credentials.Resolver) *cli.App {
	env := &cliEnv{cfg: cfg, resolver: resolver}
	app := &cli.App{
		Name:    "typefully-mcp",
		Usage:   "Typefully drafts from the command line or as an MCP server",
		Version: Version,
		Commands: []*cli.Command{
			env.createCmd(),
			env.scheduledCmd(),
			env.publishedCmd(),
			env.authCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// createCmd creates the create command.
func (e *cliEnv) createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a draft (content from arguments or stdin)",
		ArgsUsage: "[content]",
		Flags: []cli.Flag{
			apiKeyFlag(),
			htmlFlag(),
			&cli.BoolFlag{Name: "threadify", Usage: "Automatically split content into multiple tweets"},
			&cli.BoolFlag{Name: "share", Usage: "Include a share URL"},
			&cli.StringFlag{Name: "schedule", Aliases: []string{"s"}, Usage: "ISO-8601 date or next-free-slot"},
			&cli.BoolFlag{Name: "auto-retweet", Usage: "Enable AutoRT"},
			&cli.BoolFlag{Name: "auto-plug", Usage: "Enable AutoPlug"},
		},
		Action: func(c *cli.Context) error {
			content := strings.Join(c.Args().Slice(), " ")
			if content == "" && stdinHasData(c.App.Reader) {
				text, err := readAll(c.App.Reader)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				content = text
			}

			req := typefully.DraftCreationRequest{
				Content:            content,
				Threadify:          boolFlag(c, "threadify"),
				Share:              boolFlag(c, "share"),
				AutoRetweetEnabled: boolFlag(c, "auto-retweet"),
				AutoPlugEnabled:    boolFlag(c, "auto-plug"),
			}
			if c.IsSet("schedule") {
				schedule := c.String("schedule")
				req.ScheduleDate = &schedule
			}
			if err := req.Validate(); err != nil {
				return outputError(err)
			}

			var draft *typefully.Draft
			err := typefully.WithSession(e.options(c), func(s *typefully.Session) error {
				var err error
				draft, err = s.CreateDraft(c.Context, req)
				return err
			})
			if err != nil {
				return outputError(err)
			}
			return output(c, format.DraftCreated(draft))
		},
	}
}

// scheduledCmd creates the scheduled command.
func (e *cliEnv) scheduledCmd() *cli.Command {
	return &cli.Command{
		Name:  "scheduled",
		Usage: "List recently scheduled drafts",
		Flags: []cli.Flag{apiKeyFlag(), htmlFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			drafts, err := e.list(c, (*typefully.Session).ListScheduledDrafts)
			if err != nil {
				return outputError(err)
			}
			return output(c, format.ScheduledDrafts(drafts))
		},
	}
}

// publishedCmd creates the published command.
func (e *cliEnv) publishedCmd() *cli.Command {
	return &cli.Command{
		Name:  "published",
		Usage: "List recently published drafts",
		Flags: []cli.Flag{apiKeyFlag(), htmlFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			drafts, err := e.list(c, (*typefully.Session).ListPublishedDrafts)
			if err != nil {
				return outputError(err)
			}
			return output(c, format.PublishedDrafts(drafts))
		},
	}
}

// authCmd creates the auth command group for keychain management.
func (e *cliEnv) authCmd() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the API key stored in the OS keychain",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store the API key (from argument or stdin)",
				ArgsUsage: "[api-key]",
				Action: func(c *cli.Context) error {
					key := c.Args().First()
					if key == "" && stdinHasData(c.App.Reader) {
						text, err := readAll(c.App.Reader)
						if err != nil {
							return outputError(errors.NewInternal(err))
						}
						key = text
					}
					if strings.TrimSpace(key) == "" {
						return outputError(errors.NewValidation("api key is required"))
					}
					if err := e.resolver.StoreKey(key); err != nil {
						return outputError(errors.NewConfiguration(fmt.Sprintf("store api key in keychain: %v", err)))
					}
					return output(c, "API key stored in keychain.")
				},
			},
			{
				Name:  "delete",
				Usage: "Remove the API key from the keychain",
				Action: func(c *cli.Context) error {
					if err := e.resolver.DeleteKey(); err != nil {
						return outputError(errors.NewConfiguration(fmt.Sprintf("delete api key from keychain: %v", err)))
					}
					return output(c, "API key removed from keychain.")
				},
			},
			{
				Name:  "status",
				Usage: "Show where the API key would be read from",
				Flags: []cli.Flag{apiKeyFlag()},
				Action: func(c *cli.Context) error {
					_, source, err := e.resolverFor(c).ResolveSource()
					if err != nil {
						return outputError(errors.NewConfiguration(fmt.Sprintf("no api key found: set %s or run 'typefully-mcp auth set'", credentials.EnvVar)))
					}
					return output(c, fmt.Sprintf("API key found (source: %s).", source))
				},
			},
		},
	}
}

type listMethod func(*typefully.Session, context.Context, typefully.DraftQueryFilter) ([]typefully.Draft, error)

func (e *cliEnv) list(c *cli.Context, method listMethod) ([]typefully.Draft, error) {
	filter, err := typefully.ParseFilter(c.String("filter"))
	if err != nil {
		return nil, err
	}
	var drafts []typefully.Draft
	err = typefully.WithSession(e.options(c), func(s *typefully.Session) error {
		var err error
		drafts, err = method(s, c.Context, filter)
		return err
	})
	return drafts, err
}

// resolverFor returns the shared resolver with the command's --api-key applied.
func (e *cliEnv) resolverFor(c *cli.Context) *credentials.Resolver {
	r := *e.resolver
	if key := c.String("api-key"); key != "" {
		r.Explicit = key
	}
	return &r
}

func (e *cliEnv) options(c *cli.Context) typefully.Options {
	return typefully.Options{
		BaseURL:  e.cfg.APIBaseURL,
		Resolver: e.resolverFor(c),
	}
}

// Helper functions

// boolFlag returns a pointer to the flag value only when the flag was given.
func boolFlag(c *cli.Context, name string) *bool {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Bool(name)
	return &v
}

// output writes text to the app's writer, rendered as HTML with --html.
func output(c *cli.Context, text string) error {
	if c.Bool("html") {
		html, err := format.RenderHTML(text)
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		text = html
	}
	_, err := fmt.Fprintln(c.App.Writer, strings.TrimRight(text, "\n"))
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if r is a pipe or file rather than a terminal.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readAll reads all content from r.
func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
