package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notetags/internal"
	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/index"
	"github.com/starford/notetags/internal/linkopen"
	"github.com/starford/notetags/internal/prompt"
	pkgconfig "github.com/starford/notetags/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// runner carries the streams commands read from and write to.
type runner struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (r *runner) loadConfig(cmd *cli.Command) (*internal.Config, error) {
	root := cmd.Root()
	path := root.String("config")
	cfg := internal.NewDefaultConfig()
	if root.IsSet("config") {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadOptional(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (r *runner) open(ctx context.Context, cmd *cli.Command, console *prompt.Console, extra ...internal.Option) (*internal.App, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(r.errOut),
	}
	if console != nil {
		opts = append(opts, internal.WithNotifier(console))
	}
	return internal.Open(ctx, append(opts, extra...)...)
}

// withApp opens the application with a console notifier, runs fn and
// closes it again.
func (r *runner) withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App, console *prompt.Console) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		console := prompt.NewConsole(r.in, r.out)
		app, err := r.open(ctx, cmd, console)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app, console)
	}
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() < n {
		return fmt.Errorf("%s: expected %s", cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func (r *runner) sync(ctx context.Context, cmd *cli.Command) error {
	app, err := r.open(ctx, cmd, nil, internal.WithoutSync())
	if err != nil {
		return err
	}
	defer app.Close()
	stats, err := index.Sync(app.DB, app.Store, app.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "indexed %d, removed %d, failed %d\n", stats.Indexed, stats.Removed, stats.Failed)
	return nil
}

func (r *runner) listTags(ctx context.Context, _ *cli.Command, app *internal.App, _ *prompt.Console) error {
	tags, err := app.Tags.ListTags(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Fprintln(r.out, tag)
	}
	return nil
}

func (r *runner) createTag(ctx context.Context, cmd *cli.Command, app *internal.App, _ *prompt.Console) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	tag := cmd.Args().First()
	id, err := app.Tagger.CreateTag(ctx, tag)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s\t%s\n", id, app.Tagger.TagPath(tag))
	return nil
}

// chooseTag returns the tag argument at position i, or asks the picker.
func (r *runner) chooseTag(ctx context.Context, cmd *cli.Command, i int, app *internal.App, console *prompt.Console) (string, error) {
	if tag := cmd.Args().Get(i); tag != "" {
		return tag, nil
	}
	picker := prompt.NewPicker(app.Config.App.Picker, console)
	return app.Tagger.PickTag(ctx, picker, "Tag")
}

func (r *runner) reportInsert(inserted bool, err error) error {
	if errors.Is(err, apperr.ErrAborted) {
		fmt.Fprintln(r.out, "Aborted")
		return nil
	}
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	fmt.Fprintln(r.out, "ok")
	return nil
}

func (r *runner) tagFile(ctx context.Context, cmd *cli.Command, app *internal.App, console *prompt.Console) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	tag, err := r.chooseTag(ctx, cmd, 1, app, console)
	if err != nil {
		return r.reportInsert(false, err)
	}
	return r.reportInsert(app.Tagger.TagFile(ctx, cmd.Args().First(), tag))
}

func (r *runner) tagAt(ctx context.Context, cmd *cli.Command, app *internal.App, console *prompt.Console) error {
	if err := requireArgs(cmd, 2); err != nil {
		return err
	}
	offset, err := strconv.Atoi(cmd.Args().Get(1))
	if err != nil || offset < 0 {
		return fmt.Errorf("%s: invalid offset %q", cmd.Name, cmd.Args().Get(1))
	}
	tag, err := r.chooseTag(ctx, cmd, 2, app, console)
	if err != nil {
		return r.reportInsert(false, err)
	}
	return r.reportInsert(app.Tagger.TagAt(ctx, cmd.Args().First(), offset, tag))
}

func (r *runner) clear(ctx context.Context, cmd *cli.Command, app *internal.App, _ *prompt.Console) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	return app.Tagger.ClearFile(ctx, cmd.Args().First())
}

func (r *runner) noteTags(ctx context.Context, cmd *cli.Command, app *internal.App, _ *prompt.Console) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	tags, err := app.Tagger.DocumentTags(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Fprintln(r.out, tag)
	}
	return nil
}

func (r *runner) openLink(ctx context.Context, cmd *cli.Command, app *internal.App, _ *prompt.Console) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	view := linkopen.ViewerFunc(func(ctx context.Context, tag, id string) error {
		v, err := app.Notes.Backlinks(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Notes tagged «%s» (%d)\n", tag, len(v.Notes))
		for _, n := range v.Notes {
			fmt.Fprintf(r.out, "  %s\t%s\n", n.Title, n.File)
		}
		return nil
	})
	fallback := linkopen.HandlerFunc(func(_ context.Context, l linkopen.Link) (linkopen.Result, error) {
		fmt.Fprintf(r.out, "%s\t%s\n", l.Type, l.Target)
		return linkopen.Handled, nil
	})
	_, err := app.LinkChain(view, fallback).Open(ctx, linkopen.ParseLink(cmd.Args().First()))
	return err
}

func (r *runner) serve(ctx context.Context, _ *cli.Command, app *internal.App, _ *prompt.Console) error {
	return app.Serve(ctx)
}

func (r *runner) mcp(ctx context.Context, cmd *cli.Command) error {
	app, err := r.open(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.MCPServer().ServeStdio()
}

func newCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:      "notetags",
		Usage:     "Tag Markdown notes by linking them to tag notes",
		Writer:    r.out,
		ErrWriter: r.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("NOTETAGS_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{Name: "sync", Usage: "Re-index the vault", Action: r.sync},
			{Name: "tags", Usage: "List all tags", Action: r.withApp(r.listTags)},
			{Name: "create", Usage: "Create a tag note", ArgsUsage: "<tag>", Action: r.withApp(r.createTag)},
			{Name: "tag", Usage: "Add a tag to a file's tag line", ArgsUsage: "<file> [tag]", Action: r.withApp(r.tagFile)},
			{Name: "tag-at", Usage: "Link a tag inline at a character offset", ArgsUsage: "<file> <offset> [tag]", Action: r.withApp(r.tagAt)},
			{Name: "clear", Usage: "Empty a file's tag line", ArgsUsage: "<file>", Action: r.withApp(r.clear)},
			{Name: "note-tags", Usage: "List the tags a file links to", ArgsUsage: "<file>", Action: r.withApp(r.noteTags)},
			{Name: "open", Usage: "Follow a link", ArgsUsage: "<link>", Action: r.withApp(r.openLink)},
			{Name: "serve", Usage: "Run the HTTP API with live re-indexing", Action: r.withApp(r.serve)},
			{Name: "mcp", Usage: "Run the MCP server on stdio", Action: r.mcp},
		},
	}
}

func main() {
	r := &runner{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	if err := newCommand(r).Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
