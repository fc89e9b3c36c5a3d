package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/markup/internal/config"
	"github.com/conneroisu/markup/internal/logging"
	"github.com/conneroisu/markup/internal/renderer"
	"github.com/conneroisu/markup/internal/watcher"
	"github.com/conneroisu/markup/pkg/render"
)

var renderCmd = &cobra.Command{
	Use:     "render <file>",
	Aliases: []string{"r"},
	Short:   "Render a template or document",
	Long: `Render a text template or a YAML/JSON document against optional data.

Files ending in .yml, .yaml or .json are documents unless --kind says
otherwise; anything else is a text template.

Examples:
  markup render page.yml --data data.json
  markup render mail.txt -d user.yml -o mail.out
  markup render page.yml --prioritize-stored
  markup render page.yml -d data.yml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderPage       *PageFlags
	renderOutput     string
	renderPrioritize bool
	renderWatch      bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderPage = AddPageFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write output to a file instead of stdout")
	renderCmd.Flags().BoolVar(&renderPrioritize, "prioritize-stored", false, "Stored bindings win over data")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "Render again whenever the file or data changes")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cfg.Logger().WithComponent("render")
	r := newRenderer(cfg, logger)
	page := renderPage.Page(args[0])

	var extra []render.Option
	if renderPrioritize {
		extra = append(extra, render.PrioritizeStored())
	}

	ctx := commandContext(cmd)
	if err := renderOnce(ctx, cmd.OutOrStdout(), r, page, extra); err != nil {
		if !renderWatch {
			return err
		}
		logging.LogError(logger, ctx, err, "Render failed", "file", page.Path)
	}
	if !renderWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchRender(ctx, cmd.OutOrStdout(), cfg, logger, r, page, extra)
}

func renderOnce(ctx context.Context, stdout io.Writer, r *renderer.Renderer, page renderer.Page, extra []render.Option) error {
	out, err := r.Render(ctx, page, extra...)
	if err != nil {
		return err
	}

	if renderOutput == "" {
		_, err = io.WriteString(stdout, out)
		return err
	}
	if err := os.WriteFile(renderOutput, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", renderOutput, err)
	}

	return nil
}

func watchRender(
	ctx context.Context,
	stdout io.Writer,
	cfg *config.Config,
	logger logging.Logger,
	r *renderer.Renderer,
	page renderer.Page,
	extra []render.Option,
) error {
	fw, err := watcher.NewFileWatcher(cfg.Preview.Debounce, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	if err := fw.AddFiles(page.Path, page.DataPath); err != nil {
		return err
	}
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		logger.Info(ctx, "Change detected, rendering", "file", page.Path, "events", len(events))
		return renderOnce(ctx, stdout, r, page, extra)
	})
	if err := fw.Start(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Watching for changes", "file", page.Path, "data", page.DataPath)
	<-ctx.Done()

	return nil
}
