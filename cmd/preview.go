package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/markup/internal/config"
	"github.com/conneroisu/markup/internal/preview"
)

var previewCmd = &cobra.Command{
	Use:     "preview <file>",
	Aliases: []string{"serve", "s"},
	Short:   "Serve a page with live reload",
	Long: `Serve the rendered page over HTTP. The page is rendered on every request
and connected browsers reload when the file or its data changes. Render
errors are shown in the page instead of stopping the server.

Examples:
  markup preview page.yml --data data.yml
  markup preview mail.txt --kind text --port 3000`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var (
	previewPage *PageFlags
	previewHost string
	previewPort int
)

func init() {
	rootCmd.AddCommand(previewCmd)

	previewPage = AddPageFlags(previewCmd)
	previewCmd.Flags().StringVar(&previewHost, "host", config.DefaultHost, "Host to bind to")
	previewCmd.Flags().IntVarP(&previewPort, "port", "p", config.DefaultPort, "Port to serve on")
	AddFlagValidation(previewCmd, "port", ValidatePort)
}

// applyPreviewFlags lets explicitly set flags override the configuration.
func applyPreviewFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Preview.Host = previewHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Preview.Port = previewPort
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyPreviewFlags(cmd, cfg)

	logger := cfg.Logger()
	server, err := preview.New(cfg, newRenderer(cfg, logger), previewPage.Page(args[0]), logger)
	if err != nil {
		return fmt.Errorf("failed to create preview server: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", args[0], cfg.Addr())

	return server.Start(ctx)
}
