// Package cmd provides the command-line interface for markup with
// configuration loaded from several sources.
//
// Configuration System:
//
//	Sources are applied with this precedence:
//	1. Command-line flags (--log-level, --port, etc.) - highest priority
//	2. Individual environment variables (MARKUP_PREVIEW_PORT, etc.)
//	3. The configuration file: --config, then MARKUP_CONFIG_FILE, then
//	   .markup.yml in the working directory - lowest priority
//
// Environment Variables:
//
//	MARKUP_CONFIG_FILE: Path to custom configuration file
//	MARKUP_RENDER_PRIORITIZE_STORED: Let stored bindings win over data
//	MARKUP_PREVIEW_PORT: Override the preview server port
//	And every other key following the MARKUP_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/markup/internal/config"
	"github.com/conneroisu/markup/internal/logging"
	"github.com/conneroisu/markup/internal/renderer"
	"github.com/conneroisu/markup/pkg/document"
)

var (
	cfgFile string
	// initErr records a configuration file that could not be read.
	initErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "markup",
	Short: "Render marker templates and YAML node documents",
	Long: `Markup renders text templates containing {{path|pipe(args)}} markers and
YAML or JSON documents describing trees of elements, loops, conditionals
and switches.

Quick Start:
  markup render page.yml --data data.json     Render a document to stdout
  markup render mail.txt -d user.yml --watch  Re-render on every change
  markup check page.yml                       List markers and unknown pipes
  markup pipes                                List the available pipes
  markup preview page.yml -d data.yml         Serve with live reload

Documentation: https://github.com/conneroisu/markup`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .markup.yml, can also use MARKUP_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig points viper at the configuration file and enables MARKUP_
// environment overrides. Errors surface from loadConfig so a command can
// report them.
func initConfig() {
	initErr = config.Init(viper.GetViper(), cfgFile)
}

func loadConfig() (*config.Config, error) {
	if initErr != nil {
		return nil, initErr
	}

	return config.Load(viper.GetViper())
}

func newRenderer(cfg *config.Config, logger logging.Logger) *renderer.Renderer {
	loader := document.NewLoader(document.WithNames(cfg.Render.IndexName, cfg.Render.ItemName))

	return renderer.New(
		renderer.WithLoader(loader),
		renderer.WithRenderOptions(cfg.RenderOptions()...),
		renderer.WithLogger(logger),
	)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
