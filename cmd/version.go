package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for markup including the version, git
commit, build time, Go version and target platform.

Examples:
  markup version              # Show version
  markup version --detailed   # Show detailed version info
  markup version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	return outputVersion(cmd.OutOrStdout(), version.Get())
}

func outputVersion(w io.Writer, info version.Info) error {
	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(info)
	case "text":
		switch {
		case versionShort:
			_, err := fmt.Fprintln(w, info.Short())
			return err
		case versionDetailed:
			_, err := fmt.Fprintln(w, info.Detailed())
			return err
		default:
			_, err := fmt.Fprintf(w, "markup %s\n", info.Short())
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}
