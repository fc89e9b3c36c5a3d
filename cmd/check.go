package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/internal/renderer"
)

var checkCmd = &cobra.Command{
	Use:     "check <file>...",
	Aliases: []string{"c"},
	Short:   "List the markers of templates and report unknown pipes",
	Long: `Check parses each file, lists the markers it contains and reports pipes
that are not registered. Documents are also checked for structural errors.
The command fails when any file names an unknown pipe.

Examples:
  markup check page.yml
  markup check mail.txt page.yml -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

var (
	checkKind   string
	checkFormat string
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkKind, "kind", "k", renderer.KindAuto, "Page kind (auto, text, document)")
	AddFlagValidation(checkCmd, "kind", func(kind string) error {
		return ValidateFormatWithSuggestion(kind, []string{renderer.KindAuto, renderer.KindText, renderer.KindDocument})
	})
	AddFormatFlag(checkCmd, &checkFormat)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	r := newRenderer(cfg, cfg.Logger())

	reports := make([]*renderer.Report, 0, len(args))
	var unknown []string
	for _, path := range args {
		rep, err := r.Check(renderer.Page{Path: path, Kind: checkKind})
		if err != nil {
			return err
		}
		reports = append(reports, rep)
		for _, name := range rep.UnknownPipes {
			unknown = append(unknown, fmt.Sprintf("%s: %s", path, name))
		}
	}

	if err := outputReports(cmd.OutOrStdout(), reports); err != nil {
		return err
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown pipes: %s", strings.Join(unknown, ", "))
	}

	return nil
}

func outputReports(w io.Writer, reports []*renderer.Report) error {
	switch strings.ToLower(checkFormat) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reports)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(reports)
	case "table", "":
		return outputReportTable(w, reports)
	default:
		return fmt.Errorf("unsupported format: %s", checkFormat)
	}
}

func outputReportTable(w io.Writer, reports []*renderer.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FILE\tMARKER\tPATH\tPIPE\tSTATUS")
	for _, rep := range reports {
		unknown := make(map[string]bool, len(rep.UnknownPipes))
		for _, name := range rep.UnknownPipes {
			unknown[name] = true
		}
		for _, m := range rep.Markers {
			status := "ok"
			if unknown[m.Pipe] {
				status = "unknown pipe"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rep.Path, m.Raw, m.Path, m.Pipe, status)
		}
	}

	return tw.Flush()
}
