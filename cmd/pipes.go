package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/pkg/pipe"
)

var pipesCmd = &cobra.Command{
	Use:     "pipes",
	Aliases: []string{"p"},
	Short:   "List the registered pipes",
	Long: `List every pipe markers can name, with the target of each alias.

Examples:
  markup pipes
  markup pipes -f json`,
	Args: cobra.NoArgs,
	RunE: runPipes,
}

var pipesFormat string

func init() {
	rootCmd.AddCommand(pipesCmd)

	AddFormatFlag(pipesCmd, &pipesFormat)
}

// PipeInfo describes one registered name.
type PipeInfo struct {
	Name   string `json:"name" yaml:"name"`
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

func listPipes(r *pipe.Registry) []PipeInfo {
	names := r.Names()
	infos := make([]PipeInfo, 0, len(names))
	for _, name := range names {
		info := PipeInfo{Name: name, Kind: "pipe"}
		if target, ok := r.Target(name); ok {
			info.Kind = "alias"
			info.Target = target
		}
		infos = append(infos, info)
	}

	return infos
}

func runPipes(cmd *cobra.Command, args []string) error {
	return outputPipes(cmd.OutOrStdout(), listPipes(pipe.Default()))
}

func outputPipes(w io.Writer, infos []PipeInfo) error {
	switch strings.ToLower(pipesFormat) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(infos)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tTARGET")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Kind, info.Target)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format: %s", pipesFormat)
	}
}
