package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/markup/internal/renderer"
)

// outputFormats are the formats accepted by --format on listing commands.
var outputFormats = []string{"table", "json", "yaml"}

// PageFlags selects the data and kind of the page a command renders.
type PageFlags struct {
	Data string
	Kind string
}

// AddPageFlags adds --data and --kind to cmd.
func AddPageFlags(cmd *cobra.Command) *PageFlags {
	flags := &PageFlags{}
	cmd.Flags().StringVarP(&flags.Data, "data", "d", "", "Data file (YAML or JSON)")
	cmd.Flags().StringVarP(&flags.Kind, "kind", "k", renderer.KindAuto, "Page kind (auto, text, document)")

	AddFlagValidation(cmd, "kind", func(kind string) error {
		return ValidateFormatWithSuggestion(kind, []string{renderer.KindAuto, renderer.KindText, renderer.KindDocument})
	})
	AddFlagValidation(cmd, "data", ValidateFileExists)

	return flags
}

// Page builds the page for path.
func (f *PageFlags) Page(path string) renderer.Page {
	return renderer.Page{Path: path, DataPath: f.Data, Kind: f.Kind}
}

// AddFormatFlag adds a --format flag accepting table, json or yaml.
func AddFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", "table", "Output format (table, json, yaml)")
	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateFormatWithSuggestion accepts format when it is one of supported,
// case-insensitively, and names the closest match otherwise.
func ValidateFormatWithSuggestion(format string, supported []string) error {
	lower := strings.ToLower(format)
	for _, s := range supported {
		if lower == s {
			return nil
		}
	}

	for _, s := range supported {
		if lower != "" && (strings.HasPrefix(s, lower) || strings.HasPrefix(lower, s)) {
			return fmt.Errorf("unsupported value %q, did you mean %q? (supported: %s)",
				format, s, strings.Join(supported, ", "))
		}
	}

	return fmt.Errorf("unsupported value %q (supported: %s)", format, strings.Join(supported, ", "))
}

// ValidatePort checks that portStr is a port number. Zero picks a free port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateFileExists accepts an empty name or an existing file.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
