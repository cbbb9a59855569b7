// =============================================================================
// RPS Batch Decoder - Layouts Command
// =============================================================================
//
// COMMAND USAGE:
//   rpsdecode layouts list
//   rpsdecode layouts show <family> [--output yaml|json]
//   rpsdecode layouts validate
//
// All subcommands see the catalog the decoder would use: the built-in families
// with layouts_file applied on top.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

var layoutsOutput string

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Inspect the layout catalog",
}

var layoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the layout families",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadRuntime()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range env.catalog.Families() {
			fmt.Fprintf(out, "%-10s version %d, %d record type(s)\n", f.ID, f.Version, len(f.Ordered()))
		}
		return nil
	},
}

var layoutsShowCmd = &cobra.Command{
	Use:   "show <family>",
	Short: "Print one layout family with 1-based field positions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadRuntime()
		if err != nil {
			return err
		}
		id, err := layout.ParseFamilyID(args[0])
		if err != nil {
			return err
		}
		f, err := env.catalog.Family(id)
		if err != nil {
			return err
		}
		return writeFamily(cmd.OutOrStdout(), layout.Describe(f), layoutsOutput)
	},
}

var layoutsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every family for field overlaps and gaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadRuntime()
		if err != nil {
			return err
		}
		if err := env.catalog.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d layout family(ies) valid\n", len(env.catalog.Families()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)
	layoutsCmd.AddCommand(layoutsListCmd, layoutsShowCmd, layoutsValidateCmd)

	layoutsShowCmd.Flags().StringVarP(&layoutsOutput, "output", "o", "yaml", "Output format: yaml or json")
}

// writeFamily prints info as YAML or indented JSON.
func writeFamily(w io.Writer, info layout.FamilyInfo, format string) error {
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
