package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relctx/relctx/internal/config"
	"github.com/relctx/relctx/internal/engine"
)

func init() {
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(dependenciesCmd)
	rootCmd.AddCommand(dependentsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(warningsCmd)
}

var contextCmd = &cobra.Command{
	Use:   "context <path>",
	Short: "Print read_with_context's assembled context for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := eng.ReadWithContext(args[0])
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		fmt.Println(result.Context)
		if len(result.Warnings) > 0 {
			fmt.Fprintf(os.Stderr, "\n%d warning(s) reachable from %s\n", len(result.Warnings), args[0])
		}
		return nil
	},
}

var dependenciesCmd = &cobra.Command{
	Use:   "dependencies <path>",
	Short: "List a file's outgoing relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		return printJSON(eng.GetDependencies(args[0]))
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <path>",
	Short: "List a file's incoming relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		return printJSON(eng.GetDependents(args[0]))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the full relationship graph as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		return printJSON(eng.ExportGraph())
	},
}

var warningsCmd = &cobra.Command{
	Use:   "warnings [path]",
	Short: "List suppression-filtered dynamic-pattern warnings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		return printJSON(eng.GetWarnings(path))
	},
}

// newEngine loads config and builds an Engine with an empty graph. The
// graph is not persisted, so nothing from an earlier `relctx analyze` or
// `relctx watch` run is loaded; a query command sees only what its own
// operation analyzes (see DESIGN.md's Open Question on graph
// persistence).
func newEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if root := viper.GetString("project_root"); root != "" && root != "." {
		cfg.ProjectRoot = root
	}
	eng, err := engine.New(cfg, stderrLogger{})
	if err != nil {
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, func() { _ = eng.Close() }, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
