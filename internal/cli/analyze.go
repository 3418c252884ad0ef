package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relctx/relctx/internal/config"
	"github.com/relctx/relctx/internal/engine"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a single file or walk a directory, updating the relationship graph",
	Long: `Analyze runs the two-phase analysis pipeline over the given path. A
file argument analyses that file alone; a directory argument walks
every accepted Python file beneath it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if info.IsDir() {
		cfg.ProjectRoot = target
	} else {
		cfg.ProjectRoot = filepath.Dir(target)
	}

	eng, err := engine.New(cfg, stderrLogger{})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	defer eng.Close()

	if info.IsDir() {
		count, err := eng.AnalyzeDirectory(target)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		fmt.Printf("analyzed %d files under %s\n", count, target)
		return nil
	}

	if !eng.AnalyzeFile(target) {
		return fmt.Errorf("analyze: %s failed or is unparseable", target)
	}
	fmt.Printf("analyzed %s\n", target)

	warnings := eng.GetWarnings(target)
	if len(warnings) > 0 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(warnings)
	}
	return nil
}
