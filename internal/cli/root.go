// Package cli implements the relctx command-line surface: a cobra root
// command with persistent flags bound through viper, and subcommands
// composing internal/config.Load with internal/engine.Engine.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	appVersion = "0.1.0"
	buildDate  = "unknown"
	gitCommit  = "unknown"

	rootCmd = &cobra.Command{
		Use:   "relctx",
		Short: "relctx - cross-file context for Python repositories",
		Long: `relctx maintains an incrementally-updated relationship graph over a
Python source tree and serves bounded, dependency-aware context for
AI-assisted development tools.`,
		Version: appVersion,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets build-time version information on the root command.
func SetVersion(version, date, commit string) {
	if version != "" {
		appVersion = version
		rootCmd.Version = version
	}
	if date != "" {
		buildDate = date
	}
	if commit != "" {
		gitCommit = commit
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Build Date: %s
Git Commit: %s
`, buildDate, gitCommit))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .relctx/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("project-root", "C", ".", "project root directory")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind verbose flag: %v\n", err)
	}
	if err := viper.BindPFlag("project_root", rootCmd.PersistentFlags().Lookup("project-root")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind project-root flag: %v\n", err)
	}
}

func verbose() bool { return viper.GetBool("verbose") }
