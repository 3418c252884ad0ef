package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relctx/relctx/internal/config"
	"github.com/relctx/relctx/internal/engine"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and keep the relationship graph incrementally updated",
	Long: `Watch starts the file watcher over the target directory and
periodically drains its accumulated events through the graph updater,
keeping the relationship graph current until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		return runWatch(target)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 2*time.Second, "how often to drain pending watcher events")
	_ = viper.BindPFlag("watch_poll_interval", watchCmd.Flags().Lookup("interval"))
}

func runWatch(target string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	cfg.ProjectRoot = target

	eng, err := engine.New(cfg, stderrLogger{})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer eng.Close()

	fmt.Printf("performing initial analysis of %s...\n", target)
	count, err := eng.AnalyzeDirectory(target)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	fmt.Printf("analyzed %d files, watching for changes (ctrl-c to stop)\n", count)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := eng.StartWatching(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	interval := viper.GetDuration("watch_poll_interval")
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("stopping")
			return nil
		case <-ticker.C:
			stats := eng.ProcessPending()
			if stats.Total > 0 {
				fmt.Printf("processed %d changes: %d created, %d modified, %d deleted, %d failed\n",
					stats.Total, stats.Created, stats.Modified, stats.Deleted, stats.Failed)
			}
		}
	}
}
