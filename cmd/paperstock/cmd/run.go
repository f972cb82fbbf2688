package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/paperstock/poller"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quote polling daemon",
	Long: `Run the engine daemon: open the store, build the quote cache and
start the polling coordinator, which keeps every watched and held symbol
warm until interrupted.

Example:
  paperstock run -f paperstock.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(runConfigPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	coord := poller.New(eng.cache, eng.store, poller.Options{
		Interval:   eng.cfg.Poller.Interval.Std(),
		TopSymbols: eng.cfg.Poller.TopSymbols,
	})
	coord.SetLogger(eng.log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.log.WithField("interval", eng.cfg.Poller.Interval.String()).Info("poller started")
	if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	eng.log.Info("poller stopped")
	return nil
}
