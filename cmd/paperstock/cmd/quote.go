package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>...",
	Short: "Fetch current quotes through the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuote,
}

var quoteConfigPath string

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVarP(&quoteConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runQuote(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(quoteConfigPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()
	for _, sym := range args {
		q, err := eng.cache.GetQuote(ctx, sym)
		if err != nil {
			fmt.Printf("%s: %v\n", sym, err)
			continue
		}
		mark := ""
		if q.Stale {
			mark = " (stale)"
		}
		fmt.Printf("%s %s: %d (%+d, %.2f%%)%s\n", q.Symbol, q.Name, q.Price, q.Change, q.ChangePct, mark)
	}
	return nil
}
