package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show an account's cash, holdings and recent trades",
	RunE:  runPortfolio,
}

var (
	portfolioConfigPath string
	portfolioAccount    string
	portfolioLogLimit   int
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVarP(&portfolioConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	portfolioCmd.Flags().StringVar(&portfolioAccount, "account", "", "account id (required)")
	portfolioCmd.Flags().IntVar(&portfolioLogLimit, "trades", 10, "number of recent trades to show")
	portfolioCmd.MarkFlagRequired("account")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(portfolioConfigPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()

	p, err := eng.led.Portfolio(ctx, portfolioAccount)
	if err != nil {
		return err
	}

	fmt.Printf("Account %s\n", p.AccountID)
	fmt.Printf("  cash: %d\n", p.Cash)
	for _, pos := range p.Positions {
		line := fmt.Sprintf("  %s: %d @ avg %d", pos.Symbol, pos.Qty, pos.AvgCost)
		if pos.Price > 0 {
			line += fmt.Sprintf(", last %d, value %d, P/L %+d", pos.Price, pos.MarketValue, pos.UnrealizedPL)
			if pos.Stale {
				line += " (stale)"
			}
		}
		fmt.Println(line)
	}

	trades, err := eng.led.TradeLog(ctx, portfolioAccount, portfolioLogLimit)
	if err != nil {
		return err
	}
	if len(trades) > 0 {
		fmt.Println("Recent trades:")
		for _, t := range trades {
			fmt.Printf("  %s %s %d %s @ %d\n",
				t.CreatedAt.Format("2006-01-02 15:04:05"), t.Side, t.Qty, t.Symbol, t.Price)
		}
	}
	return nil
}
