package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/paperstock/market"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place a market order for an account",
	Long: `Place an immediate market order. The fill price comes from the quote
cache; the order commits atomically or not at all.

Example:
  paperstock order --account alice --symbol 005930 --side BUY --qty 10`,
	RunE: runOrder,
}

var (
	orderConfigPath string
	orderAccount    string
	orderSymbol     string
	orderSide       string
	orderQty        int64
)

func init() {
	rootCmd.AddCommand(orderCmd)

	orderCmd.Flags().StringVarP(&orderConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	orderCmd.Flags().StringVar(&orderAccount, "account", "", "account id (required)")
	orderCmd.Flags().StringVar(&orderSymbol, "symbol", "", "symbol to trade (required)")
	orderCmd.Flags().StringVar(&orderSide, "side", "", "BUY or SELL (required)")
	orderCmd.Flags().Int64Var(&orderQty, "qty", 0, "quantity (required)")
	orderCmd.MarkFlagRequired("account")
	orderCmd.MarkFlagRequired("symbol")
	orderCmd.MarkFlagRequired("side")
	orderCmd.MarkFlagRequired("qty")
}

func runOrder(cmd *cobra.Command, args []string) error {
	side, err := market.ParseSide(orderSide)
	if err != nil {
		return err
	}

	eng, err := openEngine(orderConfigPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	fill, err := eng.led.PlaceOrder(context.Background(), orderAccount, orderSymbol, side, orderQty)
	if err != nil {
		return err
	}

	fmt.Printf("%s %d %s @ %d (trade %s)\n", fill.Side, fill.Qty, fill.Symbol, fill.Price, fill.TradeID)
	fmt.Printf("  cash: %d\n", fill.Cash)
	if fill.Holding.Qty > 0 {
		fmt.Printf("  holding: %d @ avg %d\n", fill.Holding.Qty, fill.Holding.AvgCost)
	} else {
		fmt.Printf("  holding: closed\n")
	}
	if fill.Side == market.Sell {
		fmt.Printf("  realized P/L: %d\n", fill.Realized)
	}
	return nil
}
