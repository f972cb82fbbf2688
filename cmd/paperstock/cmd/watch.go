package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage an account's watchlist",
}

var watchAddCmd = &cobra.Command{
	Use:   "add <symbol>",
	Short: "Add a symbol to the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(watchConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.watch.Add(context.Background(), watchAccount, args[0])
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove <symbol>",
	Short: "Remove a symbol from the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(watchConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.watch.Remove(context.Background(), watchAccount, args[0])
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(watchConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()

		symbols, err := eng.watch.List(context.Background(), watchAccount)
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			fmt.Println(sym)
		}
		return nil
	},
}

var (
	watchConfigPath string
	watchAccount    string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAddCmd, watchRemoveCmd, watchListCmd)

	watchCmd.PersistentFlags().StringVarP(&watchConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	watchCmd.PersistentFlags().StringVar(&watchAccount, "account", "", "account id (required)")
	watchCmd.MarkPersistentFlagRequired("account")
}
