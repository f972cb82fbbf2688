package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/paperstock/market"
)

// Account creation and session binding normally belong to the registration
// service sitting in front of the engine; these commands are its stand-in
// for local and scripted use.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Create accounts and bind session tokens",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <account-id>",
	Short: "Create an account with the configured starting cash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(accountConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()

		cash := market.Money(eng.cfg.Ledger.DefaultCash)
		if err := eng.store.EnsureAccount(context.Background(), args[0], cash); err != nil {
			return err
		}
		fmt.Printf("account %s ready (cash %d)\n", args[0], cash)
		return nil
	},
}

var accountTokenCmd = &cobra.Command{
	Use:   "token <account-id> <token>",
	Short: "Bind a session token to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(accountConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.store.PutSession(context.Background(), args[1], args[0])
	},
}

var accountResetCmd = &cobra.Command{
	Use:   "reset <account-id>",
	Short: "Reset an account to the configured starting cash",
	Long: `Reset reinitializes cash and deletes holdings and watchlist entries.
The trade log is kept or purged per ledger.reset_keeps_log in the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(accountConfigPath)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.led.Reset(context.Background(), args[0])
	},
}

var accountConfigPath string

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd, accountTokenCmd, accountResetCmd)

	accountCmd.PersistentFlags().StringVarP(&accountConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}
