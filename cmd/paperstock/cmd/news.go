package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/paperstock/news"
)

var newsCmd = &cobra.Command{
	Use:   "news <symbol>",
	Short: "Fetch recent headlines for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runNews,
}

var newsConfigPath string

func init() {
	rootCmd.AddCommand(newsCmd)

	newsCmd.Flags().StringVarP(&newsConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runNews(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(newsConfigPath)
	if err != nil {
		return err
	}
	if len(cfg.News.Feeds) == 0 {
		return fmt.Errorf("no news feeds configured")
	}

	src := news.NewRSS(cfg.News.Feeds, cfg.News.Limit)

	items, err := src.Fetch(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Printf("%s  %s (%s)\n  %s\n", it.Time.Format("2006-01-02 15:04"), it.Title, it.Source, it.Link)
	}
	return nil
}
