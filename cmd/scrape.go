package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/insight-cli/internal/cost"
	"github.com/sells-group/insight-cli/internal/pipeline"
)

var (
	scrapeURL   string
	scrapeDepth int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape and extract a company site without the rest of the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		c, err := newClients(ctx)
		if err != nil {
			return err
		}
		scraper, err := newScraper(c, cost.NewCalculator(cost.DefaultRates()))
		if err != nil {
			return err
		}

		target, err := pipeline.NormalizeURL(scrapeURL)
		if err != nil {
			return err
		}
		result, err := scraper.Scrape(ctx, target, depthOrDefault(scrapeDepth))
		if err != nil {
			return eris.Wrap(err, "scrape")
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "company website URL (required)")
	scrapeCmd.Flags().IntVar(&scrapeDepth, "depth", -1, "crawl depth (default from config)")
	_ = scrapeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(scrapeCmd)
}
