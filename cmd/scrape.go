package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/serpent/internal/serp"
)

var (
	scrapeKeyword  string
	scrapeEngine   string
	scrapeCountry  string
	scrapeLanguage string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one keyword and print the parsed results page as JSON",
	Long: `Scrape a single keyword against one engine.

Examples:
  serpent scrape -q "best espresso grinder"
  serpent scrape -q "wetter berlin" --engine google --country de --language de
  serpent scrape -q "golang generics" --engine bing --driver http
`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeKeyword, "query", "q", "", "keyword to scrape (required)")
	scrapeCmd.Flags().StringVar(&scrapeEngine, "engine", "google", "search engine: google or bing")
	scrapeCmd.Flags().StringVar(&scrapeCountry, "country", "", "country code, e.g. us")
	scrapeCmd.Flags().StringVar(&scrapeLanguage, "language", "", "language code, e.g. en")
	_ = scrapeCmd.MarkFlagRequired("query")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	doc, err := a.engine.ScrapeOne(ctx, serp.Query{
		Keyword:  scrapeKeyword,
		Country:  scrapeCountry,
		Language: scrapeLanguage,
		Engine:   serp.Engine(scrapeEngine),
	})
	if err != nil {
		return fmt.Errorf("scrape %q: %w", scrapeKeyword, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
