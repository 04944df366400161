package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/serpent/internal/export"
	"github.com/FranksOps/serpent/internal/report"
	"github.com/FranksOps/serpent/internal/serp"
)

var (
	batchFile     string
	batchEngine   string
	batchCountry  string
	batchLanguage string
	batchOut      string
	batchFormat   string
	batchJSON     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [keywords...]",
	Short: "Scrape a keyword list through the worker pool",
	Long: `Scrape many keywords concurrently. Keywords come from the argument
list, from --file (one per line, # comments allowed), or both.

Examples:
  serpent batch "espresso grinder" "moka pot" "aeropress"
  serpent batch --file keywords.txt --engine bing --workers 5
  serpent batch --file keywords.txt --out results.json --report-json
`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "keyword list file, one per line")
	batchCmd.Flags().StringVar(&batchEngine, "engine", "google", "search engine: google or bing")
	batchCmd.Flags().StringVar(&batchCountry, "country", "", "country code, e.g. us")
	batchCmd.Flags().StringVar(&batchLanguage, "language", "", "language code, e.g. en")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "write scraped documents to this file (default stdout)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "document output format: json or csv")
	batchCmd.Flags().BoolVar(&batchJSON, "report-json", false, "print the run summary as JSON instead of text")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keywords, err := collectKeywords(args, batchFile)
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		return fmt.Errorf("no keywords given: pass them as arguments or via --file")
	}

	queries := make([]serp.Query, 0, len(keywords))
	for _, kw := range keywords {
		queries = append(queries, serp.Query{
			Keyword:  kw,
			Country:  batchCountry,
			Language: batchLanguage,
			Engine:   serp.Engine(batchEngine),
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	a.logger.Info("starting batch",
		"keywords", len(queries),
		"engine", batchEngine,
		"workers", cfg.Workers)

	batch, runErr := a.engine.ScrapeBatch(ctx, queries)

	if err := writeDocuments(batch, batchOut, batchFormat); err != nil {
		return err
	}

	summary := report.GenerateSummary(batch)
	if batchJSON {
		if err := report.WriteJSON(os.Stderr, summary); err != nil {
			return err
		}
	} else {
		if err := report.WriteText(os.Stderr, summary); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("batch interrupted: %w", runErr)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d queries failed", summary.Failed, summary.TotalQueries)
	}
	return nil
}

func collectKeywords(args []string, path string) ([]string, error) {
	keywords := append([]string(nil), args...)
	if path == "" {
		return keywords, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	return keywords, nil
}

func writeDocuments(batch *serp.BatchResult, path, format string) error {
	var docs []*serp.Document
	for _, out := range batch.Statuses {
		if out.Document != nil {
			docs = append(docs, out.Document)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Query.Keyword < docs[j].Query.Keyword
	})

	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		return export.WriteCSV(w, docs)
	case "json":
		return export.WriteJSON(w, docs)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
