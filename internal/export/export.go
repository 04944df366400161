// Package export writes scraped documents to flat files for downstream
// analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/FranksOps/serpent/internal/serp"
)

// csvHeaders defines the CSV column order
var csvHeaders = []string{
	"keyword",
	"engine",
	"country",
	"language",
	"position",
	"title",
	"url",
	"domain",
	"snippet",
	"featured",
	"rich",
	"total_results",
	"scraped_at",
}

// WriteCSV flattens documents into one row per organic result. Consumers
// get the spreadsheet view; SERP features stay in the JSON export.
func WriteCSV(w io.Writer, docs []*serp.Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, doc := range docs {
		for _, r := range doc.Results {
			record := []string{
				doc.Query.Keyword,
				string(doc.Query.Engine),
				doc.Query.Country,
				doc.Query.Language,
				strconv.Itoa(r.Position),
				r.Title,
				r.URL,
				r.Domain,
				r.Snippet,
				strconv.FormatBool(r.IsFeaturedSnippet),
				strconv.FormatBool(r.IsRichSnippet),
				strconv.FormatInt(doc.TotalResults, 10),
				doc.ScrapedAt.Format(time.RFC3339),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteJSON emits the documents with full structure, features included.
func WriteJSON(w io.Writer, docs []*serp.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("write json documents: %w", err)
	}
	return nil
}
