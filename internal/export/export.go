// Package export renders the engine's export feed to interchange formats.
// Exporters are read-only consumers; they never reach back into the engine.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/funneldesk/funnel-api/internal/domain"
)

// WriteJSON streams the feed as indented JSON
func WriteJSON(w io.Writer, feed *domain.ExportFeed) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(feed)
}

var csvHeader = []string{
	"id", "name", "email", "phone", "website", "stage", "stageName",
	"tag", "priority", "sortOrder", "notes", "createdAt", "updatedAt",
}

// WriteCSV streams the feed's leads as CSV, one row per lead in funnel
// order. Stage names are resolved from the feed's stage list.
func WriteCSV(w io.Writer, feed *domain.ExportFeed) error {
	stageNames := make(map[string]string, len(feed.Stages))
	for _, s := range feed.Stages {
		stageNames[s.Key] = s.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range feed.Leads {
		row := []string{
			l.ID.String(),
			l.Name,
			l.Email,
			l.Phone,
			l.Website,
			l.Stage,
			stageNames[l.Stage],
			string(l.Tag),
			string(l.Priority),
			strconv.Itoa(l.SortOrder),
			flatten(l.Notes),
			l.CreatedAt.UTC().Format(time.RFC3339),
			l.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// flatten collapses newlines so multi-line notes stay on one CSV row
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
