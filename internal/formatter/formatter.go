// package formatter renders sync reports and listings for the terminal and exports the reading list
// to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/aggx/internal/listing"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/desertthunder/aggx/internal/tasks"
	"github.com/samber/lo"
)

// ReadingColumns is the header written by [ReadingToCSV]; it is also the import format.
var ReadingColumns = []string{
	"title", "author", "description", "difficulty", "section",
	"cover_url", "pdf_url", "audio_url", "external_url",
	"publication_year", "pages", "reading_time", "tags",
}

// ReadingToCSV converts reading materials to CSV with the [ReadingColumns] header.
func ReadingToCSV(materials []models.ReadingMaterial) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(ReadingColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range materials {
		record := []string{
			m.Title,
			m.Author,
			m.Description,
			m.Difficulty,
			m.Section,
			m.CoverURL,
			m.PDFURL,
			m.AudioURL,
			m.ExternalURL,
			m.PublicationYear,
			strconv.Itoa(m.Pages),
			strconv.Itoa(m.ReadingTime),
			strings.Join(m.Tags, ","),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReadingToMarkdown converts reading materials to a Markdown list grouped by section.
func ReadingToMarkdown(materials []models.ReadingMaterial) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Reading List\n\n")
	buf.WriteString(fmt.Sprintf("**Materials**: %d\n", len(materials)))

	sections := lo.Uniq(lo.Map(materials, func(m models.ReadingMaterial, _ int) string { return m.Section }))
	for _, section := range sections {
		buf.WriteString(fmt.Sprintf("\n## %s\n\n", section))

		for _, m := range lo.Filter(materials, func(m models.ReadingMaterial, _ int) bool { return m.Section == section }) {
			title := m.Title
			if m.ExternalURL != "" {
				title = fmt.Sprintf("[%s](%s)", m.Title, m.ExternalURL)
			}
			buf.WriteString(fmt.Sprintf("- %s by %s (%s", title, m.Author, m.Difficulty))
			if m.ReadingTime > 0 {
				buf.WriteString(", " + formatMinutes(m.ReadingTime))
			}
			buf.WriteString(")\n")
			if len(m.Tags) > 0 {
				buf.WriteString(fmt.Sprintf("  - tags: %s\n", strings.Join(m.Tags, ", ")))
			}
		}
	}

	return buf.Bytes(), nil
}

// ReadingToText converts reading materials to plain text format
func ReadingToText(materials []models.ReadingMaterial) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Reading list: %d materials\n\n", len(materials)))
	for i, m := range materials {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, m.Author, m.Title))
	}

	return buf.Bytes(), nil
}

// ExportReading encodes materials in format (csv, markdown, txt or json).
func ExportReading(materials []models.ReadingMaterial, format string) ([]byte, error) {
	switch format {
	case "csv":
		return ReadingToCSV(materials)
	case "markdown", "md":
		return ReadingToMarkdown(materials)
	case "txt", "text":
		return ReadingToText(materials)
	case "json", "":
		return shared.MarshalJSON(materials, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReadingExport writes materials to path in format.
//
// Defaults to reading_list.{format} as the filename.
func WriteReadingExport(materials []models.ReadingMaterial, format, path string) (string, error) {
	if path == "" {
		path = "reading_list." + format
	}

	data, err := ExportReading(materials, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// Report renders a sync report as a title line followed by one line per source.
func Report(r *tasks.SyncReport, p *Palette) string {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder
	b.WriteString(p.Title(fmt.Sprintf("%s: %d items from %d sources in %s",
		r.Family, r.ItemsUpdated, len(r.Sources), r.Duration().Round(time.Millisecond))))
	b.WriteString("\n")

	for _, src := range r.Sources {
		switch src.Status {
		case tasks.StatusOK:
			b.WriteString(p.OK("  ✓ "))
			b.WriteString(fmt.Sprintf("%s (%d items, %d pages)", src.Title, src.Items, src.Pages))
		case tasks.StatusFailed:
			b.WriteString(p.Err("  ✗ "))
			b.WriteString(fmt.Sprintf("%s: %s", src.Title, src.Reason))
		default:
			b.WriteString(p.Warn("  - "))
			b.WriteString(fmt.Sprintf("%s: %s", src.Title, src.Status))
		}
		if src.Dropped > 0 {
			b.WriteString(p.Help(fmt.Sprintf(" (%d dropped)", src.Dropped)))
		}
		b.WriteString("\n")
	}

	if r.SourcesFailed > 0 || r.SourcesSkipped > 0 {
		b.WriteString(p.Help(fmt.Sprintf("%d failed, %d skipped\n", r.SourcesFailed, r.SourcesSkipped)))
	}
	return b.String()
}

// Page renders one listing page with a line per item and the cursor of the next page.
func Page(page *listing.Page[any], p *Palette) string {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder
	if len(page.Items) == 0 {
		b.WriteString(p.Help("no items\n"))
	}
	for _, item := range page.Items {
		b.WriteString(Line(item, p))
		b.WriteString("\n")
	}
	if page.NextCursor != "" {
		b.WriteString(p.Help("next: " + page.NextCursor))
		b.WriteString("\n")
	}
	return b.String()
}

// Line renders a single listing item.
func Line(item any, p *Palette) string {
	switch v := item.(type) {
	case models.VideoView:
		return fmt.Sprintf("%s  %s  %s", p.Help(shortDate(v.PublishedAt)), p.Title(v.ChannelTitle), v.Title)
	case models.ArticleView:
		return fmt.Sprintf("%s  %s  %s", p.Help(shortDate(v.PublishedAt.String())), p.Title(v.FeedTitle), v.Title)
	case models.PostView:
		return fmt.Sprintf("%s  %s  %s", p.Help(shortDate(v.PostedAt.String())), p.Title(v.Author), truncate(v.Content, 80))
	case models.ReadingMaterial:
		return fmt.Sprintf("%s  %s - %s  %s", p.Help(v.Difficulty), p.Title(v.Author), v.Title, p.Help(strings.Join(v.Tags, ",")))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func shortDate(s string) string {
	if len(s) >= len("2006-01-02") {
		return s[:len("2006-01-02")]
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
