// Package export writes result rows to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bpskonsel/beritascraper/internal/news"
	"github.com/bpskonsel/beritascraper/internal/relevance"
)

const SheetName = "Hasil Scraping"

type Options struct {
	// WithSummary adds the Ringkasan column.
	WithSummary bool
	// RelevantOnly drops rows marked not relevant and renumbers the rest.
	RelevantOnly bool
}

var (
	baseHeader = []string{"Nomor", "Kategori", "Kata Kunci", "Judul", "Link", "Tanggal", "Sumber"}
	colWidths  = []float64{8, 18, 22, 60, 50, 12, 20, 70}
)

// Prepare applies opts to rows without touching the input slice.
func Prepare(rows []news.Row, opts Options) []news.Row {
	out := make([]news.Row, 0, len(rows))
	for _, r := range rows {
		if opts.RelevantOnly && relevance.IsNotRelevant(r.Ringkasan) {
			continue
		}
		if opts.RelevantOnly {
			r.Nomor = len(out) + 1
		}
		out = append(out, r)
	}
	return out
}

// WriteXLSX writes a single-sheet workbook with a header row and one row per result.
func WriteXLSX(w io.Writer, rows []news.Row, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := baseHeader
	if opts.WithSummary {
		header = append(append([]string{}, baseHeader...), "Ringkasan")
	}
	if err := setRow(f, 1, toCells(header)); err != nil {
		return err
	}

	for i, r := range Prepare(rows, opts) {
		cells := []interface{}{r.Nomor, r.Kategori, r.KataKunci, r.Judul, r.Link, r.Tanggal, r.Sumber}
		if opts.WithSummary {
			cells = append(cells, r.Ringkasan)
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if err := format(f, len(header)); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to dir/name and returns the full path.
func Save(dir, name string, rows []news.Row, opts Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteXLSX(file, rows, opts); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func format(f *excelize.File, cols int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}
	for i := 0; i < cols; i++ {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, colWidths[i]); err != nil {
			return err
		}
	}
	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// Filename builds Hasil_Scraping_<topic>_<period>_<categories>_<timestamp>.xlsx.
func Filename(topic, period string, categories []string, now time.Time) string {
	if topic == "" {
		topic = "Data"
	}
	cats := unsafeChars.ReplaceAllString(strings.Join(categories, ","), "")
	return fmt.Sprintf("Hasil_Scraping_%s_%s_%s_%s.xlsx",
		unsafeChars.ReplaceAllString(topic, ""),
		unsafeChars.ReplaceAllString(period, ""),
		cats,
		now.Format("20060102_150405"))
}
