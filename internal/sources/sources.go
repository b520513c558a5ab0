// Package sources reads keyword categories and region names from spreadsheet workbooks.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Category is a named, ordered list of search keywords.
type Category struct {
	Name     string
	Keywords []string
}

const maxWorkbookBytes = 32 << 20

// Open reads a workbook from an http(s) URL or a local path into memory.
func Open(ctx context.Context, client *http.Client, location string) (io.Reader, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read workbook: %w", err)
		}
		return bytes.NewReader(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download workbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download workbook: HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes))
	if err != nil {
		return nil, fmt.Errorf("read workbook body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// ParseKeywords reads sheet, treating each header cell as a category and the cells below it as keywords.
func ParseKeywords(r io.Reader, sheet string) ([]Category, error) {
	rows, err := readSheet(r, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	var cats []Category
	for col, header := range rows[0] {
		name := strings.TrimSpace(header)
		if name == "" {
			continue
		}
		cells := make([]string, 0, len(rows)-1)
		for _, row := range rows[1:] {
			if col < len(row) {
				cells = append(cells, row[col])
			}
		}
		cats = append(cats, Category{Name: name, Keywords: NormalizeKeywords(cells)})
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("sheet %q has no category headers", sheet)
	}
	return cats, nil
}

// ParseRegions returns the trimmed, non-blank values below the column header.
// An empty sheet name means the first sheet of the workbook.
func ParseRegions(r io.Reader, sheet, column string) ([]string, error) {
	rows, err := readSheet(r, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("region sheet is empty")
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("region sheet has no %q column", column)
	}

	var cells []string
	for _, row := range rows[1:] {
		if col < len(row) {
			cells = append(cells, row[col])
		}
	}
	return NormalizeKeywords(cells), nil
}

// NormalizeKeywords trims cells and drops blanks, missing-value markers and duplicates, keeping order.
func NormalizeKeywords(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if isMissing(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isMissing(c string) bool {
	switch strings.ToLower(c) {
	case "", "nan", "none", "null", "#n/a":
		return true
	}
	return false
}

// Select keeps the named categories in the order given. Unknown names are an error.
func Select(cats []Category, names []string) ([]Category, error) {
	byName := make(map[string]Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}

	out := make([]Category, 0, len(names))
	for _, n := range names {
		c, ok := byName[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

// Manual builds the single-keyword category used for ad-hoc searches.
func Manual(keyword string) ([]Category, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("keyword is empty")
	}
	return []Category{{Name: keyword, Keywords: []string{keyword}}}, nil
}

// Names lists category names in order.
func Names(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

func readSheet(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
