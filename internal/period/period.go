// Package period turns the year/quarter or custom date choices of a run into a search date range.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinYear is the earliest year accepted for a search.
const MinYear = 2015

// Range is an inclusive calendar date range.
type Range struct {
	From    time.Time
	To      time.Time
	Quarter int // 0 for a custom range
}

// ParseYear validates a four digit year not earlier than MinYear.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("tahun wajib diisi")
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("tahun harus 4 digit angka: %q", s)
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("tahun harus 4 digit angka: %q", s)
	}
	if year < MinYear {
		return 0, fmt.Errorf("tahun tidak boleh kurang dari %d", MinYear)
	}
	return year, nil
}

// Quarter returns the range of triwulan q (1..4) in year.
func Quarter(year, q int) (Range, error) {
	if q < 1 || q > 4 {
		return Range{}, fmt.Errorf("triwulan harus 1-4, bukan %d", q)
	}
	from := time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, -1)
	return Range{From: from, To: to, Quarter: q}, nil
}

// Custom parses YYYY-MM-DD bounds and requires from <= to.
func Custom(from, to string) (Range, error) {
	f, err := time.Parse(time.DateOnly, strings.TrimSpace(from))
	if err != nil {
		return Range{}, fmt.Errorf("tanggal awal tidak valid: %w", err)
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(to))
	if err != nil {
		return Range{}, fmt.Errorf("tanggal akhir tidak valid: %w", err)
	}
	if t.Before(f) {
		return Range{}, fmt.Errorf("tanggal akhir %s sebelum tanggal awal %s", to, from)
	}
	return Range{From: f, To: t}, nil
}

// Label is the period part of export filenames.
func (r Range) Label() string {
	if r.Quarter > 0 {
		return fmt.Sprintf("Triwulan %d_%d", r.Quarter, r.From.Year())
	}
	return fmt.Sprintf("%s s.d %s", r.From.Format("20060102"), r.To.Format("20060102"))
}
