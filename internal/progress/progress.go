// Package progress prints a live summary of a scraping run to the terminal.
package progress

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/bpskonsel/beritascraper/internal/app"
	"github.com/bpskonsel/beritascraper/internal/news"
)

var columns = []struct {
	title string
	width int
}{
	{"No", 4},
	{"Kategori", 14},
	{"Kata Kunci", 18},
	{"Judul", 48},
	{"Sumber", 18},
}

// Console renders a status line and the latest rows after each keyword.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Update is meant to be used as app.Pipeline.Progress.
func (c *Console) Update(st app.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "[%d/%d] %s / %s: +%d artikel (total %d, %s)\n",
		st.KeywordIndex, st.KeywordTotal, st.Category, st.Keyword, st.Added, st.Total, FormatDuration(st.Elapsed))
	if len(st.Latest) > 0 {
		fmt.Fprint(c.w, Table(st.Latest))
	}
}

// Table lays rows out in fixed-width columns measured in display cells.
func Table(rows []news.Row) string {
	var b strings.Builder

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.title
	}
	writeLine(&b, header)

	sep := make([]string, len(columns))
	for i, col := range columns {
		sep[i] = strings.Repeat("-", col.width)
	}
	writeLine(&b, sep)

	for _, r := range rows {
		writeLine(&b, []string{strconv.Itoa(r.Nomor), r.Kategori, r.KataKunci, r.Judul, r.Sumber})
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for i, col := range columns {
		cell := runewidth.Truncate(cells[i], col.width, "…")
		b.WriteString(" ")
		b.WriteString(cell)
		if pad := col.width - runewidth.StringWidth(cell); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// FormatDuration renders d as "N menit M detik".
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d menit %d detik", secs/60, secs%60)
}
