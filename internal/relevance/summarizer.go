package relevance

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bpskonsel/beritascraper/internal/logger"
	"github.com/bpskonsel/beritascraper/internal/scraper"
)

// SummaryFailedPrefix starts the summary of a row whose model call failed.
const SummaryFailedPrefix = "Gagal meringkas"

// Generator is a text-generation backend (Gemini, OpenAI-compatible, or a test fake).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FailurePolicy decides what happens to a row when the model call fails.
type FailurePolicy int

const (
	KeepOnFailure FailurePolicy = iota
	DropOnFailure
)

// Summarizer classifies by asking the model for a short summary or the NotRelevant literal.
type Summarizer struct {
	gen       Generator
	onFailure FailurePolicy
	maxWords  int
}

func NewSummarizer(gen Generator, onFailure FailurePolicy, maxWords int) *Summarizer {
	if maxWords <= 0 {
		maxWords = 40
	}
	return &Summarizer{gen: gen, onFailure: onFailure, maxWords: maxWords}
}

func (s *Summarizer) Classify(ctx context.Context, in Input) Verdict {
	if scraper.IsSentinel(in.Text) {
		return Verdict{Accept: false, Summary: NotRelevant}
	}

	out, err := s.gen.Generate(ctx, BuildPrompt(in.Text, in.Region, in.Keyword, s.maxWords))
	if err != nil {
		logger.Warn("summary generation failed", "keyword", in.Keyword, "error", err)
		return Verdict{
			Accept:  s.onFailure == KeepOnFailure,
			Summary: fmt.Sprintf("%s: %v", SummaryFailedPrefix, err),
		}
	}

	summary := cleanSummary(out)
	if summary == "" || IsNotRelevant(summary) {
		return Verdict{Accept: false, Summary: NotRelevant}
	}
	return Verdict{Accept: true, Summary: summary}
}

// BuildPrompt asks for a summary focused on topic within region, or exactly NotRelevant.
func BuildPrompt(text, region, topic string, maxWords int) string {
	return fmt.Sprintf(`Anda adalah analis statistik di BPS %[1]s.
Bacalah teks berita berikut dan buat ringkasan 1-2 kalimat (maksimal %[2]d kata) dalam Bahasa Indonesia
yang berfokus pada topik "%[3]s" di wilayah %[1]s.

Jika teks tidak membahas topik "%[3]s" di wilayah %[1]s, atau tidak memuat fenomena ekonomi/sosial
yang relevan, jawab HANYA dengan: %[4]s

Jangan menambahkan judul, label, atau penjelasan lain.

TEKS BERITA:
%[5]s`, region, maxWords, topic, NotRelevant, text)
}

var (
	summaryLabel = regexp.MustCompile(`(?i)^(ringkasan|summary)\s*:\s*`)
	markdownJunk = strings.NewReplacer("**", "", "__", "", "`", "")
)

// cleanSummary strips markdown emphasis, a leading "Ringkasan:" label and surrounding quotes,
// and joins lines into one paragraph.
func cleanSummary(s string) string {
	s = markdownJunk.Replace(s)
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = summaryLabel.ReplaceAllString(line, "")
		if line != "" {
			parts = append(parts, line)
		}
	}
	out := strings.Join(parts, " ")
	return strings.Trim(out, "\"“” ")
}
