// Package relevance decides whether an article belongs in the result set for a keyword/region pair.
package relevance

import (
	"context"
	"strings"
)

// NotRelevant is the literal the model answers with, and the summary recorded for rejected rows.
const NotRelevant = "TIDAK RELEVAN"

// Input is what every classifier sees for one article.
type Input struct {
	Title   string
	Text    string
	Keyword string
	Region  string // target region named in the model prompt
	Regions RegionSet
}

// Verdict is a classifier's decision. Summary is empty for strategies that do not summarize.
type Verdict struct {
	Accept  bool
	Summary string
}

type Classifier interface {
	Classify(ctx context.Context, in Input) Verdict
}

// RegionSet holds lowercase region and sub-region names.
type RegionSet map[string]struct{}

func NewRegionSet(names []string) RegionSet {
	set := make(RegionSet, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// FoundIn reports whether any region name occurs in one of texts (which must be lowercase).
func (s RegionSet) FoundIn(texts ...string) bool {
	for name := range s {
		for _, t := range texts {
			if strings.Contains(t, name) {
				return true
			}
		}
	}
	return false
}

// Local accepts an article when the keyword or any region name occurs in its title or text.
type Local struct{}

func (Local) Classify(_ context.Context, in Input) Verdict {
	title := strings.ToLower(in.Title)
	text := strings.ToLower(in.Text)

	if kw := strings.ToLower(strings.TrimSpace(in.Keyword)); kw != "" {
		if strings.Contains(title, kw) || strings.Contains(text, kw) {
			return Verdict{Accept: true}
		}
	}
	return Verdict{Accept: in.Regions.FoundIn(title, text)}
}

// KeepAll accepts every article; used when rows are kept for manual review.
type KeepAll struct{}

func (KeepAll) Classify(context.Context, Input) Verdict {
	return Verdict{Accept: true}
}

// Annotating runs inner for its summary but accepts every row, leaving filtering to export.
type Annotating struct {
	Inner Classifier
}

func (a Annotating) Classify(ctx context.Context, in Input) Verdict {
	v := a.Inner.Classify(ctx, in)
	v.Accept = true
	return v
}

// IsNotRelevant reports whether a summary is the not-relevant sentinel (exact or as a prefix).
func IsNotRelevant(summary string) bool {
	s := strings.ToUpper(strings.TrimSpace(summary))
	s = strings.TrimLeft(s, "\"'*`_ ")
	return strings.HasPrefix(s, NotRelevant)
}
