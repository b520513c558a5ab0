package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	rssfeed "github.com/mmcdole/gofeed/rss"
)

// Entry is one candidate article returned by the news search.
type Entry struct {
	Title     string
	Link      string
	Published string
	Source    string // publisher name from the item's <source> element
}

const sourceKey = "source"

// sourceTranslator keeps the RSS <source> element, which the default
// translation to gofeed.Item drops, in Item.Custom.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	raw, ok := feed.(*rssfeed.Feed)
	if !ok || len(raw.Items) != len(out.Items) {
		return out, nil
	}
	for i, item := range raw.Items {
		if item.Source == nil || strings.TrimSpace(item.Source.Title) == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = map[string]string{}
		}
		out.Items[i].Custom[sourceKey] = strings.TrimSpace(item.Source.Title)
	}
	return out, nil
}

// Client searches Google News through its RSS search endpoint.
type Client struct {
	parser   *gofeed.Parser
	baseURL  string
	language string
	country  string
}

// NewClient builds a search client. baseURL is normally https://news.google.com.
func NewClient(httpClient *http.Client, baseURL, userAgent, language, country string) *Client {
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = userAgent
	parser.RSSTranslator = &sourceTranslator{}

	return &Client{
		parser:   parser,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		country:  country,
	}
}

// BuildQuery quotes keyword and region so each is searched as an exact phrase.
func BuildQuery(keyword, region string) string {
	return fmt.Sprintf("%q %q", strings.TrimSpace(keyword), strings.TrimSpace(region))
}

// SearchURL composes the RSS search URL for an inclusive [from, to] date range.
// Google's before: operator is exclusive, so it receives the day after to.
func (c *Client) SearchURL(query string, from, to time.Time) string {
	q := fmt.Sprintf("%s after:%s before:%s", query, from.Format(time.DateOnly), to.AddDate(0, 0, 1).Format(time.DateOnly))

	v := url.Values{}
	v.Set("q", q)
	v.Set("hl", c.language)
	v.Set("gl", c.country)
	v.Set("ceid", fmt.Sprintf("%s:%s", c.country, c.language))
	return c.baseURL + "/rss/search?" + v.Encode()
}

// Search downloads and parses the result feed for query.
func (c *Client) Search(ctx context.Context, query string, from, to time.Time) ([]Entry, error) {
	feed, err := c.parser.ParseURLWithContext(c.SearchURL(query, from, to), ctx)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		entries = append(entries, Entry{
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Published: item.Published,
			Source:    item.Custom[sourceKey],
		})
	}
	return entries, nil
}
