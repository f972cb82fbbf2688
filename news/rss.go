package news

import (
	"context"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// RSSSource reads headlines from a set of RSS feeds. Feed URLs may contain a
// "{symbol}" placeholder, replaced per request; URLs without a placeholder
// are fetched as-is (general market feeds).
type RSSSource struct {
	feeds []string
	limit int
	log   logrus.FieldLogger

	parser *gofeed.Parser
}

// NewRSS creates a source over the given feed URLs, returning at most limit
// items per Fetch.
func NewRSS(feeds []string, limit int) *RSSSource {
	if limit <= 0 {
		limit = 20
	}
	return &RSSSource{
		feeds:  feeds,
		limit:  limit,
		log:    logrus.StandardLogger(),
		parser: gofeed.NewParser(),
	}
}

// SetLogger replaces the default process logger.
func (s *RSSSource) SetLogger(log logrus.FieldLogger) { s.log = log }

// Fetch pulls every configured feed, merges the items newest first and caps
// the result. A feed that fails to parse is skipped, not fatal: headlines
// are decoration, never a reason to fail a caller.
func (s *RSSSource) Fetch(ctx context.Context, symbol string) ([]Item, error) {
	var out []Item

	for _, feedURL := range s.feeds {
		u := strings.ReplaceAll(feedURL, "{symbol}", symbol)

		feed, err := s.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithField("feed", u).WithError(err).Debug("news feed skipped")
			continue
		}

		source := feed.Title
		for _, it := range feed.Items {
			item := Item{
				Title:  it.Title,
				Link:   it.Link,
				Source: source,
			}
			if it.PublishedParsed != nil {
				item.Time = *it.PublishedParsed
			} else if it.UpdatedParsed != nil {
				item.Time = *it.UpdatedParsed
			}
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out, nil
}
