package forum

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

var issueNumber = regexp.MustCompile(`#(\d+)`)

// ScrapeIssues reads an issue list page into entity records, one per row.
// Rows without a readable author are returned with an empty Author so the
// caller can count them as skipped.
func ScrapeIssues(ctx context.Context, cfg *config.Config, observer PageObserver) ([]thread.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	c.SetRequestTimeout(time.Duration(cfg.RequestTimeoutMs) * time.Millisecond)

	var (
		records  []thread.EntityRecord
		found    bool
		fetchErr error
	)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		rows := e.DOM.Find(cfg.Issues.Row)
		found = rows.Length() > 0
		rows.Each(func(i int, row *goquery.Selection) {
			author := strings.TrimSpace(row.Find(cfg.Issues.Author).First().Text())
			ref := row.Find(cfg.Issues.Ref).First().Text()

			id := fmt.Sprintf("Issue row %d", i+1)
			if m := issueNumber.FindStringSubmatch(ref); m != nil {
				id = "Issue " + m[1]
			}
			records = append(records, thread.EntityRecord{Author: author, ID: id, Name: id})
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	start := time.Now()
	err := c.Visit(cfg.StartURL)
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		if observer != nil {
			observer.PageFailed()
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", cfg.StartURL, err)
	}
	if observer != nil {
		observer.PageFetched(time.Since(start))
	}

	if !found {
		return nil, fmt.Errorf("%w: %s has no %q rows", thread.ErrStructureNotFound, cfg.StartURL, cfg.Issues.Row)
	}

	logrus.Infof("Fetched %s (%d issues)", cfg.StartURL, len(records))
	return records, nil
}
