package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// PageObserver is told about every page fetch
type PageObserver interface {
	PageFetched(d time.Duration)
	PageFailed()
}

// Source reveals a forum thread page by page over HTTP. It implements thread.Source.
type Source struct {
	cfg       *config.Config
	collector *colly.Collector
	limiter   *rate.Limiter
	pages     *PageQueue
	observer  PageObserver
	current   *page
	seenIDs   map[string]bool // message ids already revealed on earlier pages
	closeOnce sync.Once
	closed    bool
}

// page is one fetched document
type page struct {
	url      string
	found    bool // thread container present
	messages []thread.RawMessage
	next     string
	first    string
	err      error
}

// messageRef is the thread.Handle for one message element
type messageRef struct {
	doc       *page
	id        string
	ancestors []string // ids of enclosing message elements, nearest first
	sel       *goquery.Selection
}

// NewSource creates a forum source; observer may be nil
func NewSource(cfg *config.Config, observer PageObserver) *Source {
	limit := rate.Inf
	if cfg.PageDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.PageDelayMs) * time.Millisecond)
	}

	s := &Source{
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		pages:    NewPageQueue(),
		observer: observer,
		seenIDs:  make(map[string]bool),
	}

	s.setupColly()
	return s
}

// setupColly configures the Colly collector with callbacks
func (s *Source) setupColly() {
	s.collector = colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(), // loop detection is done by the page queue
	)
	s.collector.SetRequestTimeout(time.Duration(s.cfg.RequestTimeoutMs) * time.Millisecond)

	s.collector.OnHTML("html", func(e *colly.HTMLElement) {
		if s.current == nil {
			return
		}
		s.parsePage(s.current, e)
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		if s.current != nil {
			s.current.err = err
		}
		if r != nil && r.Request != nil {
			logrus.Errorf("Fetch failed for %s: %v (status: %d)", r.Request.URL, err, r.StatusCode)
		}
	})
}

// parsePage extracts messages and pagination links from a document
func (s *Source) parsePage(p *page, e *colly.HTMLElement) {
	sel := s.cfg.Selectors
	doc := e.DOM

	if doc.Find(sel.Container).Length() == 0 {
		return
	}
	p.found = true

	doc.Find(sel.Message).Each(func(i int, item *goquery.Selection) {
		id := strings.TrimSpace(item.AttrOr(sel.IDAttr, ""))
		if id != "" && s.seenIDs[id] {
			// Context copy of a message from an earlier page
			logrus.Debugf("Skipping repeated message %s on %s", id, p.url)
			return
		}

		ref := &messageRef{doc: p, id: id, sel: item}
		item.ParentsFiltered(sel.Message).Each(func(_ int, anc *goquery.Selection) {
			if ancID := strings.TrimSpace(anc.AttrOr(sel.IDAttr, "")); ancID != "" {
				ref.ancestors = append(ref.ancestors, ancID)
			}
		})

		raw := thread.RawMessage{Ref: ref}
		if author := item.Find(sel.Author).First(); author.Length() > 0 {
			raw.Author = author.Text()
		}
		if sel.Timestamp != "" {
			if ts := item.Find(sel.Timestamp).First(); ts.Length() > 0 {
				raw.Timestamp = ts.AttrOr(sel.TimestampAttr, ts.Text())
			}
		}
		p.messages = append(p.messages, raw)
	})

	p.next = s.pageLink(e, sel.NextPage)
	p.first = s.pageLink(e, sel.FirstPage)
}

// pageLink returns the absolute URL of an enabled pagination link, or ""
func (s *Source) pageLink(e *colly.HTMLElement, selector string) string {
	if selector == "" {
		return ""
	}
	link := e.DOM.Find(selector).First()
	if link.Length() == 0 {
		return ""
	}
	disabled := s.cfg.Selectors.DisabledClass
	if disabled != "" && (link.HasClass(disabled) || link.Parent().HasClass(disabled)) {
		return ""
	}
	href, ok := link.Attr("href")
	if !ok || !navigable(href) {
		return ""
	}
	return e.Request.AbsoluteURL(strings.TrimSpace(href))
}

// fetch downloads and parses one page, waiting for the page delay first
func (s *Source) fetch(ctx context.Context, pageURL string) (*page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	p := &page{url: pageURL}
	s.current = p
	start := time.Now()

	err := s.collector.Visit(pageURL)
	if err == nil {
		err = p.err
	}
	if err != nil {
		if s.observer != nil {
			s.observer.PageFailed()
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	if s.observer != nil {
		s.observer.PageFetched(time.Since(start))
	}
	for _, m := range p.messages {
		if ref := m.Ref.(*messageRef); ref.id != "" {
			s.seenIDs[ref.id] = true
		}
	}

	logrus.Infof("Fetched %s (%d messages)", pageURL, len(p.messages))
	return p, nil
}

// Open fetches the start page, jumping to the thread's first page when the
// start page is somewhere in the middle.
func (s *Source) Open(ctx context.Context) error {
	if s.cfg.StartURL == "" {
		return errors.New("no start URL configured")
	}

	p, err := s.fetch(ctx, s.cfg.StartURL)
	if err != nil {
		return err
	}
	if !p.found {
		return fmt.Errorf("%w: %s has no %q element", thread.ErrStructureNotFound, p.url, s.cfg.Selectors.Container)
	}

	if p.first != "" && pageKey(p.first) != pageKey(p.url) && SameForum(p.url, p.first) {
		logrus.Infof("Not on the first page, going to %s", p.first)
		// Forget what the middle page revealed; it is read again in order
		s.seenIDs = make(map[string]bool)
		p, err = s.fetch(ctx, p.first)
		if err != nil {
			return err
		}
		if !p.found {
			return fmt.Errorf("%w: %s has no %q element", thread.ErrStructureNotFound, p.url, s.cfg.Selectors.Container)
		}
	}

	s.pages.Push(p.url)
	return nil
}

// Page returns the raw messages of the current page
func (s *Source) Page(ctx context.Context) ([]thread.RawMessage, error) {
	if s.closed {
		return nil, errors.New("source is closed")
	}
	if s.current == nil {
		return nil, errors.New("source is not open")
	}
	return s.current.messages, nil
}

// HasMore reports whether an unvisited next page on the same forum exists
func (s *Source) HasMore() bool {
	if s.closed || s.current == nil || s.current.next == "" {
		return false
	}
	next := s.current.next
	if !SameForum(s.cfg.StartURL, next) {
		logrus.Warnf("Next page %s leaves the forum, stopping", next)
		return false
	}
	if s.pages.Seen(next) {
		logrus.Warnf("Next page %s was already visited, stopping", next)
		return false
	}
	return true
}

// Advance fetches the next page
func (s *Source) Advance(ctx context.Context) error {
	if !s.HasMore() {
		return errors.New("no next page")
	}
	next := s.current.next
	s.pages.Push(next)

	p, err := s.fetch(ctx, next)
	if err != nil {
		return err
	}
	if !p.found {
		return fmt.Errorf("%w: %s lost the %q element", thread.ErrStructureNotFound, p.url, s.cfg.Selectors.Container)
	}
	return nil
}

// Close stops pagination (safe to call multiple times)
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		logrus.Infof("Pagination finished after %d page(s)", s.pages.Len())
	})
	return nil
}

// Visited returns the pages scanned so far, in order
func (s *Source) Visited() []string {
	return s.pages.Visited()
}

// Contains reports whether descendant is nested inside ancestor. Within one
// document the DOM decides; across documents the descendant's chain of
// enclosing message ids does.
func (s *Source) Contains(ancestor, descendant thread.Handle) bool {
	a, ok := ancestor.(*messageRef)
	if !ok {
		return false
	}
	d, ok := descendant.(*messageRef)
	if !ok {
		return false
	}

	if a.doc == d.doc {
		return a.sel.Contains(d.sel.Get(0))
	}
	if a.id == "" {
		return false
	}
	for _, id := range d.ancestors {
		if id == a.id {
			return true
		}
	}
	return false
}
