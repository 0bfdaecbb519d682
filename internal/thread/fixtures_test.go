package thread

import (
	"context"
	"errors"
	"time"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// tree is a containment fixture: parent maps a message ref to its enclosing ref
type tree map[string]string

func (t tree) Contains(ancestor, descendant Handle) bool {
	anc, _ := ancestor.(string)
	cur, _ := descendant.(string)
	for {
		p, ok := t[cur]
		if !ok {
			return false
		}
		if p == anc {
			return true
		}
		cur = p
	}
}

func raw(ref, author string, at time.Duration) RawMessage {
	return RawMessage{Author: author, Timestamp: base.Add(at).Format(time.RFC3339), Ref: ref}
}

// fakeSource serves fixed pages over a tree fixture
type fakeSource struct {
	tree
	pages      [][]RawMessage
	current    int
	openErr    error
	advanceErr error
	opened     int
	closed     int
	advanced   int
}

func (f *fakeSource) Open(ctx context.Context) error {
	f.opened++
	return f.openErr
}

func (f *fakeSource) Page(ctx context.Context) ([]RawMessage, error) {
	if f.current >= len(f.pages) {
		return nil, errors.New("no page")
	}
	return f.pages[f.current], nil
}

func (f *fakeSource) HasMore() bool {
	return f.current < len(f.pages)-1
}

func (f *fakeSource) Advance(ctx context.Context) error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.advanced++
	f.current++
	return nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

// recorder is an Observer that keeps counts
type recorder struct {
	messages     int
	skipped      int
	interactions int
}

func (r *recorder) MessageRecorded(Message)            { r.messages++ }
func (r *recorder) MessageSkipped(RawMessage, error)   { r.skipped++ }
func (r *recorder) InteractionRecorded(in Interaction) { r.interactions++ }
