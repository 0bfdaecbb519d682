package thread

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Options controls how a thread is reconstructed
type Options struct {
	Direction        Direction
	Normalization    Normalization
	RequireTimestamp bool // skip messages without a parseable timestamp
	MaxPages         int  // 0 means no limit
}

// DefaultOptions returns reply-to-parent edges, raw author identity and strict timestamps
func DefaultOptions() Options {
	return Options{
		Direction:        DirectionReplyToParent,
		Normalization:    NormalizeNone,
		RequireTimestamp: true,
	}
}

// Observer is notified of every message and edge the reconstructor handles
type Observer interface {
	MessageRecorded(m Message)
	MessageSkipped(raw RawMessage, err error)
	InteractionRecorded(in Interaction)
}

// State is everything one full-thread analysis accumulates. The caller owns it
// and creates a fresh one per run. Not safe for concurrent use.
type State struct {
	opts       Options
	contains   Containment
	observer   Observer
	candidates []Message // every parsed message, document order
	agg        *Aggregator
	edges      []Interaction
	entities   []*Node
	entityByID map[string]*Node
	skipped    int
	pages      int
}

// NewState creates an empty analysis state using contains for parent discovery
func NewState(contains Containment, opts Options) *State {
	return &State{
		opts:       opts,
		contains:   contains,
		agg:        NewAggregator(),
		entityByID: make(map[string]*Node),
	}
}

// SetObserver registers an observer; nil disables notifications
func (s *State) SetObserver(o Observer) {
	s.observer = o
}

// Options returns the options the state was created with
func (s *State) Options() Options {
	return s.opts
}

// ProcessPage resolves parents for a newly revealed page of messages and
// returns the interactions it created. Candidates from earlier pages stay
// eligible as parents.
func (s *State) ProcessPage(page []RawMessage) []Interaction {
	s.pages++
	var created []Interaction

	for i, raw := range page {
		msg, err := s.parse(raw)
		if err != nil {
			s.skipped++
			logrus.WithFields(logrus.Fields{
				"page":     s.pages,
				"position": i,
			}).Warnf("Skipping message: %v", err)
			if s.observer != nil {
				s.observer.MessageSkipped(raw, err)
			}
			continue
		}

		s.agg.RecordMessage(msg)
		if s.observer != nil {
			s.observer.MessageRecorded(msg)
		}

		if parent, ok := s.findParent(msg); ok {
			in := s.interaction(parent, msg)
			s.edges = append(s.edges, in)
			s.agg.RecordInteraction(in)
			created = append(created, in)
			if s.observer != nil {
				s.observer.InteractionRecorded(in)
			}
		}

		// Registered only after its own parent lookup
		s.candidates = append(s.candidates, msg)
	}

	logrus.Debugf("Page %d: %d messages, %d interactions", s.pages, len(page), len(created))
	return created
}

// findParent returns the most recently registered candidate containing m
func (s *State) findParent(m Message) (Message, bool) {
	for j := len(s.candidates) - 1; j >= 0; j-- {
		p := s.candidates[j]
		if s.contains.Contains(p.Ref, m.Ref) {
			return p, true
		}
	}
	return Message{}, false
}

func (s *State) interaction(parent, child Message) Interaction {
	in := Interaction{SourceID: child.Key, TargetID: parent.Key}
	if s.opts.Direction == DirectionParentToReply {
		in.SourceID, in.TargetID = parent.Key, child.Key
	}
	if parent.HasTimestamp && child.HasTimestamp {
		in.TimeDiff = Some(child.Timestamp.Sub(parent.Timestamp))
	}
	return in
}

func (s *State) parse(raw RawMessage) (Message, error) {
	if raw.Author == "" {
		return Message{}, fmt.Errorf("%w: missing author", ErrUnparseableMessage)
	}
	key := s.opts.Normalization.Key(raw.Author)
	if key == "" {
		return Message{}, fmt.Errorf("%w: blank author %q", ErrUnparseableMessage, raw.Author)
	}

	ts, ok := ParseTimestamp(raw.Timestamp)
	if !ok && s.opts.RequireTimestamp {
		if raw.Timestamp == "" {
			return Message{}, fmt.Errorf("%w: missing timestamp for %q", ErrUnparseableMessage, raw.Author)
		}
		return Message{}, fmt.Errorf("%w: bad timestamp %q for %q", ErrUnparseableMessage, raw.Timestamp, raw.Author)
	}

	return Message{
		Author:       raw.Author,
		Key:          key,
		Timestamp:    ts,
		HasTimestamp: ok,
		Ref:          raw.Ref,
	}, nil
}

// EntityRecord is a non-participant item authored by a participant, such as an issue
type EntityRecord struct {
	Author string
	ID     string
	Name   string
	Color  string
}

// RecordEntity counts the author's post, registers the entity node once and
// links author -> entity.
func (s *State) RecordEntity(rec EntityRecord) (Interaction, error) {
	msg := Message{Author: rec.Author, Key: s.opts.Normalization.Key(rec.Author)}
	if msg.Key == "" || rec.ID == "" {
		err := fmt.Errorf("%w: entity %q by %q", ErrUnparseableMessage, rec.ID, rec.Author)
		s.skipped++
		if s.observer != nil {
			s.observer.MessageSkipped(RawMessage{Author: rec.Author}, err)
		}
		return Interaction{}, err
	}

	s.agg.RecordMessage(msg)
	if s.observer != nil {
		s.observer.MessageRecorded(msg)
	}

	if _, exists := s.entityByID[rec.ID]; !exists {
		name := rec.Name
		if name == "" {
			name = rec.ID
		}
		color := rec.Color
		if color == "" {
			color = EntityColor
		}
		node := &Node{ID: rec.ID, Name: name, Kind: KindEntity, Color: color, Size: 1}
		s.entityByID[rec.ID] = node
		s.entities = append(s.entities, node)
	}

	in := Interaction{SourceID: msg.Key, TargetID: rec.ID}
	s.edges = append(s.edges, in)
	if s.observer != nil {
		s.observer.InteractionRecorded(in)
	}
	return in, nil
}

// Interactions returns a copy of every edge created so far
func (s *State) Interactions() []Interaction {
	return append([]Interaction(nil), s.edges...)
}

// Participants returns the aggregated participant statistics
func (s *State) Participants() []ParticipantStats {
	return s.agg.Participants()
}

// MessageCount returns the number of parsed messages (and entity posts)
func (s *State) MessageCount() int {
	total := 0
	for _, ps := range s.agg.stats {
		total += ps.OutCount
	}
	return total
}

// Skipped returns the number of unparseable messages dropped
func (s *State) Skipped() int {
	return s.skipped
}

// Pages returns the number of pages processed
func (s *State) Pages() int {
	return s.pages
}
