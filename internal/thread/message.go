package thread

import (
	"encoding/json"
	"strings"
	"time"
)

// Handle is an opaque reference into a message source. Only the source's
// Containment implementation knows how to interpret it.
type Handle any

// Containment reports whether descendant lies within the rendered subtree of ancestor
type Containment interface {
	Contains(ancestor, descendant Handle) bool
}

// ContainsFunc adapts a plain function to Containment
type ContainsFunc func(ancestor, descendant Handle) bool

// Contains calls f(ancestor, descendant)
func (f ContainsFunc) Contains(ancestor, descendant Handle) bool {
	return f(ancestor, descendant)
}

// RawMessage is a message element as a source reveals it, before parsing
type RawMessage struct {
	Author    string
	Timestamp string
	Ref       Handle
}

// Message is a parsed message. Immutable once created.
type Message struct {
	Author       string // display string as rendered
	Key          string // participant identity after normalization
	Timestamp    time.Time
	HasTimestamp bool
	Ref          Handle
}

// Interaction is one reply relationship between two participants
type Interaction struct {
	SourceID string       `json:"source" yaml:"source"`
	TargetID string       `json:"target" yaml:"target"`
	TimeDiff NullDuration `json:"time_diff" yaml:"time_diff"`
}

// NullDuration is a duration that may be absent, in the spirit of sql.NullTime.
// An invalid value means "no data" and encodes as null, never as zero.
type NullDuration struct {
	Duration time.Duration
	Valid    bool
}

// Some returns a valid NullDuration holding d
func Some(d time.Duration) NullDuration {
	return NullDuration{Duration: d, Valid: true}
}

func (n NullDuration) String() string {
	if !n.Valid {
		return "n/a"
	}
	return n.Duration.String()
}

// MarshalJSON encodes the duration string or null
func (n NullDuration) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Duration.String())
}

// UnmarshalJSON accepts null or a time.ParseDuration string
func (n *NullDuration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullDuration{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*n = Some(d)
	return nil
}

// MarshalYAML encodes the duration string or null
func (n NullDuration) MarshalYAML() (interface{}, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Duration.String(), nil
}

// Normalization selects how author display strings map to participant identity
type Normalization int

const (
	// NormalizeNone keys participants by the raw display string
	NormalizeNone Normalization = iota
	// NormalizeTrim strips surrounding whitespace
	NormalizeTrim
	// NormalizeFold trims and case-folds
	NormalizeFold
)

// ParseNormalization maps a config value to a Normalization
func ParseNormalization(s string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return NormalizeNone, nil
	case "trim":
		return NormalizeTrim, nil
	case "fold", "casefold":
		return NormalizeFold, nil
	}
	return NormalizeNone, &OptionError{Option: "author_normalization", Value: s}
}

// Key returns the participant identity for a display string
func (n Normalization) Key(author string) string {
	switch n {
	case NormalizeTrim:
		return strings.TrimSpace(author)
	case NormalizeFold:
		return strings.ToLower(strings.TrimSpace(author))
	}
	return author
}

func (n Normalization) String() string {
	switch n {
	case NormalizeTrim:
		return "trim"
	case NormalizeFold:
		return "fold"
	}
	return "none"
}

// Direction fixes which end of a reply is the edge source. In-count always
// follows the edge target, so the choice changes what in/out degree mean.
type Direction int

const (
	// DirectionReplyToParent points from the reply author to the parent author.
	// In-degree counts replies received.
	DirectionReplyToParent Direction = iota
	// DirectionParentToReply points from the parent author to the reply author.
	DirectionParentToReply
)

// ParseDirection maps a config value to a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reply-to-parent", "reply_to_parent":
		return DirectionReplyToParent, nil
	case "parent-to-reply", "parent_to_reply":
		return DirectionParentToReply, nil
	}
	return DirectionReplyToParent, &OptionError{Option: "edge_direction", Value: s}
}

func (d Direction) String() string {
	if d == DirectionParentToReply {
		return "parent-to-reply"
	}
	return "reply-to-parent"
}

// timeLayouts are tried in order when parsing message timestamps
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the accepted layouts
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
