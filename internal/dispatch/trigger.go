// Package dispatch decides which messages spawn AI jobs, queues those jobs,
// and runs the completion worker that answers them.
package dispatch

import "strings"

// JobKind is the kind of AI work a message asks for.
type JobKind int

const (
	JobNone JobKind = iota
	JobTextCompletion
	JobImageCompletion
)

func (k JobKind) String() string {
	switch k {
	case JobTextCompletion:
		return "text_completion"
	case JobImageCompletion:
		return "image_completion"
	default:
		return "none"
	}
}

// Trigger maps a leading token to a job kind.
type Trigger struct {
	Prefix string
	Kind   JobKind
}

// Matcher classifies message content against triggers in priority order.
type Matcher struct {
	triggers []Trigger
}

// NewMatcher creates a Matcher. Earlier triggers win over later ones.
func NewMatcher(triggers ...Trigger) *Matcher {
	return &Matcher{triggers: append([]Trigger(nil), triggers...)}
}

// DefaultMatcher puts the image trigger first because the text trigger is
// usually a prefix of it.
func DefaultMatcher(textPrefix, imagePrefix string) *Matcher {
	return NewMatcher(
		Trigger{Prefix: imagePrefix, Kind: JobImageCompletion},
		Trigger{Prefix: textPrefix, Kind: JobTextCompletion},
	)
}

// Match returns the kind of the first trigger that content starts with, or
// JobNone.
func (m *Matcher) Match(content string) JobKind {
	for _, t := range m.triggers {
		if t.Prefix != "" && strings.HasPrefix(content, t.Prefix) {
			return t.Kind
		}
	}
	return JobNone
}
