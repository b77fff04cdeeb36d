package policy

import (
	"errors"
	"fmt"
	"strings"
)

// AnswerSeparator joins the selected option texts of a multi-choice answer.
const AnswerSeparator = "; "

// supplementaryGate is the chance of extending a multi-choice selection with
// extra uniform picks even after the preference pass selected something.
const supplementaryGate = 0.3

// ErrNoOptions is returned when a selection is requested over zero options.
var ErrNoOptions = errors.New("no selectable options")

// Rand supplies the randomness used by the selection policies. It is
// satisfied by *math/rand.Rand; tests substitute scripted sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Option is one selectable choice within a question. Activate triggers the
// external click action on the underlying control.
type Option interface {
	Text() string
	Activate() error
}

// Preferences holds the configured set of desirable answer strings,
// normalized once at construction.
type Preferences struct {
	values []string
}

func NewPreferences(values []string) Preferences {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return Preferences{values: out}
}

func (p Preferences) Empty() bool {
	return len(p.values) == 0
}

// Matches reports whether the option text counts as preferred. Containment is
// symmetric so that a short preference like "Agree" matches "Strongly Agree"
// and an overly specific preference still matches shorter option text.
func (p Preferences) Matches(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, pref := range p.values {
		if strings.Contains(text, pref) || strings.Contains(pref, text) {
			return true
		}
	}
	return false
}

// Selection is the outcome of one policy call. Preferred reports whether the
// preference bias produced at least one of the picks.
type Selection struct {
	Answer    string
	Preferred bool
}

// Selector applies preference-biased random selection to a question's
// options. Probability is the chance of honoring a matched preference over
// pure randomness.
type Selector struct {
	prefs       Preferences
	probability float64
	rng         Rand
}

func NewSelector(prefs Preferences, probability float64, rng Rand) *Selector {
	return &Selector{prefs: prefs, probability: probability, rng: rng}
}

// SelectSingle picks exactly one option, activates it, and returns its text.
// A single gate draw decides whether the first preferred option wins;
// otherwise one option is picked uniformly from the full list.
func (s *Selector) SelectSingle(options []Option) (Selection, error) {
	if len(options) == 0 {
		return Selection{}, ErrNoOptions
	}

	var chosen Option
	preferred := false
	if s.rng.Float64() < s.probability {
		for _, opt := range options {
			if s.prefs.Matches(opt.Text()) {
				chosen = opt
				preferred = true
				break
			}
		}
	}
	if chosen == nil {
		chosen = options[s.rng.Intn(len(options))]
	}

	if err := chosen.Activate(); err != nil {
		return Selection{}, fmt.Errorf("activate option %q: %w", chosen.Text(), err)
	}
	return Selection{Answer: strings.TrimSpace(chosen.Text()), Preferred: preferred}, nil
}

// SelectMulti picks a subset of options in two phases: a preference pass that
// gates each matching option individually, then a supplementary pass of
// uniform draws (with replacement) that runs when nothing was preferred or
// the 0.3 extension gate passes. Texts are deduplicated in insertion order.
func (s *Selector) SelectMulti(options []Option) (Selection, error) {
	if len(options) == 0 {
		return Selection{}, ErrNoOptions
	}

	var buffer []string
	seen := map[string]bool{}
	preferred := false

	for _, opt := range options {
		text := strings.TrimSpace(opt.Text())
		if !s.prefs.Matches(text) {
			continue
		}
		if s.rng.Float64() < s.probability && !seen[text] {
			if err := opt.Activate(); err != nil {
				return Selection{}, fmt.Errorf("activate option %q: %w", text, err)
			}
			buffer = append(buffer, text)
			seen[text] = true
			preferred = true
		}
	}

	if !preferred || (len(buffer) < len(options) && s.rng.Float64() < supplementaryGate) {
		limit := len(options) - len(buffer)
		if limit < 1 {
			limit = 1
		}
		remaining := 1 + s.rng.Intn(limit)
		for i := 0; i < remaining; i++ {
			opt := options[s.rng.Intn(len(options))]
			text := strings.TrimSpace(opt.Text())
			if seen[text] {
				continue
			}
			if err := opt.Activate(); err != nil {
				return Selection{}, fmt.Errorf("activate option %q: %w", text, err)
			}
			buffer = append(buffer, text)
			seen[text] = true
		}
	}

	return Selection{Answer: strings.Join(buffer, AnswerSeparator), Preferred: preferred}, nil
}
