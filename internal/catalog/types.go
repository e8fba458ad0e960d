package catalog

import (
	"fmt"
	"strings"
)

// Rate is the signal class of a value.
type Rate uint8

const (
	RateConstant Rate = iota
	RateControl
	RateAudio
	RatePolymorphic
)

// NumRates counts the concrete rates a descriptor can return or accept.
const NumRates = 3

// ConcreteRates lists the rates a polymorphic argument expands into, in expansion order.
var ConcreteRates = [NumRates]Rate{RateConstant, RateControl, RateAudio}

var rateChars = [...]byte{'i', 'k', 'a', 'x'}

var rateNames = [...]string{"constant", "control", "audio", "polymorphic"}

// ParseRate maps a Csound rate prefix to a Rate.
func ParseRate(c byte) (Rate, bool) {
	for i, rc := range rateChars {
		if rc == c {
			return Rate(i), true
		}
	}
	return 0, false
}

// Char returns the Csound variable prefix of the rate.
func (r Rate) Char() byte {
	if int(r) < len(rateChars) {
		return rateChars[r]
	}
	return '?'
}

func (r Rate) String() string {
	if int(r) < len(rateNames) {
		return rateNames[r]
	}
	return fmt.Sprintf("rate(%d)", r)
}

func (r Rate) MarshalText() ([]byte, error) {
	if int(r) >= len(rateNames) {
		return nil, fmt.Errorf("unknown rate: %d", r)
	}
	return []byte(rateNames[r]), nil
}

func (r *Rate) UnmarshalText(text []byte) error {
	for i, name := range rateNames {
		if name == string(text) {
			*r = Rate(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rate: %q", text)
}

// Tag is the DSP role category of an opcode.
type Tag uint8

const (
	TagOscillator Tag = iota
	TagRandom
	TagEnvelope
	TagDelay
	TagFilter
	TagReverb
	TagMath
	// TagOutput is only used as the parent category of a tree root.
	TagOutput
)

// NumTags counts the real opcode categories, TagOutput excluded.
const NumTags = 7

var tagNames = [...]string{"oscillator", "random", "envelope", "delay", "filter", "reverb", "math", "output"}

// ParseTag resolves a tag by name, case-insensitively.
func ParseTag(name string) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tagNames {
		if n == name {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tag: %q", name)
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", t)
}

func (t Tag) MarshalText() ([]byte, error) {
	if int(t) >= len(tagNames) {
		return nil, fmt.Errorf("unknown tag: %d", t)
	}
	return []byte(tagNames[t]), nil
}

func (t *Tag) UnmarshalText(text []byte) error {
	tag, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// Arg describes one opcode argument. An empty Spec means uniform [0,1) sampling.
type Arg struct {
	Rate Rate   `json:"rate"`
	Name string `json:"name,omitempty"`
	Spec string `json:"spec,omitempty"`
}

func (a Arg) String() string {
	var b strings.Builder
	b.WriteByte(a.Rate.Char())
	b.WriteString(a.Name)
	if a.Spec != "" {
		b.WriteByte(':')
		b.WriteString(a.Spec)
	}
	return b.String()
}

// Descriptor is one concrete opcode signature. Descriptors are shared read-only
// between the catalog and every tree node built from them.
type Descriptor struct {
	Name    string `json:"name"`
	Returns Rate   `json:"returns"`
	Args    []Arg  `json:"args"`
	Tag     Tag    `json:"tag"`
}

// Terminal reports whether every argument is constant-rate.
func (d Descriptor) Terminal() bool {
	for _, arg := range d.Args {
		if arg.Rate != RateConstant {
			return false
		}
	}
	return true
}

func (d Descriptor) String() string {
	parts := make([]string, 0, len(d.Args))
	for _, arg := range d.Args {
		parts = append(parts, arg.String())
	}
	return strings.TrimSpace(fmt.Sprintf("%cres %s %s", d.Returns.Char(), d.Name, strings.Join(parts, ", ")))
}
