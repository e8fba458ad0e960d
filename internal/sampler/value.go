package sampler

import (
	"fmt"
	"strconv"
)

// Kind discriminates constant values.
type Kind uint8

const (
	KindReal Kind = iota
	KindInteger
	KindText
)

var kindNames = [...]string{"real", "integer", "text"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown value kind: %d", k)
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown value kind: %q", text)
}

// Value is a sampled constant: a real number, an integer picked from a
// discrete set, or a text reference such as a wavetable name.
type Value struct {
	Kind Kind    `json:"kind"`
	Num  float64 `json:"num,omitempty"`
	Text string  `json:"text,omitempty"`
}

func Real(v float64) Value { return Value{Kind: KindReal, Num: v} }

func Integer(v int64) Value { return Value{Kind: KindInteger, Num: float64(v)} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Continuous reports whether the value may be interpolated.
func (v Value) Continuous() bool {
	return v.Kind == KindReal
}

// String renders the value as a Csound literal.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.Num), 10)
	case KindText:
		return v.Text
	default:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
}

// Lerp interpolates linearly from a to b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
