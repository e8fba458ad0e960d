package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

var ErrInvalidSpec = errors.New("invalid value spec")

const (
	minDuration = 0.01
	maxDuration = 2.0

	minFrequency = 1.0
	maxFrequency = 6000.0

	// log-normal shaped acceptance curve of the frequency sampler
	frequencyPeak      = 0.01
	frequencySteepness = 0.5
	frequencyAttempts  = 64
)

// Sampler draws constant values from value specs. It holds no mutable state;
// randomness comes from the caller.
type Sampler struct {
	wavetables []string
}

// New returns a sampler picking "w" specs among wavetables.
func New(wavetables []string) *Sampler {
	return &Sampler{wavetables: append([]string(nil), wavetables...)}
}

// Wavetables returns the registry used for "w" specs.
func (s *Sampler) Wavetables() []string {
	return append([]string(nil), s.wavetables...)
}

// Sample draws one value. An empty spec samples uniformly in [0,1).
func (s *Sampler) Sample(rng *rand.Rand, spec string) (Value, error) {
	if rng == nil {
		return Value{}, errors.New("random source is required")
	}
	if spec == "" {
		return Real(rng.Float64()), nil
	}
	switch spec[0] {
	case '[':
		lo, hi, err := parseRange(spec)
		if err != nil {
			return Value{}, err
		}
		return Real(Lerp(lo, hi, rng.Float64())), nil
	case '(':
		set, err := parseSet(spec)
		if err != nil {
			return Value{}, err
		}
		return Integer(set[rng.Intn(len(set))]), nil
	case 't':
		return Real(Lerp(minDuration, maxDuration, rng.Float64())), nil
	case 'f':
		switch spec[1:] {
		case "":
			return Real(Frequency(rng)), nil
		case "d":
			return Real(math.Abs(Frequency(rng) - Frequency(rng))), nil
		case "r":
			return Real(1 / Frequency(rng)), nil
		}
		return Value{}, fmt.Errorf("%w: unknown frequency modifier %q", ErrInvalidSpec, spec)
	case 'w':
		if len(s.wavetables) == 0 {
			return Value{}, fmt.Errorf("%w: no wavetable registered for %q", ErrInvalidSpec, spec)
		}
		return Text(s.wavetables[rng.Intn(len(s.wavetables))]), nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}

// Validate checks a spec without sampling it.
func Validate(spec string) error {
	if spec == "" {
		return nil
	}
	switch spec[0] {
	case '[':
		_, _, err := parseRange(spec)
		return err
	case '(':
		_, err := parseSet(spec)
		return err
	case 't', 'w':
		if len(spec) == 1 {
			return nil
		}
	case 'f':
		switch spec[1:] {
		case "", "d", "r":
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}

// Frequency draws a frequency in Hz by rejection sampling against a
// log-normal shaped density. After frequencyAttempts rejections the last
// candidate is used.
func Frequency(rng *rand.Rand) float64 {
	x := 0.0
	for i := 0; i < frequencyAttempts; i++ {
		x = rng.Float64()
		y := rng.Float64()
		if y < frequencyDensity(x) {
			break
		}
	}
	return Lerp(minFrequency, maxFrequency, x)
}

func frequencyDensity(x float64) float64 {
	d := math.Log(x) - math.Log(frequencyPeak)
	return math.Exp(-d * d * frequencySteepness)
}

func parseRange(spec string) (float64, float64, error) {
	if len(spec) < 2 || spec[len(spec)-1] != ']' {
		return 0, 0, fmt.Errorf("%w: unterminated range %q", ErrInvalidSpec, spec)
	}
	bounds := strings.Split(spec[1:len(spec)-1], ",")
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("%w: range %q needs two bounds", ErrInvalidSpec, spec)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range %q: %v", ErrInvalidSpec, spec, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range %q: %v", ErrInvalidSpec, spec, err)
	}
	return lo, hi, nil
}

func parseSet(spec string) ([]int64, error) {
	if len(spec) < 2 || spec[len(spec)-1] != ')' {
		return nil, fmt.Errorf("%w: unterminated set %q", ErrInvalidSpec, spec)
	}
	parts := strings.Split(spec[1:len(spec)-1], ",")
	set := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: set %q: %v", ErrInvalidSpec, spec, err)
		}
		set = append(set, v)
	}
	return set, nil
}
