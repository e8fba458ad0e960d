package sampler

import (
	"errors"
	"math/rand"
	"testing"
)

func TestSampleRespectsSpecDomains(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New([]string{"giSine", "giSaw"})

	for i := 0; i < 2000; i++ {
		v, err := s.Sample(rng, "[-4,4]")
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		if v.Kind != KindReal || v.Num < -4 || v.Num > 4 {
			t.Fatalf("range sample out of bounds: %+v", v)
		}

		v, err = s.Sample(rng, "(0,2,4,6,10,12)")
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		switch v.Num {
		case 0, 2, 4, 6, 10, 12:
		default:
			t.Fatalf("set sample not a member: %+v", v)
		}
		if v.Kind != KindInteger {
			t.Fatalf("expected integer kind, got %s", v.Kind)
		}

		v, err = s.Sample(rng, "t")
		if err != nil {
			t.Fatalf("duration: %v", err)
		}
		if v.Num < minDuration || v.Num > maxDuration {
			t.Fatalf("duration out of bounds: %v", v.Num)
		}

		v, err = s.Sample(rng, "f")
		if err != nil {
			t.Fatalf("frequency: %v", err)
		}
		if v.Num < minFrequency || v.Num > maxFrequency {
			t.Fatalf("frequency out of bounds: %v", v.Num)
		}

		v, err = s.Sample(rng, "fd")
		if err != nil {
			t.Fatalf("frequency difference: %v", err)
		}
		if v.Num < 0 || v.Num > maxFrequency-minFrequency {
			t.Fatalf("frequency difference out of bounds: %v", v.Num)
		}

		v, err = s.Sample(rng, "fr")
		if err != nil {
			t.Fatalf("reciprocal frequency: %v", err)
		}
		if v.Num < 1/maxFrequency || v.Num > 1/minFrequency {
			t.Fatalf("reciprocal frequency out of bounds: %v", v.Num)
		}

		v, err = s.Sample(rng, "w")
		if err != nil {
			t.Fatalf("wavetable: %v", err)
		}
		if v.Kind != KindText || (v.Text != "giSine" && v.Text != "giSaw") {
			t.Fatalf("unexpected wavetable: %+v", v)
		}

		v, err = s.Sample(rng, "")
		if err != nil {
			t.Fatalf("uniform: %v", err)
		}
		if v.Num < 0 || v.Num >= 1 {
			t.Fatalf("uniform out of bounds: %v", v.Num)
		}
	}
}

func TestFrequencyFavorsLowRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	low := 0
	const n = 5000
	for i := 0; i < n; i++ {
		if Frequency(rng) < 1000 {
			low++
		}
	}
	if low < n/2 {
		t.Fatalf("expected most frequencies below 1kHz, got %d/%d", low, n)
	}
}

func TestSampleIsDeterministicForSeed(t *testing.T) {
	s := New([]string{"giSine"})
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for _, spec := range []string{"[0,1]", "(1,2,3)", "t", "f", "fd", "fr", "w", ""} {
		va, err := s.Sample(a, spec)
		if err != nil {
			t.Fatalf("sample %q: %v", spec, err)
		}
		vb, err := s.Sample(b, spec)
		if err != nil {
			t.Fatalf("sample %q: %v", spec, err)
		}
		if va != vb {
			t.Fatalf("spec %q diverged: %+v vs %+v", spec, va, vb)
		}
	}
}

func TestValidateRejectsMalformedSpecs(t *testing.T) {
	for _, spec := range []string{"[0,1", "[0]", "[a,b]", "(1,x)", "()", "fx", "q", "tt"} {
		if err := Validate(spec); !errors.Is(err, ErrInvalidSpec) {
			t.Fatalf("spec %q: expected ErrInvalidSpec, got %v", spec, err)
		}
	}
	for _, spec := range []string{"", "[0,1]", "[.05,1]", "(0,1,2)", "t", "f", "fd", "fr", "w"} {
		if err := Validate(spec); err != nil {
			t.Fatalf("spec %q: unexpected error %v", spec, err)
		}
	}
}

func TestSampleWithoutWavetablesFails(t *testing.T) {
	s := New(nil)
	if _, err := s.Sample(rand.New(rand.NewSource(1)), "w"); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{Real(0.5), "0.5"},
		{Real(1234.25), "1234.25"},
		{Integer(4), "4"},
		{Text("giSaw"), "giSaw"},
	}
	for _, tc := range cases {
		if got := tc.value.String(); got != tc.want {
			t.Fatalf("value %+v: got %q want %q", tc.value, got, tc.want)
		}
	}
}
