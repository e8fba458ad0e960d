package catalog

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"dspgp/internal/sampler"
)

func uniformWeights() Weights {
	var w Weights
	for i := range w {
		w[i] = 1
	}
	return w
}

func TestBuildSinglePolymorphicSignature(t *testing.T) {
	c, err := Build([]Item{Marker(TagOscillator), Signature("ares testop xamp:[0,1]")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 descriptors, got %d", c.Len())
	}

	terminal := c.Descriptors(Terminal, RateAudio, TagOscillator)
	if len(terminal) != 1 || terminal[0].Args[0].Rate != RateConstant {
		t.Fatalf("expected single constant-rate terminal descriptor, got %+v", terminal)
	}
	internal := c.Descriptors(Internal, RateAudio, TagOscillator)
	if len(internal) != 2 {
		t.Fatalf("expected 2 internal descriptors, got %+v", internal)
	}
	if internal[0].Args[0].Rate != RateControl || internal[1].Args[0].Rate != RateAudio {
		t.Fatalf("unexpected internal rates: %+v", internal)
	}
	for _, d := range append(append([]Descriptor(nil), terminal...), internal...) {
		if d.Returns != RateAudio || d.Name != "testop" || d.Tag != TagOscillator {
			t.Fatalf("unexpected descriptor: %+v", d)
		}
		if d.Args[0].Name != "amp" || d.Args[0].Spec != "[0,1]" {
			t.Fatalf("argument naming not preserved: %+v", d.Args[0])
		}
	}
}

func TestCartesianExpansionOfTwoPolymorphicArgs(t *testing.T) {
	descriptors, err := ParseSignature("ares pair xa:[0,1], xb:f, ic:t", TagMath)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(descriptors) != 9 {
		t.Fatalf("expected 9 descriptors, got %d", len(descriptors))
	}
	seen := map[[2]Rate]bool{}
	for _, d := range descriptors {
		if len(d.Args) != 3 || d.Args[2].Rate != RateConstant {
			t.Fatalf("unexpected args: %+v", d.Args)
		}
		pair := [2]Rate{d.Args[0].Rate, d.Args[1].Rate}
		if seen[pair] {
			t.Fatalf("duplicate rate pair %v", pair)
		}
		seen[pair] = true
	}
	if descriptors[0].Args[1].Rate != RateConstant || descriptors[1].Args[1].Rate != RateControl {
		t.Fatalf("last polymorphic argument must vary fastest: %+v", descriptors[:2])
	}
}

func TestParseSignatureStripsCommasAndSpecs(t *testing.T) {
	descriptors, err := ParseSignature("kr delayk ksig, idel:t, imode:(0,1,2)", TagDelay)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("expected one descriptor, got %d", len(descriptors))
	}
	d := descriptors[0]
	want := []Arg{
		{Rate: RateControl, Name: "sig"},
		{Rate: RateConstant, Name: "del", Spec: "t"},
		{Rate: RateConstant, Name: "mode", Spec: "(0,1,2)"},
	}
	if d.Returns != RateControl || len(d.Args) != len(want) {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	for i := range want {
		if d.Args[i] != want[i] {
			t.Fatalf("arg %d: got %+v want %+v", i, d.Args[i], want[i])
		}
	}
}

func TestBuildRejectsMalformedTables(t *testing.T) {
	cases := map[string][]Item{
		"no marker":     {Signature("ares oscil xamp:[0,1]")},
		"bad return":    {Marker(TagMath), Signature("xres foo asig")},
		"missing name":  {Marker(TagMath), Signature("ares")},
		"bad arg rate":  {Marker(TagMath), Signature("ares foo zsig")},
		"bad spec":      {Marker(TagMath), Signature("ares foo ia:[0,")},
		"output as tag": {Marker(TagOutput), Signature("ares foo asig")},
		"freq modifier": {Marker(TagFilter), Signature("ares foo asig, icf:fz")},
	}
	for name, items := range cases {
		if _, err := Build(items); !errors.Is(err, ErrMalformedCatalog) {
			t.Fatalf("%s: expected ErrMalformedCatalog, got %v", name, err)
		}
	}

	_, err := Build([]Item{Marker(TagFilter), Signature("ares foo asig, icf:fz")})
	if !errors.Is(err, sampler.ErrInvalidSpec) {
		t.Fatalf("expected wrapped spec error, got %v", err)
	}
}

func TestDefaultCatalogCoversGeneratedRates(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	for _, p := range []Partition{Internal, Terminal} {
		for _, r := range []Rate{RateControl, RateAudio} {
			if len(c.Tags(p, r)) == 0 {
				t.Fatalf("%s partition has no %s-rate descriptors", p, r)
			}
		}
	}
	for _, d := range c.All(Terminal) {
		if !d.Terminal() {
			t.Fatalf("non-terminal descriptor in terminal partition: %s", d)
		}
	}
	for _, d := range c.All(Internal) {
		if d.Terminal() {
			t.Fatalf("terminal descriptor in internal partition: %s", d)
		}
		for _, arg := range d.Args {
			if arg.Rate == RatePolymorphic {
				t.Fatalf("unexpanded argument in %s", d)
			}
		}
	}
}

func TestPickHonorsWeights(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	rng := rand.New(rand.NewSource(9))
	weights := uniformWeights()
	weights[TagEnvelope] = 0
	counts := map[Tag]int{}
	for i := 0; i < 3000; i++ {
		d, err := c.Pick(rng, Internal, RateAudio, weights)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if d.Returns != RateAudio || d.Terminal() {
			t.Fatalf("picked descriptor from wrong slot: %s", d)
		}
		counts[d.Tag]++
	}
	if counts[TagEnvelope] != 0 {
		t.Fatalf("zero-weight tag picked %d times", counts[TagEnvelope])
	}
	if counts[TagOscillator] == 0 || counts[TagFilter] == 0 {
		t.Fatalf("expected positive-weight tags to be picked: %v", counts)
	}
}

func TestPickFailsWithoutMatchingOpcode(t *testing.T) {
	c, err := Build([]Item{Marker(TagOscillator), Signature("ares osc iamp:[0,1]")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	if _, err := c.Pick(rng, Internal, RateAudio, uniformWeights()); !errors.Is(err, ErrNoMatchingOpcode) {
		t.Fatalf("expected ErrNoMatchingOpcode for empty partition, got %v", err)
	}
	if _, err := c.Pick(rng, Terminal, RateControl, uniformWeights()); !errors.Is(err, ErrNoMatchingOpcode) {
		t.Fatalf("expected ErrNoMatchingOpcode for missing rate, got %v", err)
	}
	var zero Weights
	if _, err := c.Pick(rng, Terminal, RateAudio, zero); !errors.Is(err, ErrNoMatchingOpcode) {
		t.Fatalf("expected ErrNoMatchingOpcode for zero weights, got %v", err)
	}
	d, err := c.Pick(rng, Terminal, RateAudio, uniformWeights())
	if err != nil || d.Name != "osc" {
		t.Fatalf("expected osc, got %+v err=%v", d, err)
	}
}

func TestParseTableReportsLines(t *testing.T) {
	table := `# comment
@oscillator
ares oscil xamp:[0,1], xcps:f, ifn:w, iphs:[0,1]

@filter   # trailing comment
ares tone asig, khp:f
ares broken asig, khp:[1
`
	items, err := ParseTable(strings.NewReader(table))
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	if !items[0].IsMarker() || items[0].Tag() != TagOscillator || items[0].Line() != 2 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}

	_, err = Build(items)
	if !errors.Is(err, ErrMalformedCatalog) {
		t.Fatalf("expected ErrMalformedCatalog, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 7") || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("error should identify the offending line: %v", err)
	}

	if _, err := ParseTable(strings.NewReader("@nope\n")); !errors.Is(err, ErrMalformedCatalog) {
		t.Fatalf("expected ErrMalformedCatalog for unknown tag, got %v", err)
	}
}

func TestWriteTableRoundTrip(t *testing.T) {
	var b strings.Builder
	if err := WriteTable(&b, DefaultTable); err != nil {
		t.Fatalf("write table: %v", err)
	}
	c, err := LoadTable(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	ref, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c.Len() != ref.Len() {
		t.Fatalf("round trip changed catalog size: %d vs %d", c.Len(), ref.Len())
	}
}
