package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"dspgp/internal/sampler"
)

var (
	ErrMalformedCatalog = errors.New("malformed catalog")
	ErrNoMatchingOpcode = errors.New("no matching opcode")
)

// Partition splits descriptors by whether they can end a branch.
type Partition uint8

const (
	Internal Partition = iota
	Terminal
)

func (p Partition) String() string {
	if p == Terminal {
		return "terminal"
	}
	return "internal"
}

// Weights holds the relative selection weight of each real tag.
type Weights [NumTags]float64

// Item is one entry of a raw opcode table: either a tag marker or a signature.
type Item struct {
	marker    bool
	tag       Tag
	signature string
	line      int
}

// Marker sets the category of every following signature.
func Marker(tag Tag) Item {
	return Item{marker: true, tag: tag}
}

// Signature is a raw signature such as "ares oscil xamp:[0,1], xcps:f".
func Signature(text string) Item {
	return Item{signature: text}
}

func (it Item) IsMarker() bool { return it.marker }

func (it Item) Tag() Tag { return it.tag }

func (it Item) Text() string { return it.signature }

func (it Item) Line() int { return it.line }

// Catalog is the immutable, partitioned set of concrete descriptors. It is
// safe for concurrent readers once built.
type Catalog struct {
	slots [2][NumRates][NumTags][]Descriptor
	size  int
}

// Build parses, expands and classifies a raw opcode table.
func Build(items []Item) (*Catalog, error) {
	c := &Catalog{}
	current := Tag(0)
	haveTag := false
	for i, item := range items {
		if item.marker {
			if item.tag >= NumTags {
				return nil, fmt.Errorf("%w: entry %d: tag %s cannot categorize opcodes", ErrMalformedCatalog, i, item.tag)
			}
			current = item.tag
			haveTag = true
			continue
		}
		where := fmt.Sprintf("entry %d", i)
		if item.line > 0 {
			where = fmt.Sprintf("line %d", item.line)
		}
		if !haveTag {
			return nil, fmt.Errorf("%w: %s %q: signature before any tag marker", ErrMalformedCatalog, where, item.signature)
		}
		descriptors, err := ParseSignature(item.signature, current)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrMalformedCatalog, where, item.signature, err)
		}
		for _, d := range descriptors {
			p := Internal
			if d.Terminal() {
				p = Terminal
			}
			c.slots[p][d.Returns][d.Tag] = append(c.slots[p][d.Returns][d.Tag], d)
			c.size++
		}
	}
	return c, nil
}

// ParseSignature parses one signature and expands its polymorphic arguments
// into the cartesian product of concrete rates.
func ParseSignature(text string, tag Tag) ([]Descriptor, error) {
	words := strings.Fields(text)
	if len(words) < 2 {
		return nil, errors.New("expected return rate and opcode name")
	}
	returns, ok := ParseRate(words[0][0])
	if !ok || returns == RatePolymorphic {
		return nil, fmt.Errorf("invalid return rate %q", words[0])
	}
	name := strings.TrimSuffix(words[1], ",")
	if name == "" {
		return nil, errors.New("empty opcode name")
	}

	args := make([]Arg, 0, len(words)-2)
	for _, word := range words[2:] {
		arg, err := parseArg(word)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	combos := expandArgs(args)
	out := make([]Descriptor, 0, len(combos))
	for _, combo := range combos {
		out = append(out, Descriptor{Name: name, Returns: returns, Args: combo, Tag: tag})
	}
	return out, nil
}

func parseArg(word string) (Arg, error) {
	word = strings.TrimSuffix(word, ",")
	if word == "" {
		return Arg{}, errors.New("empty argument")
	}
	rate, ok := ParseRate(word[0])
	if !ok {
		return Arg{}, fmt.Errorf("argument %q: invalid rate %q", word, word[0])
	}
	rest := word[1:]
	arg := Arg{Rate: rate, Name: rest}
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		arg.Name = rest[:idx]
		arg.Spec = rest[idx+1:]
		if err := sampler.Validate(arg.Spec); err != nil {
			return Arg{}, fmt.Errorf("argument %q: %w", word, err)
		}
	}
	return arg, nil
}

// expandArgs returns every concrete argument list; the last polymorphic
// argument varies fastest.
func expandArgs(args []Arg) [][]Arg {
	combos := [][]Arg{make([]Arg, 0, len(args))}
	for _, arg := range args {
		options := []Arg{arg}
		if arg.Rate == RatePolymorphic {
			options = options[:0]
			for _, r := range ConcreteRates {
				options = append(options, Arg{Rate: r, Name: arg.Name, Spec: arg.Spec})
			}
		}
		next := make([][]Arg, 0, len(combos)*len(options))
		for _, prefix := range combos {
			for _, opt := range options {
				combo := make([]Arg, len(prefix), len(args))
				copy(combo, prefix)
				next = append(next, append(combo, opt))
			}
		}
		combos = next
	}
	return combos
}

// Len is the number of expanded descriptors.
func (c *Catalog) Len() int {
	return c.size
}

// Descriptors returns the slot for a partition, return rate and tag. The
// returned slice must not be modified.
func (c *Catalog) Descriptors(p Partition, rate Rate, tag Tag) []Descriptor {
	if rate >= NumRates || tag >= NumTags {
		return nil
	}
	return c.slots[p][rate][tag]
}

// Tags lists, in tag order, the tags holding descriptors for a return rate.
func (c *Catalog) Tags(p Partition, rate Rate) []Tag {
	if rate >= NumRates {
		return nil
	}
	var tags []Tag
	for t := Tag(0); t < NumTags; t++ {
		if len(c.slots[p][rate][t]) > 0 {
			tags = append(tags, t)
		}
	}
	return tags
}

// All returns every descriptor of a partition in rate, tag, table order.
func (c *Catalog) All(p Partition) []Descriptor {
	var out []Descriptor
	for r := 0; r < NumRates; r++ {
		for t := 0; t < NumTags; t++ {
			out = append(out, c.slots[p][r][t]...)
		}
	}
	return out
}

// Pick chooses a tag by weight among the tags available for rate, then a
// descriptor uniformly within that tag.
func (c *Catalog) Pick(rng *rand.Rand, p Partition, rate Rate, weights Weights) (Descriptor, error) {
	if rng == nil {
		return Descriptor{}, errors.New("random source is required")
	}
	tags := c.Tags(p, rate)
	if len(tags) == 0 {
		return Descriptor{}, fmt.Errorf("%w: %s partition has no %s-rate opcode", ErrNoMatchingOpcode, p, rate)
	}
	total := 0.0
	for _, t := range tags {
		if w := weights[t]; w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return Descriptor{}, fmt.Errorf("%w: every %s-rate tag in %s partition has zero weight", ErrNoMatchingOpcode, rate, p)
	}

	x := rng.Float64() * total
	// rounding leftovers fall on the last positive-weight tag
	var chosen Tag
	for _, t := range tags {
		w := weights[t]
		if w <= 0 {
			continue
		}
		chosen = t
		if x < w {
			break
		}
		x -= w
	}

	slot := c.slots[p][rate][chosen]
	return slot[rng.Intn(len(slot))], nil
}
