package tree

import (
	"errors"
	"testing"

	"dspgp/internal/catalog"
	"dspgp/internal/sampler"
)

func descriptor(t *testing.T, sig string, tag catalog.Tag) catalog.Descriptor {
	t.Helper()
	ds, err := catalog.ParseSignature(sig, tag)
	if err != nil {
		t.Fatalf("parse %q: %v", sig, err)
	}
	if len(ds) != 1 {
		t.Fatalf("expected a single descriptor for %q, got %d", sig, len(ds))
	}
	return ds[0]
}

// fixture builds: tone(oscil(0.5, 440, giSine, 0), 1000)
func fixture(t *testing.T) *Call {
	t.Helper()
	oscil := &Call{
		Op: descriptor(t, "ares oscil iamp:[0,1], icps:f, ifn:w, iphs:[0,1]", catalog.TagOscillator),
		Args: []Node{
			&Const{Value: sampler.Real(0.5), Spec: "[0,1]"},
			&Const{Value: sampler.Real(440), Spec: "f"},
			&Const{Value: sampler.Text("giSine"), Spec: "w"},
			&Const{Value: sampler.Real(0), Spec: "[0,1]"},
		},
	}
	return &Call{
		Op: descriptor(t, "ares tone asig, ihp:f", catalog.TagFilter),
		Args: []Node{
			oscil,
			&Const{Value: sampler.Real(1000), Spec: "f"},
		},
	}
}

func TestDepthFirstIsPreOrder(t *testing.T) {
	root := fixture(t)
	var labels []string
	for n := range DepthFirst(root) {
		switch node := n.(type) {
		case *Call:
			labels = append(labels, node.Op.Name)
		case *Const:
			labels = append(labels, node.Value.String())
		}
	}
	want := []string{"tone", "oscil", "0.5", "440", "giSine", "0", "1000"}
	if len(labels) != len(want) {
		t.Fatalf("got %v want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("got %v want %v", labels, want)
		}
	}

	// restartable and stoppable
	count := 0
	for range DepthFirst(root) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("early break not honored: %d", count)
	}
	if NodeCount(root) != 7 {
		t.Fatalf("expected 7 nodes, got %d", NodeCount(root))
	}
}

func TestDepth(t *testing.T) {
	root := fixture(t)
	if d := Depth(root); d != 2 {
		t.Fatalf("expected depth 2, got %d", d)
	}
	if d := Depth(root.Args[1]); d != 0 {
		t.Fatalf("expected leaf depth 0, got %d", d)
	}
	if d := Depth(root.Args[0]); d != 1 {
		t.Fatalf("expected depth 1, got %d", d)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := fixture(t)
	snapshot := original.Clone()

	clone := original.Clone().(*Call)
	if !Equal(original, clone) {
		t.Fatal("clone differs from original")
	}
	clone.Args[1].(*Const).Value = sampler.Real(20)
	inner := clone.Args[0].(*Call)
	inner.Args[0] = &Const{Value: sampler.Real(0.9), Spec: "[0,1]"}

	if !Equal(original, snapshot) {
		t.Fatal("mutating the clone changed the original")
	}
	if original.Args[0] == clone.Args[0] || original.Args[1] == clone.Args[1] {
		t.Fatal("clone shares child nodes with the original")
	}
}

func TestValidate(t *testing.T) {
	root := fixture(t)
	if err := Validate(root, catalog.RateAudio); err != nil {
		t.Fatalf("valid tree rejected: %v", err)
	}
	if err := Validate(root, catalog.RateControl); !errors.Is(err, ErrIllTyped) {
		t.Fatalf("expected rate mismatch, got %v", err)
	}

	missing := root.Clone().(*Call)
	missing.Args = missing.Args[:1]
	if err := Validate(missing, catalog.RateAudio); !errors.Is(err, ErrIllTyped) {
		t.Fatalf("expected arity error, got %v", err)
	}

	computedConst := root.Clone().(*Call)
	computedConst.Args[1] = root.Args[0].Clone()
	if err := Validate(computedConst, catalog.RateAudio); !errors.Is(err, ErrIllTyped) {
		t.Fatalf("expected opcode in constant slot to be rejected, got %v", err)
	}

	constInSignal := root.Clone().(*Call)
	constInSignal.Args[0] = &Const{Value: sampler.Real(1)}
	if err := Validate(constInSignal, catalog.RateAudio); !errors.Is(err, ErrIllTyped) {
		t.Fatalf("expected constant in audio slot to be rejected, got %v", err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	root := fixture(t)
	root.Args[0].(*Call).Args[3] = &Const{Value: sampler.Integer(4), Spec: "(0,2,4)"}

	data, err := Marshal(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !Equal(root, decoded) {
		t.Fatalf("round trip changed the tree: %s", data)
	}
	if err := Validate(decoded, catalog.RateAudio); err != nil {
		t.Fatalf("decoded tree invalid: %v", err)
	}

	for _, bad := range []string{`{}`, `{"op":{"name":"x"},"value":{"kind":"real"}}`, `{"value":{"kind":"real"},"args":[{}]}`, `nope`} {
		if _, err := Unmarshal([]byte(bad)); !errors.Is(err, ErrDecode) {
			t.Fatalf("input %s: expected ErrDecode, got %v", bad, err)
		}
	}
}
