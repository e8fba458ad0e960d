package tree

import (
	"encoding/json"
	"errors"
	"fmt"

	"dspgp/internal/catalog"
	"dspgp/internal/sampler"
)

var ErrDecode = errors.New("tree decode failed")

// record is the JSON shape of a node: exactly one of Op or Value is set.
type record struct {
	Op    *catalog.Descriptor `json:"op,omitempty"`
	Value *sampler.Value      `json:"value,omitempty"`
	Spec  string              `json:"spec,omitempty"`
	Args  []record            `json:"args,omitempty"`
}

// Marshal encodes a tree as JSON.
func Marshal(root Node) ([]byte, error) {
	rec, err := toRecord(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// Unmarshal decodes a tree encoded by Marshal.
func Unmarshal(data []byte) (Node, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return fromRecord(rec)
}

func toRecord(n Node) (record, error) {
	switch node := n.(type) {
	case *Const:
		value := node.Value
		return record{Value: &value, Spec: node.Spec}, nil
	case *Call:
		op := node.Op
		rec := record{Op: &op, Args: make([]record, 0, len(node.Args))}
		for _, child := range node.Args {
			childRec, err := toRecord(child)
			if err != nil {
				return record{}, err
			}
			rec.Args = append(rec.Args, childRec)
		}
		return rec, nil
	default:
		return record{}, fmt.Errorf("cannot encode node type %T", n)
	}
}

func fromRecord(rec record) (Node, error) {
	switch {
	case rec.Op != nil && rec.Value != nil:
		return nil, fmt.Errorf("%w: node has both opcode and value", ErrDecode)
	case rec.Value != nil:
		if len(rec.Args) > 0 {
			return nil, fmt.Errorf("%w: constant with children", ErrDecode)
		}
		return &Const{Value: *rec.Value, Spec: rec.Spec}, nil
	case rec.Op != nil:
		call := &Call{Op: *rec.Op, Args: make([]Node, 0, len(rec.Args))}
		for _, childRec := range rec.Args {
			child, err := fromRecord(childRec)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, child)
		}
		return call, nil
	default:
		return nil, fmt.Errorf("%w: node has neither opcode nor value", ErrDecode)
	}
}
