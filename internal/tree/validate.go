package tree

import (
	"errors"
	"fmt"

	"dspgp/internal/catalog"
)

var ErrIllTyped = errors.New("ill-typed tree")

// Validate checks that root produces want and that every call is fully and
// correctly typed, with each constant-rate slot holding a Const leaf.
func Validate(root Node, want catalog.Rate) error {
	return validate(root, want, "root")
}

func validate(n Node, want catalog.Rate, path string) error {
	switch node := n.(type) {
	case *Const:
		if want != catalog.RateConstant {
			return fmt.Errorf("%w: %s: constant in %s-rate slot", ErrIllTyped, path, want)
		}
		return nil
	case *Call:
		if want == catalog.RateConstant {
			return fmt.Errorf("%w: %s: opcode %s in constant-rate slot", ErrIllTyped, path, node.Op.Name)
		}
		if node.Op.Returns != want {
			return fmt.Errorf("%w: %s: opcode %s returns %s, slot expects %s", ErrIllTyped, path, node.Op.Name, node.Op.Returns, want)
		}
		if len(node.Args) != len(node.Op.Args) {
			return fmt.Errorf("%w: %s: opcode %s has %d children for %d arguments", ErrIllTyped, path, node.Op.Name, len(node.Args), len(node.Op.Args))
		}
		for i, arg := range node.Op.Args {
			if err := validate(node.Args[i], arg.Rate, fmt.Sprintf("%s/%s[%d]", path, node.Op.Name, i)); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("%w: %s: missing node", ErrIllTyped, path)
	default:
		return fmt.Errorf("%w: %s: unknown node type %T", ErrIllTyped, path, n)
	}
}
