// Package codegen renders expression trees as Csound orchestra and score
// text.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"dspgp/internal/catalog"
	"dspgp/internal/tree"
)

const (
	// OutputVar receives the value of the root node.
	OutputVar = "aout__"

	defaultLocal = "local"
)

// Header is the orchestra preamble shared by every rendered program.
const Header = `sr = 44100
ksmps = 32
nchnls = 1
0dbfs = 1`

// registry hands out unique local names: the first use of a name is bare,
// later uses get _1, _2 and so on.
type registry map[string]int

func (r registry) name(base string) string {
	if base == "" {
		base = defaultLocal
	}
	n, seen := r[base]
	r[base] = n + 1
	if !seen {
		return base
	}
	return base + "_" + strconv.Itoa(n)
}

// Serialize renders root as a single instrument. Children are computed
// before their parent; every opcode child is bound to a local variable
// named after the argument it fills, prefixed by the argument rate.
func Serialize(root tree.Node) string {
	var stmts []string
	locals := registry{}
	stmts = append(stmts, "instr 1")
	stmts = appendAssignment(stmts, locals, OutputVar, root)
	stmts = append(stmts, "out "+OutputVar, "endin")
	return strings.Join(stmts, "\n")
}

func appendAssignment(stmts []string, locals registry, dst string, n tree.Node) []string {
	switch node := n.(type) {
	case *tree.Const:
		return append(stmts, dst+" = "+node.Value.String())
	case *tree.Call:
		stmts, call := appendCall(stmts, locals, node)
		return append(stmts, dst+" "+call)
	}
	return stmts
}

func appendCall(stmts []string, locals registry, call *tree.Call) ([]string, string) {
	args := make([]string, len(call.Args))
	for i, child := range call.Args {
		switch node := child.(type) {
		case *tree.Const:
			args[i] = node.Value.String()
		case *tree.Call:
			arg := call.Op.Args[i]
			local := string(arg.Rate.Char()) + locals.name(arg.Name)
			stmts = appendAssignment(stmts, locals, local, node)
			args[i] = local
		}
	}
	if len(args) == 0 {
		return stmts, call.Op.Name
	}
	return stmts, call.Op.Name + " " + strings.Join(args, ", ")
}

// Program is a renderable orchestra and score pair.
type Program struct {
	Orchestra string
	Score     string
}

// Assemble wraps a serialized instrument with the header and wavetable
// declarations, and builds a score playing it for duration seconds.
func Assemble(root tree.Node, wavetables []catalog.Wavetable, duration float64) Program {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for _, table := range wavetables {
		b.WriteString(table.Declaration)
		b.WriteByte('\n')
	}
	if len(wavetables) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(Serialize(root))
	b.WriteByte('\n')
	return Program{
		Orchestra: b.String(),
		Score:     Score(duration),
	}
}

// Score plays instrument 1 from time zero for duration seconds.
func Score(duration float64) string {
	return fmt.Sprintf("i1 0 %s\n", strconv.FormatFloat(duration, 'f', -1, 64))
}
