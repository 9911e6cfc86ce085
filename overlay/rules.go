package overlay

import (
	"fmt"
	"maps"

	"github.com/google/cel-go/cel"
)

// Rule applies a patch to every node matching a CEL expression. The
// expression sees one variable, node, a map with the keys guid, id, type,
// depth, ancestors and metadata. For example:
//
//	node.type == "Service" && node.depth > 0
type Rule struct {
	Name  string `json:"name" yaml:"name"`
	Expr  string `json:"expr" yaml:"expr"`
	Patch Patch  `json:"patch" yaml:"patch"`

	program cel.Program
}

var ruleEnv = func() *cel.Env {
	env, err := cel.NewEnv(cel.Variable("node", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		panic(fmt.Sprintf("overlay: building rule environment: %v", err))
	}
	return env
}()

// CompileRule parses and type-checks expr.
func CompileRule(name, expr string, patch Patch) (Rule, error) {
	ast, iss := ruleEnv.Compile(expr)
	if err := iss.Err(); err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return Rule{}, fmt.Errorf("compile rule %q: expression yields %s, want bool", name, t)
	}
	prg, err := ruleEnv.Program(ast)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return Rule{Name: name, Expr: expr, Patch: patch.clone(), program: prg}, nil
}

// Matches evaluates the rule against q. Evaluation errors, such as a missing
// metadata key, count as no match.
func (r Rule) Matches(q NodeQuery) bool {
	if r.program == nil {
		return false
	}
	out, _, err := r.program.Eval(map[string]any{"node": q.activation()})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (q NodeQuery) activation() map[string]any {
	ancestors := make([]any, len(q.AncestorIDs))
	for i, a := range q.AncestorIDs {
		ancestors[i] = a
	}
	meta := maps.Clone(q.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"guid":      q.NodeID,
		"id":        q.DisplayID,
		"type":      q.Type,
		"depth":     int64(len(q.AncestorIDs)),
		"ancestors": ancestors,
		"metadata":  meta,
	}
}
