package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"p4spectec/internal/il"
)

// Shared builders keeping the IL trees in tests readable.

var (
	someOp = il.MixOp{{"Some"}, {}}
	noneOp = il.MixOp{{"None"}}
	pairOp = il.MixOp{{"Pair"}, {","}, {}}
)

var natT = il.NumT{Kind: il.NatK}

func natE(n uint64) il.Exp {
	return &il.NumE{ExpBase: il.ExpBase{Typ: natT}, N: il.Nat(n)}
}

func boolE(b bool) il.Exp {
	return &il.BoolE{ExpBase: il.ExpBase{Typ: il.BoolT{}}, B: b}
}

func textE(s string) il.Exp {
	return &il.TextE{ExpBase: il.ExpBase{Typ: il.TextT{}}, S: s}
}

func varE(name string) il.Exp {
	return &il.VarE{Id: il.Id{Name: name}}
}

func listE(elems ...il.Exp) il.Exp {
	return &il.ListE{ExpBase: il.ExpBase{Typ: il.ListT{Elem: natT}}, Elems: elems}
}

func caseE(op il.MixOp, args ...il.Exp) il.Exp {
	return &il.CaseE{Op: op, Args: args}
}

func binE(op il.BinOp, l, r il.Exp) il.Exp {
	return &il.BinE{Op: op, OpTyp: natT, L: l, R: r}
}

func cmpE(op il.CmpOp, l, r il.Exp) il.Exp {
	return &il.CmpE{ExpBase: il.ExpBase{Typ: il.BoolT{}}, Op: op, OpTyp: natT, L: l, R: r}
}

func callE(name string, args ...il.Exp) il.Exp {
	return &il.CallE{Id: il.Id{Name: name}, Args: args}
}

func varP(name string) il.Pattern { return &il.VarP{Id: il.Id{Name: name}} }

func newCtx(t *testing.T, defs ...il.Def) *Context {
	t.Helper()
	spec, err := il.NewSpec(defs)
	require.NoError(t, err)
	return NewContext(spec, Options{})
}
