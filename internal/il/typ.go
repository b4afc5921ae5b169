package il

import (
	"fmt"
	"strings"
)

// Typ is the structural type language of the IL. Types appear as notes on
// expressions and values and as payloads of SubG guards; the interpreter
// consults them for constructor arity, record field sets, and subtype
// checks, never for evaluation order.
type Typ interface {
	typ()
	String() string
}

// BoolT is the boolean type.
type BoolT struct{}

// NumT is a numeric type of a given kind; for bit vectors it also records
// the width.
type NumT struct {
	Kind  NumKind
	Width uint // BitsK only
}

// TextT is the text type.
type TextT struct{}

// ListT is a homogeneous finite sequence.
type ListT struct{ Elem Typ }

// TupleT is a fixed-arity heterogeneous product.
type TupleT struct{ Elems []Typ }

// OptT is an optional.
type OptT struct{ Elem Typ }

// VarT is a reference to a declared type, possibly applied to arguments.
type VarT struct {
	Id   Id
	Args []Typ
}

// StructT is a record type: atom-keyed fields in declaration order.
type StructT struct{ Fields []FieldTyp }

// FieldTyp is one field of a record type.
type FieldTyp struct {
	Atom string
	Typ  Typ
}

// VariantT is a sum of mixfix constructors.
type VariantT struct{ Cases []CaseTyp }

// CaseTyp is one constructor of a variant: its operator and the types of
// its argument holes.
type CaseTyp struct {
	Op   MixOp
	Args []Typ
}

// IterT lifts a type over an iteration: IterT(t, opt) is "t?" and
// IterT(t, list) is "t*".
type IterT struct {
	Elem Typ
	Iter Iter
}

// FuncT is the type of a reified function reference.
type FuncT struct{}

func (BoolT) typ()    {}
func (NumT) typ()     {}
func (TextT) typ()    {}
func (ListT) typ()    {}
func (TupleT) typ()   {}
func (OptT) typ()     {}
func (VarT) typ()     {}
func (StructT) typ()  {}
func (VariantT) typ() {}
func (IterT) typ()    {}
func (FuncT) typ()    {}

func (BoolT) String() string { return "bool" }

func (t NumT) String() string {
	if t.Kind == BitsK {
		return fmt.Sprintf("bits(%d)", t.Width)
	}
	return t.Kind.String()
}

func (TextT) String() string { return "text" }

func (t ListT) String() string { return typStr(t.Elem) + "*" }

func (t TupleT) String() string {
	elems := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = typStr(e)
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

func (t OptT) String() string { return typStr(t.Elem) + "?" }

func (t VarT) String() string {
	if len(t.Args) == 0 {
		return t.Id.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = typStr(a)
	}
	return t.Id.Name + "<" + strings.Join(args, ", ") + ">"
}

func (t StructT) String() string {
	fields := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.Atom + " " + typStr(f.Typ)
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

func (t VariantT) String() string {
	cases := make([]string, len(t.Cases))
	for i, c := range t.Cases {
		cases[i] = c.Op.String()
	}
	return "|" + strings.Join(cases, " | ") + "|"
}

func (t IterT) String() string {
	if t.Iter == OptIter {
		return typStr(t.Elem) + "?"
	}
	return typStr(t.Elem) + "*"
}

func (FuncT) String() string { return "func" }

func typStr(t Typ) string {
	if t == nil {
		return "_"
	}
	return t.String()
}

// TypEqual compares types structurally, ignoring regions on embedded Ids.
func TypEqual(a, b Typ) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case BoolT:
		_, ok := b.(BoolT)
		return ok
	case NumT:
		y, ok := b.(NumT)
		return ok && x.Kind == y.Kind && x.Width == y.Width
	case TextT:
		_, ok := b.(TextT)
		return ok
	case ListT:
		y, ok := b.(ListT)
		return ok && TypEqual(x.Elem, y.Elem)
	case TupleT:
		y, ok := b.(TupleT)
		return ok && typsEqual(x.Elems, y.Elems)
	case OptT:
		y, ok := b.(OptT)
		return ok && TypEqual(x.Elem, y.Elem)
	case VarT:
		y, ok := b.(VarT)
		return ok && x.Id.Name == y.Id.Name && typsEqual(x.Args, y.Args)
	case StructT:
		y, ok := b.(StructT)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Atom != y.Fields[i].Atom || !TypEqual(x.Fields[i].Typ, y.Fields[i].Typ) {
				return false
			}
		}
		return true
	case VariantT:
		y, ok := b.(VariantT)
		if !ok || len(x.Cases) != len(y.Cases) {
			return false
		}
		for i := range x.Cases {
			if !x.Cases[i].Op.Equal(y.Cases[i].Op) || !typsEqual(x.Cases[i].Args, y.Cases[i].Args) {
				return false
			}
		}
		return true
	case IterT:
		y, ok := b.(IterT)
		return ok && x.Iter == y.Iter && TypEqual(x.Elem, y.Elem)
	case FuncT:
		_, ok := b.(FuncT)
		return ok
	default:
		return false
	}
}

func typsEqual(a, b []Typ) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !TypEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
