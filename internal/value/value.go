// Package value implements the runtime value model: tagged values with
// stable identities, the single factory that allocates them, and the
// append-only value graph the dependency tracker reads. Identity (the vid)
// is bookkeeping only; equality is structural and ignores vids, regions,
// and type notes.
package value

import (
	"fmt"
	"strings"

	"p4spectec/internal/il"
)

// Kind is the dynamic tag of a value.
type Kind uint8

const (
	BoolK Kind = iota
	NumK
	TextK
	ListK
	TupleK
	OptK
	CaseK
	StructK
	FuncK
)

func (k Kind) String() string {
	switch k {
	case BoolK:
		return "bool"
	case NumK:
		return "num"
	case TextK:
		return "text"
	case ListK:
		return "list"
	case TupleK:
		return "tuple"
	case OptK:
		return "opt"
	case CaseK:
		return "case"
	case StructK:
		return "struct"
	case FuncK:
		return "func"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// MismatchError reports an accessor applied to a value of the wrong kind.
type MismatchError struct {
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

// Field is one field of a record value.
type Field struct {
	Atom string
	V    *Value
}

// Value is a runtime value. Values are created only through a Store, which
// assigns the vid and registers the value in the graph; the payload is
// immutable afterwards.
type Value struct {
	kind   Kind
	b      bool
	num    il.Num
	text   string
	elems  []*Value // list elements, tuple elements, or case arguments
	opt    *Value   // nil is the absent option
	op     il.MixOp
	fields []Field
	fn     string

	vid uint64
	typ il.Typ
}

// Kind reports the dynamic tag.
func (v *Value) Kind() Kind { return v.kind }

// VID is the value's identity in the value graph.
func (v *Value) VID() uint64 { return v.vid }

// Typ is the declared IL type note, possibly nil for synthesized values.
func (v *Value) Typ() il.Typ { return v.typ }

// AsBool views the value as a boolean.
func (v *Value) AsBool() (bool, error) {
	if v.kind != BoolK {
		return false, &MismatchError{Expected: "bool", Actual: v.kind.String()}
	}
	return v.b, nil
}

// AsNum views the value as a number.
func (v *Value) AsNum() (il.Num, error) {
	if v.kind != NumK {
		return il.Num{}, &MismatchError{Expected: "num", Actual: v.kind.String()}
	}
	return v.num, nil
}

// AsText views the value as text.
func (v *Value) AsText() (string, error) {
	if v.kind != TextK {
		return "", &MismatchError{Expected: "text", Actual: v.kind.String()}
	}
	return v.text, nil
}

// AsList views the value as a list. Callers must not mutate the result.
func (v *Value) AsList() ([]*Value, error) {
	if v.kind != ListK {
		return nil, &MismatchError{Expected: "list", Actual: v.kind.String()}
	}
	return v.elems, nil
}

// AsTuple views the value as a tuple.
func (v *Value) AsTuple() ([]*Value, error) {
	if v.kind != TupleK {
		return nil, &MismatchError{Expected: "tuple", Actual: v.kind.String()}
	}
	return v.elems, nil
}

// AsOpt views the value as an optional; the payload is nil when absent.
func (v *Value) AsOpt() (*Value, error) {
	if v.kind != OptK {
		return nil, &MismatchError{Expected: "opt", Actual: v.kind.String()}
	}
	return v.opt, nil
}

// AsCase views the value as a constructor application of the expected
// operator and returns its arguments.
func (v *Value) AsCase(op il.MixOp) ([]*Value, error) {
	if v.kind != CaseK {
		return nil, &MismatchError{Expected: "case " + op.String(), Actual: v.kind.String()}
	}
	if !v.op.Equal(op) {
		return nil, &MismatchError{Expected: "case " + op.String(), Actual: "case " + v.op.String()}
	}
	return v.elems, nil
}

// CaseOp returns the operator of a constructor value.
func (v *Value) CaseOp() (il.MixOp, error) {
	if v.kind != CaseK {
		return nil, &MismatchError{Expected: "case", Actual: v.kind.String()}
	}
	return v.op, nil
}

// CaseArgs returns the arguments of a constructor value.
func (v *Value) CaseArgs() ([]*Value, error) {
	if v.kind != CaseK {
		return nil, &MismatchError{Expected: "case", Actual: v.kind.String()}
	}
	return v.elems, nil
}

// AsStruct views the value as a record and returns its fields in
// declaration order.
func (v *Value) AsStruct() ([]Field, error) {
	if v.kind != StructK {
		return nil, &MismatchError{Expected: "struct", Actual: v.kind.String()}
	}
	return v.fields, nil
}

// StructField projects a record field by atom.
func (v *Value) StructField(atom string) (*Value, error) {
	fields, err := v.AsStruct()
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Atom == atom {
			return f.V, nil
		}
	}
	return nil, &MismatchError{Expected: "struct with field " + atom, Actual: "struct"}
}

// AsFunc views the value as a reified function reference.
func (v *Value) AsFunc() (string, error) {
	if v.kind != FuncK {
		return "", &MismatchError{Expected: "func", Actual: v.kind.String()}
	}
	return v.fn, nil
}

// Equal compares two values structurally: payloads only, never vids, type
// notes, or regions.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case BoolK:
		return a.b == b.b
	case NumK:
		return a.num.Equal(b.num)
	case TextK:
		return a.text == b.text
	case ListK, TupleK:
		return elemsEqual(a.elems, b.elems)
	case OptK:
		if a.opt == nil || b.opt == nil {
			return a.opt == nil && b.opt == nil
		}
		return Equal(a.opt, b.opt)
	case CaseK:
		return a.op.Equal(b.op) && elemsEqual(a.elems, b.elems)
	case StructK:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Atom != b.fields[i].Atom || !Equal(a.fields[i].V, b.fields[i].V) {
				return false
			}
		}
		return true
	case FuncK:
		return a.fn == b.fn
	default:
		return false
	}
}

func elemsEqual(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// String renders a value for diagnostics and phantom reports.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.kind {
	case BoolK:
		return fmt.Sprintf("%t", v.b)
	case NumK:
		return v.num.String()
	case TextK:
		return fmt.Sprintf("%q", v.text)
	case ListK:
		return "[" + joinValues(v.elems) + "]"
	case TupleK:
		return "(" + joinValues(v.elems) + ")"
	case OptK:
		if v.opt == nil {
			return "none"
		}
		return "some(" + v.opt.String() + ")"
	case CaseK:
		if len(v.elems) == 0 {
			return v.op.String()
		}
		return v.op.String() + "(" + joinValues(v.elems) + ")"
	case StructK:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			parts[i] = f.Atom + " " + f.V.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case FuncK:
		return "$" + v.fn
	default:
		return "<invalid>"
	}
}

func joinValues(vs []*Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
