package il

// Exp is a pure IL expression. Every node carries its source region and the
// type the elaborator assigned to it (the "note"); the note is advisory at
// runtime except where the dynamic semantics dispatch on it (operator
// expressions) or need declared structure (constructors, records).
type Exp interface {
	exp()
	Region() Region
	Note() Typ
}

// ExpBase carries the region and type note shared by every expression node.
type ExpBase struct {
	At  Region
	Typ Typ
}

func (b ExpBase) Region() Region { return b.At }
func (b ExpBase) Note() Typ      { return b.Typ }

// UnOp is a unary operator.
type UnOp uint8

const (
	NotOp UnOp = iota
	NegOp
)

func (op UnOp) String() string {
	switch op {
	case NotOp:
		return "not"
	default:
		return "neg"
	}
}

// BinOp is a binary operator. Boolean connectives short-circuit.
type BinOp uint8

const (
	AndOp BinOp = iota
	OrOp
	ImplOp
	AddOp
	SubOp
	MulOp
	DivOp
	ModOp
	CatTextOp
)

func (op BinOp) String() string {
	switch op {
	case AndOp:
		return "and"
	case OrOp:
		return "or"
	case ImplOp:
		return "impl"
	case AddOp:
		return "add"
	case SubOp:
		return "sub"
	case MulOp:
		return "mul"
	case DivOp:
		return "div"
	case ModOp:
		return "mod"
	case CatTextOp:
		return "cat"
	default:
		return "binop"
	}
}

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	EqOp CmpOp = iota
	NeOp
	LtOp
	GtOp
	LeOp
	GeOp
)

func (op CmpOp) String() string {
	switch op {
	case EqOp:
		return "eq"
	case NeOp:
		return "ne"
	case LtOp:
		return "lt"
	case GtOp:
		return "gt"
	case LeOp:
		return "le"
	default:
		return "ge"
	}
}

// BoolE is a boolean literal.
type BoolE struct {
	ExpBase
	B bool
}

// NumE is a numeric literal.
type NumE struct {
	ExpBase
	N Num
}

// TextE is a text literal.
type TextE struct {
	ExpBase
	S string
}

// VarE is a variable reference.
type VarE struct {
	ExpBase
	Id Id
}

// UnE applies a unary operator; OpTyp is the dispatch type.
type UnE struct {
	ExpBase
	Op    UnOp
	OpTyp Typ
	E     Exp
}

// BinE applies a binary operator; OpTyp is the dispatch type.
type BinE struct {
	ExpBase
	Op    BinOp
	OpTyp Typ
	L, R  Exp
}

// CmpE compares two expressions; OpTyp is the dispatch type.
type CmpE struct {
	ExpBase
	Op    CmpOp
	OpTyp Typ
	L, R  Exp
}

// TupleE builds a tuple.
type TupleE struct {
	ExpBase
	Elems []Exp
}

// CaseE applies a mixfix constructor.
type CaseE struct {
	ExpBase
	Op   MixOp
	Args []Exp
}

// OptE builds an optional; a nil E is the absent option.
type OptE struct {
	ExpBase
	E Exp
}

// ListE builds a list.
type ListE struct {
	ExpBase
	Elems []Exp
}

// FieldExp is one field of a record literal.
type FieldExp struct {
	Atom string
	E    Exp
}

// StrE builds a record; fields must be exactly the declared atoms, in
// declaration order.
type StrE struct {
	ExpBase
	Fields []FieldExp
}

// DotE projects a record field.
type DotE struct {
	ExpBase
	E    Exp
	Atom string
}

// ProjE projects a tuple element by index.
type ProjE struct {
	ExpBase
	E   Exp
	Idx int
}

// HeadE takes the first element of a list; empty lists fail.
type HeadE struct {
	ExpBase
	E Exp
}

// TailE drops the first element of a list; empty lists fail.
type TailE struct {
	ExpBase
	E Exp
}

// LenE is the length of a list.
type LenE struct {
	ExpBase
	E Exp
}

// MemE tests list membership; comparison is structural.
type MemE struct {
	ExpBase
	Elem Exp
	List Exp
}

// CatE concatenates two lists of the same element type.
type CatE struct {
	ExpBase
	L, R Exp
}

// IterE evaluates E once per iteration step, with Vars bound pointwise from
// their lifted values in the enclosing scope. Opt iteration produces an
// optional, list iteration a list in step order.
type IterE struct {
	ExpBase
	E    Exp
	Iter Iter
	Vars []Id
}

// CallE invokes a declared function or a $-builtin.
type CallE struct {
	ExpBase
	Id   Id
	Args []Exp
}

// Arm is one branch of a case expression.
type Arm struct {
	Pat Pattern
	E   Exp
}

// MatchE is a case expression: the scrutinee is evaluated once and arms are
// tried in source order; the first matching arm's body is the result.
type MatchE struct {
	ExpBase
	Scrut Exp
	Arms  []Arm
}

// SubE tests whether the dynamic type of E is a subtype of Typ.
type SubE struct {
	ExpBase
	E   Exp
	Typ Typ
}

func (*BoolE) exp()  {}
func (*NumE) exp()   {}
func (*TextE) exp()  {}
func (*VarE) exp()   {}
func (*UnE) exp()    {}
func (*BinE) exp()   {}
func (*CmpE) exp()   {}
func (*TupleE) exp() {}
func (*CaseE) exp()  {}
func (*OptE) exp()   {}
func (*ListE) exp()  {}
func (*StrE) exp()   {}
func (*DotE) exp()   {}
func (*ProjE) exp()  {}
func (*HeadE) exp()  {}
func (*TailE) exp()  {}
func (*LenE) exp()   {}
func (*MemE) exp()   {}
func (*CatE) exp()   {}
func (*IterE) exp()  {}
func (*CallE) exp()  {}
func (*MatchE) exp() {}
func (*SubE) exp()   {}
