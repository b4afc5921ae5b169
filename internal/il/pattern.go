package il

// Pattern is a structural pattern matched against runtime values. Binders
// are linear: the elaborator rejects patterns that bind the same name
// twice, and the matcher may assume it.
type Pattern interface {
	pat()
	Region() Region
}

// PatBase carries the region shared by every pattern node.
type PatBase struct {
	At Region
}

func (b PatBase) Region() Region { return b.At }

// WildP matches anything and binds nothing.
type WildP struct{ PatBase }

// VarP matches anything and binds the whole value.
type VarP struct {
	PatBase
	Id Id
}

// BoolP matches a boolean literal.
type BoolP struct {
	PatBase
	B bool
}

// NumP matches a numeric literal.
type NumP struct {
	PatBase
	N Num
}

// TextP matches a text literal.
type TextP struct {
	PatBase
	S string
}

// CaseP matches a constructor application with the same operator, then the
// argument holes pointwise.
type CaseP struct {
	PatBase
	Op   MixOp
	Args []Pattern
}

// TupleP matches a tuple of the same arity pointwise.
type TupleP struct {
	PatBase
	Elems []Pattern
}

// ListP matches a list long enough to cover Prefix and Suffix; Rest, when
// present, binds the middle slice.
type ListP struct {
	PatBase
	Prefix []Pattern
	Rest   *Id
	Suffix []Pattern
}

// OptP matches an optional: a nil Elem matches the absent option, a
// non-nil Elem matches a present option whose payload matches Elem.
type OptP struct {
	PatBase
	Elem Pattern
}

func (*WildP) pat()  {}
func (*VarP) pat()   {}
func (*BoolP) pat()  {}
func (*NumP) pat()   {}
func (*TextP) pat()  {}
func (*CaseP) pat()  {}
func (*TupleP) pat() {}
func (*ListP) pat()  {}
func (*OptP) pat()   {}
