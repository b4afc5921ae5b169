package il

// Instr is one step of a relation or function body. Instruction lists run
// in order; ResultI and ReturnI terminate the list, everything else either
// extends the scope or guards what follows.
type Instr interface {
	instr()
	Region() Region
}

// InstrBase carries the region shared by every instruction node.
type InstrBase struct {
	At Region
}

func (b InstrBase) Region() Region { return b.At }

// Phantom identifies the branch an If or Case did NOT enter, together with
// the path conditions a test generator must satisfy to reach it.
type Phantom struct {
	PID   int
	Conds []PathCond
}

// PathCond is one conjunct of a phantom's path condition.
type PathCond interface {
	pathCond()
}

// ForallC requires E to hold on every iteration step.
type ForallC struct {
	E     Exp
	Iters []IterExp
}

// ExistsC requires E to hold on some iteration step.
type ExistsC struct {
	E     Exp
	Iters []IterExp
}

// PlainC requires E to hold.
type PlainC struct {
	E Exp
}

func (ForallC) pathCond() {}
func (ExistsC) pathCond() {}
func (PlainC) pathCond()  {}

// Guard decides whether a CaseI branch applies to the scrutinee.
type Guard interface {
	guard()
}

// BoolG is a literal guard, used for exhaustive splits.
type BoolG struct{ B bool }

// CmpG compares the scrutinee against E under the given operator.
type CmpG struct {
	Op    CmpOp
	OpTyp Typ
	E     Exp
}

// SubG holds when the scrutinee's dynamic type is a subtype of Typ:
// nominal for constructor values, structural for records.
type SubG struct{ Typ Typ }

// MatchG pattern-matches the scrutinee; bindings enter the branch body.
type MatchG struct{ Pat Pattern }

// MemG holds when the scrutinee is an element of the list E evaluates to.
type MemG struct{ E Exp }

func (BoolG) guard()  {}
func (CmpG) guard()   {}
func (SubG) guard()   {}
func (MatchG) guard() {}
func (MemG) guard()   {}

// Case is one branch of a CaseI.
type Case struct {
	Guard Guard
	Body  []Instr
}

// IfI evaluates Cond (universally over Iters, when present) and executes
// Body on true. On false the branch's phantom, if any, is logged and
// execution continues with the next instruction.
type IfI struct {
	InstrBase
	Cond    Exp
	Iters   []IterExp
	Body    []Instr
	Phantom *Phantom
}

// CaseI evaluates Scrut once and executes the body of the first case whose
// guard is satisfied. When no case matches, the phantom, if any, is logged
// and execution falls through.
type CaseI struct {
	InstrBase
	Scrut   Exp
	Cases   []Case
	Phantom *Phantom
}

// OtherwiseI executes Body iff the immediately preceding IfI or CaseI in
// the same instruction list entered none of its branches.
type OtherwiseI struct {
	InstrBase
	Body Instr
}

// LetI evaluates RHS and matches it against LHS read as a pattern; the
// bindings extend the current scope. A failed match is an error, not a
// fallthrough.
type LetI struct {
	InstrBase
	LHS   Exp
	RHS   Exp
	Iters []IterExp
}

// NotExp is a judgment notation: a relation's mixfix operator applied to
// argument expressions.
type NotExp struct {
	Op   MixOp
	Args []Exp
}

// RuleI invokes the relation Rel with the judgment Not: argument positions
// marked as inputs by the relation are evaluated and passed; output
// positions are matched as patterns against the relation's results.
type RuleI struct {
	InstrBase
	Rel   Id
	Not   NotExp
	Iters []IterExp
}

// ResultI produces the enclosing relation's outputs and terminates it.
type ResultI struct {
	InstrBase
	Exps []Exp
}

// ReturnI produces the enclosing function's value and terminates it.
type ReturnI struct {
	InstrBase
	Exp Exp
}

func (*IfI) instr()        {}
func (*CaseI) instr()      {}
func (*OtherwiseI) instr() {}
func (*LetI) instr()       {}
func (*RuleI) instr()      {}
func (*ResultI) instr()    {}
func (*ReturnI) instr()    {}
