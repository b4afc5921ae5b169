package il

import "fmt"

// Def is a top-level definition of a loaded spec.
type Def interface {
	def()
	Name() Id
}

// TypD declares a type.
type TypD struct {
	Id      Id
	TParams []Id
	Typ     Typ
}

// RelD declares an inductive relation. Op is the judgment's mixfix
// operator; InputIdxs lists the argument positions the caller supplies,
// every other position is an output produced by executing Instrs. Args
// holds one expression per operator hole: input positions are read as
// patterns against the caller's values, output positions describe the
// shape ResultI values are matched against.
type RelD struct {
	Id        Id
	Op        MixOp
	InputIdxs []int
	Args      []Exp
	Instrs    []Instr
}

// DecD declares a deterministic function. Params are read as patterns
// against the call's argument values.
type DecD struct {
	Id      Id
	TParams []Id
	Params  []Exp
	Instrs  []Instr
}

func (TypD) def() {}
func (RelD) def() {}
func (DecD) def() {}

func (d TypD) Name() Id { return d.Id }
func (d RelD) Name() Id { return d.Id }
func (d DecD) Name() Id { return d.Id }

// IsInput reports whether argument position i of the relation is an input.
func (d RelD) IsInput(i int) bool {
	for _, idx := range d.InputIdxs {
		if idx == i {
			return true
		}
	}
	return false
}

// OutputIdxs lists the argument positions not marked as inputs, in order.
func (d RelD) OutputIdxs() []int {
	var out []int
	for i := range d.Args {
		if !d.IsInput(i) {
			out = append(out, i)
		}
	}
	return out
}

// Spec is a loaded IL program: the definitions in elaboration order plus
// name indexes. The table is immutable once NewSpec has built it.
type Spec struct {
	Defs []Def

	typs map[string]*TypD
	rels map[string]*RelD
	decs map[string]*DecD
}

// NewSpec indexes defs by name. Duplicate names within a namespace fail.
func NewSpec(defs []Def) (*Spec, error) {
	s := &Spec{
		Defs: defs,
		typs: make(map[string]*TypD),
		rels: make(map[string]*RelD),
		decs: make(map[string]*DecD),
	}
	for i := range defs {
		switch d := defs[i].(type) {
		case TypD:
			if _, dup := s.typs[d.Id.Name]; dup {
				return nil, fmt.Errorf("duplicate type definition %q", d.Id.Name)
			}
			dc := d
			s.typs[d.Id.Name] = &dc
		case RelD:
			if _, dup := s.rels[d.Id.Name]; dup {
				return nil, fmt.Errorf("duplicate relation definition %q", d.Id.Name)
			}
			if len(d.Args) != d.Op.Arity() {
				return nil, fmt.Errorf("relation %q: %d arguments for operator %s with %d holes",
					d.Id.Name, len(d.Args), d.Op, d.Op.Arity())
			}
			dc := d
			s.rels[d.Id.Name] = &dc
		case DecD:
			if _, dup := s.decs[d.Id.Name]; dup {
				return nil, fmt.Errorf("duplicate function definition %q", d.Id.Name)
			}
			dc := d
			s.decs[d.Id.Name] = &dc
		default:
			return nil, fmt.Errorf("unknown definition kind %T", d)
		}
	}
	return s, nil
}

// Typ looks up a type definition.
func (s *Spec) Typ(name string) (*TypD, bool) {
	d, ok := s.typs[name]
	return d, ok
}

// Rel looks up a relation definition.
func (s *Spec) Rel(name string) (*RelD, bool) {
	d, ok := s.rels[name]
	return d, ok
}

// Dec looks up a function definition.
func (s *Spec) Dec(name string) (*DecD, bool) {
	d, ok := s.decs[name]
	return d, ok
}
