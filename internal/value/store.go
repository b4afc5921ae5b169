package value

import (
	"fmt"

	"p4spectec/internal/il"
)

// Node is one entry of the value graph: a registered value plus the vids
// read to produce it. Deps only ever point at earlier vids, so the graph
// is acyclic by construction.
type Node struct {
	V    *Value
	Deps []uint64
}

// Store is the single factory for runtime values. Every constructor
// assigns a fresh vid and appends the value to the graph; an evaluation
// owns exactly one Store and never shares it.
type Store struct {
	nodes []Node // index+1 == vid
}

// NewStore returns an empty store. Vids start at 1; 0 means "no value".
func NewStore() *Store { return &Store{} }

func (s *Store) register(v *Value) *Value {
	v.vid = uint64(len(s.nodes) + 1)
	s.nodes = append(s.nodes, Node{V: v})
	return v
}

// Size is the number of values allocated so far.
func (s *Store) Size() int { return len(s.nodes) }

// Node returns the graph entry for a vid.
func (s *Store) Node(vid uint64) (Node, bool) {
	if vid == 0 || vid > uint64(len(s.nodes)) {
		return Node{}, false
	}
	return s.nodes[vid-1], true
}

// Link records that the value vid was produced by reading deps. Links are
// append-only; re-linking extends the dependency set. Forward links are
// rejected to keep the graph a DAG.
func (s *Store) Link(vid uint64, deps ...uint64) error {
	if vid == 0 || vid > uint64(len(s.nodes)) {
		return fmt.Errorf("link: unknown vid %d", vid)
	}
	for _, d := range deps {
		if d >= vid {
			return fmt.Errorf("link: dependency %d not older than %d", d, vid)
		}
		if d == 0 {
			continue
		}
		s.nodes[vid-1].Deps = append(s.nodes[vid-1].Deps, d)
	}
	return nil
}

// Bool allocates a boolean.
func (s *Store) Bool(b bool) *Value {
	return s.register(&Value{kind: BoolK, b: b, typ: il.BoolT{}})
}

// Num allocates a number; the type note records its kind.
func (s *Store) Num(n il.Num) *Value {
	return s.register(&Value{kind: NumK, num: n, typ: il.NumT{Kind: n.Kind(), Width: n.Width()}})
}

// Text allocates a text value.
func (s *Store) Text(t string) *Value {
	return s.register(&Value{kind: TextK, text: t, typ: il.TextT{}})
}

// List allocates a list with the given type note (the list's own type).
func (s *Store) List(elems []*Value, typ il.Typ) *Value {
	return s.register(&Value{kind: ListK, elems: elems, typ: typ})
}

// Tuple allocates a tuple.
func (s *Store) Tuple(elems []*Value, typ il.Typ) *Value {
	return s.register(&Value{kind: TupleK, elems: elems, typ: typ})
}

// Opt allocates an optional; a nil payload is the absent option.
func (s *Store) Opt(payload *Value, typ il.Typ) *Value {
	return s.register(&Value{kind: OptK, opt: payload, typ: typ})
}

// Case allocates a constructor application. When the type note is a
// variant, the operator must be one of its constructors with matching
// arity; this is the CaseV well-formedness invariant.
func (s *Store) Case(op il.MixOp, args []*Value, typ il.Typ) (*Value, error) {
	if variant, ok := typ.(il.VariantT); ok {
		found := false
		for _, c := range variant.Cases {
			if c.Op.Equal(op) {
				if len(c.Args) != len(args) {
					return nil, fmt.Errorf("constructor %s: %d arguments, declared arity %d", op, len(args), len(c.Args))
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("constructor %s is not a case of %s", op, typ)
		}
	} else if op.Arity() != len(args) {
		return nil, fmt.Errorf("constructor %s: %d arguments for %d holes", op, len(args), op.Arity())
	}
	return s.register(&Value{kind: CaseK, op: op, elems: args, typ: typ}), nil
}

// Struct allocates a record. When the type note is a struct type, the
// fields must be exactly the declared atoms in declaration order.
func (s *Store) Struct(fields []Field, typ il.Typ) (*Value, error) {
	if st, ok := typ.(il.StructT); ok {
		if len(fields) != len(st.Fields) {
			return nil, fmt.Errorf("record: %d fields, declared %d", len(fields), len(st.Fields))
		}
		for i := range fields {
			if fields[i].Atom != st.Fields[i].Atom {
				return nil, fmt.Errorf("record: field %d is %q, declared %q", i, fields[i].Atom, st.Fields[i].Atom)
			}
		}
	}
	return s.register(&Value{kind: StructK, fields: fields, typ: typ}), nil
}

// Func allocates a reified function reference.
func (s *Store) Func(name string) *Value {
	return s.register(&Value{kind: FuncK, fn: name, typ: il.FuncT{}})
}
