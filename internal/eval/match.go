package eval

import (
	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// Bindings collects the variables a successful match produced, in binding
// order. The matcher is total: it either produces bindings or reports no
// match, never an error and never divergence.
type Bindings struct {
	names []il.Id
	vals  []*value.Value
}

func (b *Bindings) add(id il.Id, v *value.Value) {
	b.names = append(b.names, id)
	b.vals = append(b.vals, v)
}

// Len is the number of bound variables.
func (b *Bindings) Len() int { return len(b.names) }

// Apply merges the bindings into the context's current scope.
func (b *Bindings) Apply(ctx *Context) {
	for i, id := range b.names {
		ctx.Bind(id, b.vals[i].Typ(), b.vals[i])
	}
}

// Each visits the bindings in binding order.
func (b *Bindings) Each(f func(id il.Id, v *value.Value)) {
	for i, id := range b.names {
		f(id, b.vals[i])
	}
}

// Match matches a value against a pattern. On success the returned
// bindings hold every binder of the pattern; on failure the bindings are
// nil. Matching compares payloads structurally, never vids or regions.
func Match(ctx *Context, pat il.Pattern, v *value.Value) (*Bindings, bool) {
	b := &Bindings{}
	if !match(ctx, pat, v, b) {
		return nil, false
	}
	return b, true
}

func match(ctx *Context, pat il.Pattern, v *value.Value, b *Bindings) bool {
	switch p := pat.(type) {
	case *il.WildP:
		return true
	case *il.VarP:
		b.add(p.Id, v)
		return true
	case *il.BoolP:
		got, err := v.AsBool()
		return err == nil && got == p.B
	case *il.NumP:
		got, err := v.AsNum()
		return err == nil && got.Equal(p.N)
	case *il.TextP:
		got, err := v.AsText()
		return err == nil && got == p.S
	case *il.CaseP:
		args, err := v.AsCase(p.Op)
		if err != nil || len(args) != len(p.Args) {
			return false
		}
		for i, sub := range p.Args {
			if !match(ctx, sub, args[i], b) {
				return false
			}
		}
		return true
	case *il.TupleP:
		elems, err := v.AsTuple()
		if err != nil || len(elems) != len(p.Elems) {
			return false
		}
		for i, sub := range p.Elems {
			if !match(ctx, sub, elems[i], b) {
				return false
			}
		}
		return true
	case *il.ListP:
		elems, err := v.AsList()
		if err != nil || len(elems) < len(p.Prefix)+len(p.Suffix) {
			return false
		}
		for i, sub := range p.Prefix {
			if !match(ctx, sub, elems[i], b) {
				return false
			}
		}
		tail := elems[len(elems)-len(p.Suffix):]
		for i, sub := range p.Suffix {
			if !match(ctx, sub, tail[i], b) {
				return false
			}
		}
		if p.Rest != nil {
			mid := elems[len(p.Prefix) : len(elems)-len(p.Suffix)]
			b.add(*p.Rest, ctx.Store.List(mid, v.Typ()))
		}
		return true
	case *il.OptP:
		payload, err := v.AsOpt()
		if err != nil {
			return false
		}
		if p.Elem == nil {
			return payload == nil
		}
		return payload != nil && match(ctx, p.Elem, payload, b)
	default:
		return false
	}
}

// expToPattern reads an expression as a pattern, the view LetI, relation
// inputs, and function parameters take of their left-hand sides. Variable
// references become binders; constructors, tuples, lists, options, and
// literals become the corresponding structural patterns. Expressions with
// no pattern reading report false.
func expToPattern(e il.Exp) (il.Pattern, bool) {
	switch x := e.(type) {
	case *il.VarE:
		return &il.VarP{PatBase: il.PatBase{At: x.Region()}, Id: x.Id}, true
	case *il.BoolE:
		return &il.BoolP{PatBase: il.PatBase{At: x.Region()}, B: x.B}, true
	case *il.NumE:
		return &il.NumP{PatBase: il.PatBase{At: x.Region()}, N: x.N}, true
	case *il.TextE:
		return &il.TextP{PatBase: il.PatBase{At: x.Region()}, S: x.S}, true
	case *il.CaseE:
		args := make([]il.Pattern, len(x.Args))
		for i, a := range x.Args {
			p, ok := expToPattern(a)
			if !ok {
				return nil, false
			}
			args[i] = p
		}
		return &il.CaseP{PatBase: il.PatBase{At: x.Region()}, Op: x.Op, Args: args}, true
	case *il.TupleE:
		elems := make([]il.Pattern, len(x.Elems))
		for i, a := range x.Elems {
			p, ok := expToPattern(a)
			if !ok {
				return nil, false
			}
			elems[i] = p
		}
		return &il.TupleP{PatBase: il.PatBase{At: x.Region()}, Elems: elems}, true
	case *il.ListE:
		elems := make([]il.Pattern, len(x.Elems))
		for i, a := range x.Elems {
			p, ok := expToPattern(a)
			if !ok {
				return nil, false
			}
			elems[i] = p
		}
		return &il.ListP{PatBase: il.PatBase{At: x.Region()}, Prefix: elems}, true
	case *il.CatE:
		// xs ++ ys with exactly one variable side binds it as a rest
		// pattern; anything richer has no pattern reading.
		if l, ok := x.L.(*il.ListE); ok {
			prefix := make([]il.Pattern, len(l.Elems))
			for i, a := range l.Elems {
				p, ok := expToPattern(a)
				if !ok {
					return nil, false
				}
				prefix[i] = p
			}
			if r, ok := x.R.(*il.VarE); ok {
				id := r.Id
				return &il.ListP{PatBase: il.PatBase{At: x.Region()}, Prefix: prefix, Rest: &id}, true
			}
		}
		if l, ok := x.L.(*il.VarE); ok {
			if r, ok := x.R.(*il.ListE); ok {
				suffix := make([]il.Pattern, len(r.Elems))
				for i, a := range r.Elems {
					p, ok := expToPattern(a)
					if !ok {
						return nil, false
					}
					suffix[i] = p
				}
				id := l.Id
				return &il.ListP{PatBase: il.PatBase{At: x.Region()}, Rest: &id, Suffix: suffix}, true
			}
		}
		return nil, false
	case *il.OptE:
		if x.E == nil {
			return &il.OptP{PatBase: il.PatBase{At: x.Region()}}, true
		}
		p, ok := expToPattern(x.E)
		if !ok {
			return nil, false
		}
		return &il.OptP{PatBase: il.PatBase{At: x.Region()}, Elem: p}, true
	case *il.IterE:
		// An iterated binder on a left-hand side receives the whole lifted
		// value; binding the inner variable to it is exactly the lifting
		// the scope discipline expects.
		if v, ok := x.E.(*il.VarE); ok {
			return &il.VarP{PatBase: il.PatBase{At: x.Region()}, Id: v.Id}, true
		}
		return nil, false
	default:
		return nil, false
	}
}
