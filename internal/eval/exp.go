package eval

import (
	"strings"

	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// Eval evaluates a pure expression. Evaluation order is left to right,
// outside in; the only side effects are value-graph growth and, through
// calls, phantom logging in callee bodies.
func Eval(ctx *Context, e il.Exp) (*value.Value, error) {
	switch x := e.(type) {
	case *il.BoolE:
		return ctx.Store.Bool(x.B), nil

	case *il.NumE:
		return ctx.Store.Num(x.N), nil

	case *il.TextE:
		return ctx.Store.Text(x.S), nil

	case *il.VarE:
		_, v, err := ctx.Lookup(x.Id)
		if err != nil {
			return nil, err
		}
		return v, nil

	case *il.UnE:
		return evalUn(ctx, x)

	case *il.BinE:
		return evalBin(ctx, x)

	case *il.CmpE:
		b, err := evalCmp(ctx, x.Op, x.OpTyp, x.L, x.R, x.Region())
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(b), nil

	case *il.TupleE:
		elems, err := evalExps(ctx, x.Elems)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Tuple(elems, x.Note()), nil

	case *il.CaseE:
		args, err := evalExps(ctx, x.Args)
		if err != nil {
			return nil, err
		}
		v, err := ctx.Store.Case(x.Op, args, ctx.resolveTyp(x.Note()))
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		return v, nil

	case *il.OptE:
		if x.E == nil {
			return ctx.Store.Opt(nil, x.Note()), nil
		}
		payload, err := Eval(ctx, x.E)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Opt(payload, x.Note()), nil

	case *il.ListE:
		elems, err := evalExps(ctx, x.Elems)
		if err != nil {
			return nil, err
		}
		return ctx.Store.List(elems, x.Note()), nil

	case *il.StrE:
		fields := make([]value.Field, len(x.Fields))
		for i, f := range x.Fields {
			fv, err := Eval(ctx, f.E)
			if err != nil {
				return nil, err
			}
			fields[i] = value.Field{Atom: f.Atom, V: fv}
		}
		v, err := ctx.Store.Struct(fields, ctx.resolveTyp(x.Note()))
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		return v, nil

	case *il.DotE:
		rec, err := Eval(ctx, x.E)
		if err != nil {
			return nil, err
		}
		f, err := rec.StructField(x.Atom)
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		return f, nil

	case *il.ProjE:
		tup, err := Eval(ctx, x.E)
		if err != nil {
			return nil, err
		}
		elems, err := tup.AsTuple()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		if x.Idx < 0 || x.Idx >= len(elems) {
			return nil, errAt(KindMismatchErr, x.Region(), "tuple index %d out of range for arity %d", x.Idx, len(elems))
		}
		return elems[x.Idx], nil

	case *il.HeadE:
		elems, err := evalList(ctx, x.E)
		if err != nil {
			return nil, err
		}
		if len(elems) == 0 {
			return nil, errAt(EmptyListErr, x.Region(), "head of empty list")
		}
		return elems[0], nil

	case *il.TailE:
		v, err := Eval(ctx, x.E)
		if err != nil {
			return nil, err
		}
		elems, err := v.AsList()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		if len(elems) == 0 {
			return nil, errAt(EmptyListErr, x.Region(), "tail of empty list")
		}
		return ctx.Store.List(elems[1:], v.Typ()), nil

	case *il.LenE:
		elems, err := evalList(ctx, x.E)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Num(il.Nat(uint64(len(elems)))), nil

	case *il.MemE:
		elem, err := Eval(ctx, x.Elem)
		if err != nil {
			return nil, err
		}
		elems, err := evalList(ctx, x.List)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(memberOf(elem, elems)), nil

	case *il.CatE:
		l, err := Eval(ctx, x.L)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, x.R)
		if err != nil {
			return nil, err
		}
		ls, err := l.AsList()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		rs, err := r.AsList()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		cat := make([]*value.Value, 0, len(ls)+len(rs))
		cat = append(cat, ls...)
		cat = append(cat, rs...)
		return ctx.Store.List(cat, l.Typ()), nil

	case *il.IterE:
		return evalIter(ctx, x)

	case *il.CallE:
		args, err := evalExps(ctx, x.Args)
		if err != nil {
			return nil, err
		}
		return ctx.Call(x.Id, args, x.Region())

	case *il.MatchE:
		scrut, err := Eval(ctx, x.Scrut)
		if err != nil {
			return nil, err
		}
		for _, arm := range x.Arms {
			binds, ok := Match(ctx, arm.Pat, scrut)
			if !ok {
				continue
			}
			var result *value.Value
			err := ctx.InScope(func() error {
				binds.Apply(ctx)
				var err error
				result, err = Eval(ctx, arm.E)
				return err
			})
			return result, err
		}
		return nil, errAt(LetMismatchErr, x.Region(), "case expression: no pattern matched %s", scrut)

	case *il.SubE:
		v, err := Eval(ctx, x.E)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(subtypeOf(ctx, v, x.Typ)), nil

	default:
		return nil, errAt(ElabErr, e.Region(), "unknown expression node %T", e)
	}
}

func evalExps(ctx *Context, es []il.Exp) ([]*value.Value, error) {
	vs := make([]*value.Value, len(es))
	for i, e := range es {
		v, err := Eval(ctx, e)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func evalBool(ctx *Context, e il.Exp) (bool, error) {
	v, err := Eval(ctx, e)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, errAt(KindMismatchErr, e.Region(), "%s", err)
	}
	return b, nil
}

func evalNum(ctx *Context, e il.Exp) (il.Num, error) {
	v, err := Eval(ctx, e)
	if err != nil {
		return il.Num{}, err
	}
	n, err := v.AsNum()
	if err != nil {
		return il.Num{}, errAt(KindMismatchErr, e.Region(), "%s", err)
	}
	return n, nil
}

func evalList(ctx *Context, e il.Exp) ([]*value.Value, error) {
	v, err := Eval(ctx, e)
	if err != nil {
		return nil, err
	}
	elems, err := v.AsList()
	if err != nil {
		return nil, errAt(KindMismatchErr, e.Region(), "%s", err)
	}
	return elems, nil
}

func evalUn(ctx *Context, x *il.UnE) (*value.Value, error) {
	switch x.Op {
	case il.NotOp:
		b, err := evalBool(ctx, x.E)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(!b), nil
	case il.NegOp:
		n, err := evalNum(ctx, x.E)
		if err != nil {
			return nil, err
		}
		neg, err := n.Neg()
		if err != nil {
			return nil, numErr(err, x.Region())
		}
		return ctx.Store.Num(neg), nil
	default:
		return nil, errAt(ElabErr, x.Region(), "unknown unary operator %d", x.Op)
	}
}

// evalBin dispatches on the operator's type. Boolean connectives
// short-circuit: the right operand is not evaluated when the left decides.
func evalBin(ctx *Context, x *il.BinE) (*value.Value, error) {
	switch x.Op {
	case il.AndOp:
		l, err := evalBool(ctx, x.L)
		if err != nil {
			return nil, err
		}
		if !l {
			return ctx.Store.Bool(false), nil
		}
		r, err := evalBool(ctx, x.R)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(r), nil

	case il.OrOp:
		l, err := evalBool(ctx, x.L)
		if err != nil {
			return nil, err
		}
		if l {
			return ctx.Store.Bool(true), nil
		}
		r, err := evalBool(ctx, x.R)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(r), nil

	case il.ImplOp:
		l, err := evalBool(ctx, x.L)
		if err != nil {
			return nil, err
		}
		if !l {
			return ctx.Store.Bool(true), nil
		}
		r, err := evalBool(ctx, x.R)
		if err != nil {
			return nil, err
		}
		return ctx.Store.Bool(r), nil

	case il.CatTextOp:
		l, err := Eval(ctx, x.L)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, x.R)
		if err != nil {
			return nil, err
		}
		ls, err := l.AsText()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		rs, err := r.AsText()
		if err != nil {
			return nil, errAt(KindMismatchErr, x.Region(), "%s", err)
		}
		return ctx.Store.Text(ls + rs), nil

	case il.AddOp, il.SubOp, il.MulOp, il.DivOp, il.ModOp:
		l, err := evalNum(ctx, x.L)
		if err != nil {
			return nil, err
		}
		r, err := evalNum(ctx, x.R)
		if err != nil {
			return nil, err
		}
		var n il.Num
		switch x.Op {
		case il.AddOp:
			n, err = l.Add(r)
		case il.SubOp:
			n, err = l.Sub(r)
		case il.MulOp:
			n, err = l.Mul(r)
		case il.DivOp:
			n, err = l.Div(r)
		case il.ModOp:
			n, err = l.Mod(r)
		}
		if err != nil {
			return nil, numErr(err, x.Region())
		}
		return ctx.Store.Num(n), nil

	default:
		return nil, errAt(ElabErr, x.Region(), "unknown binary operator %d", x.Op)
	}
}

func evalCmp(ctx *Context, op il.CmpOp, optyp il.Typ, le, re il.Exp, at il.Region) (bool, error) {
	l, err := Eval(ctx, le)
	if err != nil {
		return false, err
	}
	r, err := Eval(ctx, re)
	if err != nil {
		return false, err
	}
	return compareValues(op, optyp, l, r, at)
}

// compareValues applies a comparison. Equality and inequality are
// structural on any kind; orderings require the operand type the
// elaborator assigned (numbers or text).
func compareValues(op il.CmpOp, optyp il.Typ, l, r *value.Value, at il.Region) (bool, error) {
	switch op {
	case il.EqOp:
		return value.Equal(l, r), nil
	case il.NeOp:
		return !value.Equal(l, r), nil
	}
	if _, ok := optyp.(il.TextT); ok {
		ls, err := l.AsText()
		if err != nil {
			return false, errAt(KindMismatchErr, at, "%s", err)
		}
		rs, err := r.AsText()
		if err != nil {
			return false, errAt(KindMismatchErr, at, "%s", err)
		}
		return cmpOrdered(op, strings.Compare(ls, rs)), nil
	}
	ln, err := l.AsNum()
	if err != nil {
		return false, errAt(KindMismatchErr, at, "%s", err)
	}
	rn, err := r.AsNum()
	if err != nil {
		return false, errAt(KindMismatchErr, at, "%s", err)
	}
	c, err := ln.Cmp(rn)
	if err != nil {
		return false, numErr(err, at)
	}
	return cmpOrdered(op, c), nil
}

func cmpOrdered(op il.CmpOp, c int) bool {
	switch op {
	case il.LtOp:
		return c < 0
	case il.GtOp:
		return c > 0
	case il.LeOp:
		return c <= 0
	case il.GeOp:
		return c >= 0
	default:
		return false
	}
}

func memberOf(elem *value.Value, elems []*value.Value) bool {
	for _, e := range elems {
		if value.Equal(elem, e) {
			return true
		}
	}
	return false
}

// evalIter runs the body once per iteration step, with every binder bound
// pointwise from its lifted value in the enclosing scope.
func evalIter(ctx *Context, x *il.IterE) (*value.Value, error) {
	if len(x.Vars) == 0 {
		return nil, errAt(ElabErr, x.Region(), "iteration without binders")
	}
	lifted := make([]*value.Value, len(x.Vars))
	for i, id := range x.Vars {
		_, v, err := ctx.Lookup(id)
		if err != nil {
			return nil, err
		}
		lifted[i] = v
	}

	switch x.Iter {
	case il.OptIter:
		payloads := make([]*value.Value, len(x.Vars))
		present := 0
		for i, v := range lifted {
			p, err := v.AsOpt()
			if err != nil {
				return nil, errAt(KindMismatchErr, x.Region(), "binder %s: %s", x.Vars[i].Name, err)
			}
			if p != nil {
				present++
			}
			payloads[i] = p
		}
		if present == 0 {
			return ctx.Store.Opt(nil, x.Note()), nil
		}
		if present != len(x.Vars) {
			return nil, errAt(IterLengthMismatchErr, x.Region(), "optional binders disagree on presence")
		}
		var result *value.Value
		err := ctx.InScope(func() error {
			for i, id := range x.Vars {
				ctx.Bind(id, payloads[i].Typ(), payloads[i])
			}
			var err error
			result, err = Eval(ctx, x.E)
			return err
		})
		if err != nil {
			return nil, err
		}
		return ctx.Store.Opt(result, x.Note()), nil

	case il.ListIter:
		slices := make([][]*value.Value, len(x.Vars))
		n := -1
		for i, v := range lifted {
			elems, err := v.AsList()
			if err != nil {
				return nil, errAt(KindMismatchErr, x.Region(), "binder %s: %s", x.Vars[i].Name, err)
			}
			if n < 0 {
				n = len(elems)
			} else if n != len(elems) {
				return nil, errAt(IterLengthMismatchErr, x.Region(),
					"binder %s has %d elements, expected %d", x.Vars[i].Name, len(elems), n)
			}
			slices[i] = elems
		}
		results := make([]*value.Value, 0, n)
		for step := 0; step < n; step++ {
			var result *value.Value
			err := ctx.InScope(func() error {
				for i, id := range x.Vars {
					ctx.Bind(id, slices[i][step].Typ(), slices[i][step])
				}
				var err error
				result, err = Eval(ctx, x.E)
				return err
			})
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}
		return ctx.Store.List(results, x.Note()), nil

	default:
		return nil, errAt(ElabErr, x.Region(), "unknown iterator %d", x.Iter)
	}
}

// subtypeOf checks the dynamic type of a value against a target type:
// nominal for constructor values (the operator must be a declared case of
// the target variant), structural for records (every declared field must
// be present), tag-level for everything else.
func subtypeOf(ctx *Context, v *value.Value, target il.Typ) bool {
	switch t := ctx.resolveTyp(target).(type) {
	case il.BoolT:
		return v.Kind() == value.BoolK
	case il.NumT:
		n, err := v.AsNum()
		return err == nil && n.Kind() == t.Kind && (t.Kind != il.BitsK || n.Width() == t.Width)
	case il.TextT:
		return v.Kind() == value.TextK
	case il.ListT:
		return v.Kind() == value.ListK
	case il.TupleT:
		elems, err := v.AsTuple()
		return err == nil && len(elems) == len(t.Elems)
	case il.OptT:
		return v.Kind() == value.OptK
	case il.VariantT:
		op, err := v.CaseOp()
		if err != nil {
			return false
		}
		for _, c := range t.Cases {
			if c.Op.Equal(op) {
				return true
			}
		}
		return false
	case il.StructT:
		fields, err := v.AsStruct()
		if err != nil {
			return false
		}
		have := make(map[string]bool, len(fields))
		for _, f := range fields {
			have[f.Atom] = true
		}
		for _, f := range t.Fields {
			if !have[f.Atom] {
				return false
			}
		}
		return true
	case il.IterT:
		if t.Iter == il.OptIter {
			return v.Kind() == value.OptK
		}
		return v.Kind() == value.ListK
	case il.FuncT:
		return v.Kind() == value.FuncK
	default:
		return false
	}
}
