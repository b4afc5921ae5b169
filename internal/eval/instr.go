package eval

import (
	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// Outcome is the result of executing an instruction list. Done reports
// that a ResultI or ReturnI fired; otherwise the list fell through and the
// caller decides what that means (for a relation, failure).
type Outcome struct {
	Done   bool
	Values []*value.Value
}

// ExecInstrs executes an instruction list in order. The missed flag
// threads between adjacent instructions so OtherwiseI can observe whether
// the preceding IfI or CaseI entered a branch.
func ExecInstrs(ctx *Context, instrs []il.Instr) (Outcome, error) {
	prevMissed := false
	for _, in := range instrs {
		out, missed, err := execInstr(ctx, in, prevMissed)
		if err != nil {
			return Outcome{}, err
		}
		if out.Done {
			return out, nil
		}
		prevMissed = missed
	}
	return Outcome{}, nil
}

func execInstr(ctx *Context, in il.Instr, prevMissed bool) (Outcome, bool, error) {
	switch x := in.(type) {
	case *il.IfI:
		if err := ctx.checkDeadline(x.Region()); err != nil {
			return Outcome{}, false, err
		}
		hold, err := condHolds(ctx, x.Cond, x.Iters)
		if err != nil {
			return Outcome{}, false, err
		}
		if !hold {
			ctx.RecordPhantom(x.Phantom)
			return Outcome{}, true, nil
		}
		ctx.pushGuard(renderExp(x.Cond))
		defer ctx.popGuard()
		var out Outcome
		err = ctx.InScope(func() error {
			var err error
			out, err = ExecInstrs(ctx, x.Body)
			return err
		})
		return out, false, err

	case *il.CaseI:
		if err := ctx.checkDeadline(x.Region()); err != nil {
			return Outcome{}, false, err
		}
		scrut, err := Eval(ctx, x.Scrut)
		if err != nil {
			return Outcome{}, false, err
		}
		for _, c := range x.Cases {
			sat, binds, err := guardHolds(ctx, scrut, c.Guard)
			if err != nil {
				return Outcome{}, false, err
			}
			if !sat {
				continue
			}
			ctx.pushGuard(renderGuard(x.Scrut, c.Guard))
			var out Outcome
			err = ctx.InScope(func() error {
				if binds != nil {
					binds.Apply(ctx)
				}
				var err error
				out, err = ExecInstrs(ctx, c.Body)
				return err
			})
			ctx.popGuard()
			return out, false, err
		}
		ctx.RecordPhantom(x.Phantom)
		return Outcome{}, true, nil

	case *il.OtherwiseI:
		if !prevMissed {
			return Outcome{}, false, nil
		}
		out, err := ExecInstrs(ctx, []il.Instr{x.Body})
		return out, false, err

	case *il.LetI:
		err := execIterated(ctx, x.Iters, func() error {
			return execLet(ctx, x)
		})
		return Outcome{}, false, err

	case *il.RuleI:
		if err := ctx.checkDeadline(x.Region()); err != nil {
			return Outcome{}, false, err
		}
		err := execIterated(ctx, x.Iters, func() error {
			return execRule(ctx, x)
		})
		return Outcome{}, false, err

	case *il.ResultI:
		vs, err := evalExps(ctx, x.Exps)
		if err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Done: true, Values: vs}, false, nil

	case *il.ReturnI:
		v, err := Eval(ctx, x.Exp)
		if err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Done: true, Values: []*value.Value{v}}, false, nil

	default:
		return Outcome{}, false, errAt(ElabErr, in.Region(), "unknown instruction node %T", in)
	}
}

// condHolds evaluates an IfI condition. Without iterations this is a plain
// boolean; with iterations the condition must hold on every step (vacuously
// on zero steps).
func condHolds(ctx *Context, cond il.Exp, iters []il.IterExp) (bool, error) {
	if len(iters) == 0 {
		return evalBool(ctx, cond)
	}
	hold := true
	err := forEachStep(ctx, iters, func() error {
		b, err := evalBool(ctx, cond)
		if err != nil {
			return err
		}
		if !b {
			hold = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return hold, nil
}

// forEachStep walks the iteration clauses pointwise and invokes f once per
// step with the drivers bound in a fresh scope. Zero steps (an empty list,
// an absent optional) means f never runs; nested clauses multiply out left
// to right. Unlike execIterated, nothing f binds is lifted.
func forEachStep(ctx *Context, iters []il.IterExp, f func() error) error {
	if len(iters) == 0 {
		return f()
	}
	ie := iters[0]
	rest := iters[1:]

	lifted := make([]*value.Value, len(ie.Vars))
	for i, id := range ie.Vars {
		_, v, err := ctx.Lookup(id)
		if err != nil {
			return err
		}
		lifted[i] = v
	}

	switch ie.Iter {
	case il.OptIter:
		payloads := make([]*value.Value, len(ie.Vars))
		present := 0
		for i, v := range lifted {
			p, err := v.AsOpt()
			if err != nil {
				return errAt(KindMismatchErr, ie.Vars[i].At, "binder %s: %s", ie.Vars[i].Name, err)
			}
			if p != nil {
				present++
			}
			payloads[i] = p
		}
		if present == 0 {
			return nil
		}
		if present != len(ie.Vars) {
			return errAt(IterLengthMismatchErr, il.NoRegion, "optional binders disagree on presence")
		}
		return ctx.InScope(func() error {
			for i, id := range ie.Vars {
				ctx.Bind(id, payloads[i].Typ(), payloads[i])
			}
			return forEachStep(ctx, rest, f)
		})

	case il.ListIter:
		slices := make([][]*value.Value, len(ie.Vars))
		n := -1
		for i, v := range lifted {
			elems, err := v.AsList()
			if err != nil {
				return errAt(KindMismatchErr, ie.Vars[i].At, "binder %s: %s", ie.Vars[i].Name, err)
			}
			if n < 0 {
				n = len(elems)
			} else if n != len(elems) {
				return errAt(IterLengthMismatchErr, ie.Vars[i].At,
					"binder %s has %d elements, expected %d", ie.Vars[i].Name, len(elems), n)
			}
			slices[i] = elems
		}
		for step := 0; step < n; step++ {
			err := ctx.InScope(func() error {
				for i, id := range ie.Vars {
					ctx.Bind(id, slices[i][step].Typ(), slices[i][step])
				}
				return forEachStep(ctx, rest, f)
			})
			if err != nil {
				return err
			}
		}
		return nil

	default:
		return errAt(ElabErr, il.NoRegion, "unknown iterator %d", ie.Iter)
	}
}

// guardHolds decides a CaseI guard against the scrutinee. Guards are
// total: a guard applied to a scrutinee of the wrong shape is simply not
// satisfied. Only expression evaluation inside the guard can fail.
func guardHolds(ctx *Context, scrut *value.Value, g il.Guard) (bool, *Bindings, error) {
	switch x := g.(type) {
	case il.BoolG:
		b, err := scrut.AsBool()
		if err != nil {
			return false, nil, nil
		}
		return b == x.B, nil, nil
	case il.CmpG:
		other, err := Eval(ctx, x.E)
		if err != nil {
			return false, nil, err
		}
		sat, err := compareValues(x.Op, x.OpTyp, scrut, other, x.E.Region())
		if err != nil {
			// Operands the ordering cannot compare: a shape mismatch.
			return false, nil, nil
		}
		return sat, nil, nil
	case il.SubG:
		return subtypeOf(ctx, scrut, x.Typ), nil, nil
	case il.MatchG:
		binds, ok := Match(ctx, x.Pat, scrut)
		if !ok {
			return false, nil, nil
		}
		return true, binds, nil
	case il.MemG:
		elems, err := evalList(ctx, x.E)
		if err != nil {
			return false, nil, err
		}
		return memberOf(scrut, elems), nil, nil
	default:
		return false, nil, errAt(ElabErr, il.NoRegion, "unknown guard %T", g)
	}
}

// execLet evaluates the right-hand side and matches it against the
// left-hand side read as a pattern. A failed match is a LetMismatch, never
// a silent fallthrough.
func execLet(ctx *Context, x *il.LetI) error {
	rhs, err := Eval(ctx, x.RHS)
	if err != nil {
		return err
	}
	pat, ok := expToPattern(x.LHS)
	if !ok {
		return errAt(ElabErr, x.LHS.Region(), "left-hand side has no pattern reading")
	}
	binds, matched := Match(ctx, pat, rhs)
	if !matched {
		return errAt(LetMismatchErr, x.Region(), "let pattern does not match %s", rhs)
	}
	binds.Apply(ctx)
	return nil
}

// execRule invokes a relation: input positions of the judgment are
// evaluated and passed, output positions are matched as patterns against
// the relation's results and their bindings enter the caller's scope.
func execRule(ctx *Context, x *il.RuleI) error {
	rel, ok := ctx.Spec.Rel(x.Rel.Name)
	if !ok {
		return errAt(UnboundErr, x.Rel.At, "unbound relation %q", x.Rel.Name)
	}
	if len(x.Not.Args) != len(rel.Args) {
		return errAt(ElabErr, x.Region(), "judgment %s: %d arguments, relation %q declares %d",
			x.Not.Op, len(x.Not.Args), rel.Id.Name, len(rel.Args))
	}

	inputs := make([]*value.Value, 0, len(rel.InputIdxs))
	for _, idx := range rel.InputIdxs {
		if idx < 0 || idx >= len(x.Not.Args) {
			return errAt(ElabErr, x.Region(), "relation %q: input index %d out of range", rel.Id.Name, idx)
		}
		v, err := Eval(ctx, x.Not.Args[idx])
		if err != nil {
			return err
		}
		inputs = append(inputs, v)
	}

	outputs, err := ctx.callRel(rel, inputs, x.Region())
	if err != nil {
		return err
	}

	outIdxs := rel.OutputIdxs()
	if len(outputs) != len(outIdxs) {
		return errAt(RelFailedErr, x.Region(), "relation %q produced %d outputs, expected %d",
			rel.Id.Name, len(outputs), len(outIdxs))
	}
	for k, idx := range outIdxs {
		pat, ok := expToPattern(x.Not.Args[idx])
		if !ok {
			return errAt(ElabErr, x.Not.Args[idx].Region(), "output position has no pattern reading")
		}
		binds, matched := Match(ctx, pat, outputs[k])
		if !matched {
			return errAt(RelFailedErr, x.Region(), "relation %q output %s does not match the judgment",
				rel.Id.Name, outputs[k])
		}
		binds.Apply(ctx)
	}
	return nil
}

// execIterated runs an action under the instruction's iteration clauses,
// lifting the bindings each step produces back into the enclosing scope:
// list iterations collect them into lists in step order, optional
// iterations wrap them in options. An action that binds nothing lifts
// nothing; zero-step iterations introduce no bindings.
func execIterated(ctx *Context, iters []il.IterExp, action func() error) error {
	if len(iters) == 0 {
		return action()
	}
	ie := iters[0]
	rest := iters[1:]

	lifted := make([]*value.Value, len(ie.Vars))
	for i, id := range ie.Vars {
		_, v, err := ctx.Lookup(id)
		if err != nil {
			return err
		}
		lifted[i] = v
	}
	driver := make(map[string]bool, len(ie.Vars))
	for _, id := range ie.Vars {
		driver[id.Name] = true
	}

	switch ie.Iter {
	case il.OptIter:
		payloads := make([]*value.Value, len(ie.Vars))
		present := 0
		for i, v := range lifted {
			p, err := v.AsOpt()
			if err != nil {
				return errAt(KindMismatchErr, ie.Vars[i].At, "binder %s: %s", ie.Vars[i].Name, err)
			}
			if p != nil {
				present++
			}
			payloads[i] = p
		}
		if present == 0 {
			return nil
		}
		if present != len(ie.Vars) {
			return errAt(IterLengthMismatchErr, il.NoRegion, "optional binders disagree on presence")
		}
		produced, err := runStep(ctx, ie.Vars, payloads, driver, func() error {
			return execIterated(ctx, rest, action)
		})
		if err != nil {
			return err
		}
		for _, nb := range produced {
			ctx.Bind(nb.id, il.OptT{Elem: nb.v.Typ()}, ctx.Store.Opt(nb.v, nil))
		}
		return nil

	case il.ListIter:
		slices := make([][]*value.Value, len(ie.Vars))
		n := -1
		for i, v := range lifted {
			elems, err := v.AsList()
			if err != nil {
				return errAt(KindMismatchErr, ie.Vars[i].At, "binder %s: %s", ie.Vars[i].Name, err)
			}
			if n < 0 {
				n = len(elems)
			} else if n != len(elems) {
				return errAt(IterLengthMismatchErr, ie.Vars[i].At,
					"binder %s has %d elements, expected %d", ie.Vars[i].Name, len(elems), n)
			}
			slices[i] = elems
		}
		collected := make(map[string][]*value.Value)
		var order []il.Id
		for step := 0; step < n; step++ {
			stepVals := make([]*value.Value, len(ie.Vars))
			for i := range ie.Vars {
				stepVals[i] = slices[i][step]
			}
			produced, err := runStep(ctx, ie.Vars, stepVals, driver, func() error {
				return execIterated(ctx, rest, action)
			})
			if err != nil {
				return err
			}
			for _, nb := range produced {
				if _, seen := collected[nb.id.Name]; !seen {
					order = append(order, nb.id)
				}
				collected[nb.id.Name] = append(collected[nb.id.Name], nb.v)
			}
		}
		for _, id := range order {
			vs := collected[id.Name]
			if len(vs) != n {
				return errAt(IterLengthMismatchErr, id.At,
					"binding %s produced on %d of %d steps", id.Name, len(vs), n)
			}
			ctx.Bind(id, il.ListT{Elem: vs[0].Typ()}, ctx.Store.List(vs, nil))
		}
		return nil

	default:
		return errAt(ElabErr, il.NoRegion, "unknown iterator %d", ie.Iter)
	}
}

type newBinding struct {
	id il.Id
	v  *value.Value
}

// runStep executes one iteration step in a fresh scope, binding the
// drivers pointwise, and returns the step's own bindings (everything the
// action bound that is not a driver). The scope's first-bind order keeps
// the result, and with it vid assignment downstream, deterministic.
func runStep(ctx *Context, vars []il.Id, vals []*value.Value, driver map[string]bool, action func() error) ([]newBinding, error) {
	var produced []newBinding
	err := ctx.InScope(func() error {
		for i, id := range vars {
			ctx.Bind(id, vals[i].Typ(), vals[i])
		}
		if err := action(); err != nil {
			return err
		}
		bound := ctx.bindings()
		for _, name := range ctx.bindingOrder() {
			if !driver[name] {
				produced = append(produced, newBinding{id: il.Id{Name: name}, v: bound[name].v})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return produced, nil
}
