package eval

import (
	"strings"

	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// Call invokes a declared function or, for $-prefixed names, a builtin.
// Arguments are already evaluated; the callee runs in a fresh activation
// frame and its ReturnI value is the call's result.
func (ctx *Context) Call(id il.Id, args []*value.Value, at il.Region) (*value.Value, error) {
	if strings.HasPrefix(id.Name, "$") {
		return ctx.callBuiltin(id, args, at)
	}

	dec, ok := ctx.Spec.Dec(id.Name)
	if !ok {
		return nil, errAt(UnboundErr, id.At, "unbound function %q", id.Name)
	}
	if err := ctx.enterCall(at); err != nil {
		return nil, err
	}
	defer ctx.leaveCall()

	if len(args) != len(dec.Params) {
		return nil, errAt(ElabErr, at, "function %q: %d arguments, %d parameters", dec.Id.Name, len(args), len(dec.Params))
	}

	var result *value.Value
	err := ctx.inFrame(func() error {
		for i, p := range dec.Params {
			pat, ok := expToPattern(p)
			if !ok {
				return errAt(ElabErr, p.Region(), "parameter has no pattern reading")
			}
			binds, matched := Match(ctx, pat, args[i])
			if !matched {
				return errAt(LetMismatchErr, at, "argument %s does not match parameter %d of %q", args[i], i, dec.Id.Name)
			}
			binds.Apply(ctx)
		}
		out, err := ExecInstrs(ctx, dec.Instrs)
		if err != nil {
			return err
		}
		if !out.Done || len(out.Values) != 1 {
			return errAt(ElabErr, at, "function %q fell through without a return", dec.Id.Name)
		}
		result = out.Values[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// callRel evaluates a relation against its inputs following the rule
// protocol: fresh activation frame, input positions matched, instruction
// list executed, ResultI values returned as the outputs. Falling through
// without a ResultI is the rule failing.
func (ctx *Context) callRel(rel *il.RelD, inputs []*value.Value, at il.Region) ([]*value.Value, error) {
	if err := ctx.enterCall(at); err != nil {
		return nil, err
	}
	defer ctx.leaveCall()

	var outputs []*value.Value
	err := ctx.inFrame(func() error {
		for k, idx := range rel.InputIdxs {
			pat, ok := expToPattern(rel.Args[idx])
			if !ok {
				return errAt(ElabErr, rel.Args[idx].Region(), "input position has no pattern reading")
			}
			binds, matched := Match(ctx, pat, inputs[k])
			if !matched {
				return errAt(RelFailedErr, at, "relation %q: input %s does not match position %d",
					rel.Id.Name, inputs[k], idx)
			}
			binds.Apply(ctx)
		}
		out, err := ExecInstrs(ctx, rel.Instrs)
		if err != nil {
			return err
		}
		if !out.Done {
			return errAt(RelFailedErr, at, "relation %q produced no result", rel.Id.Name)
		}
		outputs = out.Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Provenance: each fresh output depends on every input read.
	for _, out := range outputs {
		var deps []uint64
		for _, in := range inputs {
			if in.VID() < out.VID() {
				deps = append(deps, in.VID())
			}
		}
		if len(deps) > 0 {
			_ = ctx.Store.Link(out.VID(), deps...)
		}
	}
	return outputs, nil
}

// Run evaluates the named relation on the given inputs. It is the
// driver's entry point for one evaluation.
func Run(ctx *Context, relName string, inputs []*value.Value) ([]*value.Value, error) {
	rel, ok := ctx.Spec.Rel(relName)
	if !ok {
		return nil, errAt(UnboundErr, il.NoRegion, "unbound relation %q", relName)
	}
	if len(inputs) != len(rel.InputIdxs) {
		return nil, errAt(ElabErr, il.NoRegion, "relation %q takes %d inputs, got %d",
			relName, len(rel.InputIdxs), len(inputs))
	}
	return ctx.callRel(rel, inputs, il.NoRegion)
}
