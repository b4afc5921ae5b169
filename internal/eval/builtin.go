package eval

import (
	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// Builtin is a native function exposed to the IL under a $-prefixed name.
// Builtins receive evaluated arguments and must not retain the context.
type Builtin func(ctx *Context, args []*value.Value, at il.Region) (*value.Value, error)

// RegisterBuiltin installs a native function. Later registrations shadow
// earlier ones, which lets a driver override the arithmetic set for
// experiments.
func (ctx *Context) RegisterBuiltin(name string, fn Builtin) {
	ctx.builtins[name] = fn
}

func (ctx *Context) callBuiltin(id il.Id, args []*value.Value, at il.Region) (*value.Value, error) {
	fn, ok := ctx.builtins[id.Name]
	if !ok {
		return nil, errAt(UnboundErr, id.At, "unbound builtin %q", id.Name)
	}
	result, err := fn(ctx, args, at)
	if err != nil {
		return nil, err
	}
	// Provenance: a builtin's result depends on every argument it read.
	var deps []uint64
	for _, a := range args {
		if a.VID() < result.VID() {
			deps = append(deps, a.VID())
		}
	}
	if len(deps) > 0 {
		_ = ctx.Store.Link(result.VID(), deps...)
	}
	return result, nil
}

func registerCoreBuiltins(ctx *Context) {
	ctx.RegisterBuiltin("$sum", builtinSum)
	ctx.RegisterBuiltin("$min", builtinMin)
	ctx.RegisterBuiltin("$max", builtinMax)
}

func natArgs(name string, args []*value.Value, at il.Region) ([]il.Num, error) {
	if len(args) != 1 {
		return nil, errAt(BuiltinErr, at, "%s takes one list argument, got %d", name, len(args))
	}
	elems, err := args[0].AsList()
	if err != nil {
		return nil, errAt(KindMismatchErr, at, "%s: %s", name, err)
	}
	nums := make([]il.Num, len(elems))
	for i, e := range elems {
		n, err := e.AsNum()
		if err != nil {
			return nil, errAt(KindMismatchErr, at, "%s: element %d: %s", name, i, err)
		}
		nums[i] = n
	}
	return nums, nil
}

func builtinSum(ctx *Context, args []*value.Value, at il.Region) (*value.Value, error) {
	nums, err := natArgs("sum", args, at)
	if err != nil {
		return nil, err
	}
	acc := il.Nat(0)
	for _, n := range nums {
		acc, err = acc.Add(n)
		if err != nil {
			return nil, numErr(err, at)
		}
	}
	return ctx.Store.Num(acc), nil
}

func builtinMin(ctx *Context, args []*value.Value, at il.Region) (*value.Value, error) {
	nums, err := natArgs("min", args, at)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, errAt(BuiltinErr, at, "min of empty list")
	}
	best := nums[0]
	for _, n := range nums[1:] {
		c, err := n.Cmp(best)
		if err != nil {
			return nil, numErr(err, at)
		}
		if c < 0 {
			best = n
		}
	}
	return ctx.Store.Num(best), nil
}

func builtinMax(ctx *Context, args []*value.Value, at il.Region) (*value.Value, error) {
	nums, err := natArgs("max", args, at)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, errAt(BuiltinErr, at, "max of empty list")
	}
	best := nums[0]
	for _, n := range nums[1:] {
		c, err := n.Cmp(best)
		if err != nil {
			return nil, numErr(err, at)
		}
		if c > 0 {
			best = n
		}
	}
	return ctx.Store.Num(best), nil
}
