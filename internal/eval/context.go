// Package eval implements the operational interpreter of the IL: the
// evaluation context, the pattern matcher, the expression evaluator, and
// the instruction interpreter that drives relations and functions. A
// single evaluation is strictly sequential and exclusively owns its
// context; independent evaluations never share state.
package eval

import (
	"time"

	"p4spectec/internal/il"
	"p4spectec/internal/phantom"
	"p4spectec/internal/value"
)

// Options bound an evaluation's resources.
type Options struct {
	// MaxDepth bounds relation and function recursion.
	MaxDepth int
	// Deadline, when set, is checked cooperatively on entering IfI, CaseI,
	// and RuleI. Phantoms logged before the deadline fires are kept.
	Deadline time.Time
}

// DefaultMaxDepth is the recursion bound used when the caller does not
// configure one.
const DefaultMaxDepth = 512

type binding struct {
	typ il.Typ
	v   *value.Value
}

// A frame is one lexical scope. Frames with barrier set open a new
// function or relation activation: lookups never cross a barrier. The
// order slice remembers first-bind order so iteration lifting and
// provenance stay deterministic; Go maps would not.
type frame struct {
	vars    map[string]binding
	order   []string
	barrier bool
}

// Context aggregates everything one evaluation owns: the immutable
// definition table, the value store and graph, the scope stack, the
// phantom log, and the resource counters.
type Context struct {
	Spec     *il.Spec
	Store    *value.Store
	Phantoms *phantom.Log

	scopes    []frame
	guardPath []string
	depth     int
	opts      Options
	builtins  map[string]Builtin
}

// NewContext returns a context for one evaluation of the given spec.
func NewContext(spec *il.Spec, opts Options) *Context {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	ctx := &Context{
		Spec:     spec,
		Store:    value.NewStore(),
		Phantoms: phantom.NewLog(),
		scopes:   []frame{{vars: make(map[string]binding)}},
		opts:     opts,
		builtins: make(map[string]Builtin),
	}
	registerCoreBuiltins(ctx)
	return ctx
}

// ScopeDepth reports the current height of the scope stack. After any
// evaluation, successful or failed, the height equals its height at entry.
func (ctx *Context) ScopeDepth() int { return len(ctx.scopes) }

// EnterScope pushes a lexical scope.
func (ctx *Context) EnterScope() {
	ctx.scopes = append(ctx.scopes, frame{vars: make(map[string]binding)})
}

// LeaveScope pops the innermost scope.
func (ctx *Context) LeaveScope() {
	ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
}

// InScope runs f inside a fresh scope, releasing it on every exit path.
func (ctx *Context) InScope(f func() error) error {
	ctx.EnterScope()
	defer ctx.LeaveScope()
	return f()
}

// enterFrame pushes a barrier scope for a function or relation activation.
func (ctx *Context) enterFrame() {
	ctx.scopes = append(ctx.scopes, frame{vars: make(map[string]binding), barrier: true})
}

// inFrame runs f inside a fresh activation frame.
func (ctx *Context) inFrame(f func() error) error {
	ctx.enterFrame()
	defer ctx.LeaveScope()
	return f()
}

// Bind introduces a variable in the innermost scope, shadowing any outer
// binding of the same name.
func (ctx *Context) Bind(id il.Id, typ il.Typ, v *value.Value) {
	f := &ctx.scopes[len(ctx.scopes)-1]
	if _, rebound := f.vars[id.Name]; !rebound {
		f.order = append(f.order, id.Name)
	}
	f.vars[id.Name] = binding{typ: typ, v: v}
}

// Lookup resolves a variable in the enclosing scopes of the current
// activation.
func (ctx *Context) Lookup(id il.Id) (il.Typ, *value.Value, error) {
	for i := len(ctx.scopes) - 1; i >= 0; i-- {
		if b, ok := ctx.scopes[i].vars[id.Name]; ok {
			return b.typ, b.v, nil
		}
		if ctx.scopes[i].barrier {
			break
		}
	}
	return nil, nil, errAt(UnboundErr, id.At, "unbound variable %q", id.Name)
}

// bindings returns the innermost scope's variable map; the relation
// protocol reads it to lift the bindings an iteration step produced.
func (ctx *Context) bindings() map[string]binding {
	return ctx.scopes[len(ctx.scopes)-1].vars
}

// bindingOrder returns the innermost scope's variable names in first-bind
// order.
func (ctx *Context) bindingOrder() []string {
	return ctx.scopes[len(ctx.scopes)-1].order
}

// RecordPhantom logs the phantom's pid together with the current context
// path. Phantom logging is never rolled back.
func (ctx *Context) RecordPhantom(ph *il.Phantom) {
	if ph == nil {
		return
	}
	ctx.Phantoms.Record(ph.PID, ctx.guardPath)
}

// pushGuard extends the context path while the interpreter is inside a
// taken branch; popGuard must be deferred by the caller.
func (ctx *Context) pushGuard(desc string) {
	ctx.guardPath = append(ctx.guardPath, desc)
}

func (ctx *Context) popGuard() {
	ctx.guardPath = ctx.guardPath[:len(ctx.guardPath)-1]
}

// checkDeadline fails with Deadline once the configured deadline passed.
func (ctx *Context) checkDeadline(at il.Region) error {
	if !ctx.opts.Deadline.IsZero() && time.Now().After(ctx.opts.Deadline) {
		return errAt(DeadlineErr, at, "evaluation deadline exceeded")
	}
	return nil
}

// enterCall bounds recursion depth for functions and relations.
func (ctx *Context) enterCall(at il.Region) error {
	ctx.depth++
	if ctx.depth > ctx.opts.MaxDepth {
		ctx.depth--
		return errAt(StackOverflowErr, at, "recursion depth exceeds %d", ctx.opts.MaxDepth)
	}
	return nil
}

func (ctx *Context) leaveCall() { ctx.depth-- }

// resolveTyp follows named type references to their declared bodies so the
// interpreter can consult variant constructors and record fields. Type
// parameters are not substituted; the interpreter only reads structure
// that is parameter-independent (operators, arities, field atoms).
func (ctx *Context) resolveTyp(t il.Typ) il.Typ {
	seen := 0
	for {
		v, ok := t.(il.VarT)
		if !ok {
			return t
		}
		d, ok := ctx.Spec.Typ(v.Id.Name)
		if !ok {
			return t
		}
		t = d.Typ
		if seen++; seen > 64 {
			return t
		}
	}
}
