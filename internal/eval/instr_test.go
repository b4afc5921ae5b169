package eval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

// rel0 wraps an instruction list as a zero-input, one-output relation.
func rel0(instrs ...il.Instr) il.RelD {
	return il.RelD{
		Id:   il.Id{Name: "R"},
		Op:   il.MixOp{{"|-"}, {}},
		Args: []il.Exp{varE("out")},
		// no input indices: the single position is an output
		Instrs: instrs,
	}
}

func TestIfPhantom(t *testing.T) {
	t.Run("false condition logs the phantom and the relation fails", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.IfI{
				Cond:    boolE(false),
				Body:    []il.Instr{&il.ResultI{Exps: []il.Exp{natE(1)}}},
				Phantom: &il.Phantom{PID: 7},
			},
		))
		_, err := Run(ctx, "R", nil)
		require.Equal(t, RelFailedErr, KindOf(err))
		assert.Equal(t, []int{7}, ctx.Phantoms.PIDs())
	})

	t.Run("true condition enters the body, no phantom", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.IfI{
				Cond:    boolE(true),
				Body:    []il.Instr{&il.ResultI{Exps: []il.Exp{natE(1)}}},
				Phantom: &il.Phantom{PID: 7},
			},
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		require.Len(t, outs, 1)
		assert.Equal(t, "1", outs[0].String())
		assert.Empty(t, ctx.Phantoms.PIDs())
	})

	t.Run("misses carry the enclosing guard path", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.IfI{
				Cond: boolE(true),
				Body: []il.Instr{
					&il.IfI{
						Cond:    boolE(false),
						Body:    []il.Instr{&il.ResultI{Exps: []il.Exp{natE(1)}}},
						Phantom: &il.Phantom{PID: 11},
					},
					&il.ResultI{Exps: []il.Exp{natE(2)}},
				},
			},
		))
		_, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		misses := ctx.Phantoms.Misses()
		require.Len(t, misses, 1)
		assert.Equal(t, 11, misses[0].PID)
		assert.Equal(t, []string{"true"}, misses[0].Path)
	})

	t.Run("iterated condition is universal", func(t *testing.T) {
		run := func(t *testing.T, elems ...uint64) (bool, error) {
			ctx := newCtx(t)
			vs := make([]*value.Value, len(elems))
			for i, n := range elems {
				vs[i] = ctx.Store.Num(il.Nat(n))
			}
			ctx.EnterScope()
			defer ctx.LeaveScope()
			ctx.Bind(il.Id{Name: "x"}, nil, ctx.Store.List(vs, nil))
			out, err := ExecInstrs(ctx, []il.Instr{
				&il.IfI{
					Cond:  cmpE(il.LtOp, varE("x"), natE(10)),
					Iters: []il.IterExp{{Iter: il.ListIter, Vars: []il.Id{{Name: "x"}}}},
					Body:  []il.Instr{&il.ResultI{Exps: []il.Exp{natE(1)}}},
				},
			})
			return out.Done, err
		}

		done, err := run(t, 1, 2, 3)
		require.NoError(t, err)
		assert.True(t, done)

		done, err = run(t)
		require.NoError(t, err)
		assert.True(t, done, "vacuously true on zero steps")

		done, err = run(t, 1, 20)
		require.NoError(t, err)
		assert.False(t, done, "one failing step falls through")
	})
}

func TestLetMismatch(t *testing.T) {
	t.Run("Some pattern against none", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.LetI{
				LHS: caseE(someOp, varE("x")),
				RHS: &il.MatchE{
					Scrut: &il.OptE{},
					Arms: []il.Arm{
						{Pat: &il.OptP{}, E: caseE(noneOp)},
						{Pat: &il.OptP{Elem: varP("v")}, E: caseE(someOp, varE("v"))},
					},
				},
			},
			&il.ResultI{Exps: []il.Exp{varE("x")}},
		))
		_, err := Run(ctx, "R", nil)
		assert.Equal(t, LetMismatchErr, KindOf(err))
	})

	t.Run("successful let extends the scope", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.LetI{LHS: caseE(someOp, varE("x")), RHS: caseE(someOp, natE(5))},
			&il.ResultI{Exps: []il.Exp{varE("x")}},
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "5", outs[0].String())
	})
}

func TestCasePhantomOnlyWhenNothingMatched(t *testing.T) {
	mkCase := func(scrut il.Exp, pid int) *il.CaseI {
		return &il.CaseI{
			Scrut: scrut,
			Cases: []il.Case{
				{Guard: il.MatchG{Pat: &il.CaseP{Op: noneOp}},
					Body: []il.Instr{&il.ResultI{Exps: []il.Exp{natE(0)}}}},
				{Guard: il.MatchG{Pat: &il.CaseP{Op: someOp, Args: []il.Pattern{varP("x")}}},
					Body: []il.Instr{&il.ResultI{Exps: []il.Exp{varE("x")}}}},
			},
			Phantom: &il.Phantom{PID: 21},
		}
	}

	t.Run("second guard matching logs nothing", func(t *testing.T) {
		ctx := newCtx(t, rel0(mkCase(caseE(someOp, natE(4)), 21)))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "4", outs[0].String())
		assert.Empty(t, ctx.Phantoms.PIDs(), "phantoms record unentered branches only when no case matched")
	})

	t.Run("no guard matching logs the phantom and falls through", func(t *testing.T) {
		ctx := newCtx(t, rel0(mkCase(caseE(pairOp, natE(1), natE(2)), 21)))
		_, err := Run(ctx, "R", nil)
		require.Equal(t, RelFailedErr, KindOf(err))
		assert.Equal(t, []int{21}, ctx.Phantoms.PIDs())
	})
}

func TestOtherwise(t *testing.T) {
	otherwise := &il.OtherwiseI{Body: &il.ResultI{Exps: []il.Exp{natE(99)}}}

	t.Run("runs after an unmatched case", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.CaseI{
				Scrut: natE(5),
				Cases: []il.Case{{Guard: il.CmpG{Op: il.EqOp, OpTyp: natT, E: natE(0)},
					Body: []il.Instr{&il.ResultI{Exps: []il.Exp{natE(0)}}}}},
			},
			otherwise,
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "99", outs[0].String())
	})

	t.Run("skipped when the case matched", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.CaseI{
				Scrut: natE(0),
				Cases: []il.Case{{Guard: il.CmpG{Op: il.EqOp, OpTyp: natT, E: natE(0)},
					Body: []il.Instr{&il.ResultI{Exps: []il.Exp{natE(0)}}}}},
			},
			otherwise,
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "0", outs[0].String())
	})
}

func TestGuards(t *testing.T) {
	result := func(n uint64) []il.Instr {
		return []il.Instr{&il.ResultI{Exps: []il.Exp{natE(n)}}}
	}

	t.Run("guards are tried in declared order", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.CaseI{
				Scrut: natE(4),
				Cases: []il.Case{
					{Guard: il.MemG{E: listE(natE(1), natE(2))}, Body: result(1)},
					{Guard: il.CmpG{Op: il.LtOp, OpTyp: natT, E: natE(10)}, Body: result(2)},
					{Guard: il.BoolG{B: true}, Body: result(3)},
				},
			},
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "2", outs[0].String())
	})

	t.Run("boolean guards split booleans", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.CaseI{
				Scrut: boolE(false),
				Cases: []il.Case{
					{Guard: il.BoolG{B: true}, Body: result(1)},
					{Guard: il.BoolG{B: false}, Body: result(2)},
				},
			},
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "2", outs[0].String())
	})

	t.Run("subtype guard dispatches on dynamic type", func(t *testing.T) {
		variant := il.TypD{Id: il.Id{Name: "val"}, Typ: il.VariantT{Cases: []il.CaseTyp{
			{Op: someOp, Args: []il.Typ{natT}},
			{Op: noneOp},
		}}}
		ctx := newCtx(t, variant, rel0(
			&il.CaseI{
				Scrut: caseE(someOp, natE(1)),
				Cases: []il.Case{
					{Guard: il.SubG{Typ: il.VarT{Id: il.Id{Name: "val"}}}, Body: result(1)},
					{Guard: il.BoolG{B: true}, Body: result(2)},
				},
			},
		))
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "1", outs[0].String())
	})
}

func TestRelationProtocol(t *testing.T) {
	// Inc: n |- m with n input, m = n + 1 output.
	inc := il.RelD{
		Id:        il.Id{Name: "Inc"},
		Op:        il.MixOp{{}, {"|-"}, {}},
		InputIdxs: []int{0},
		Args:      []il.Exp{varE("n"), varE("m")},
		Instrs: []il.Instr{
			&il.ResultI{Exps: []il.Exp{binE(il.AddOp, varE("n"), natE(1))}},
		},
	}

	t.Run("inputs bind, outputs return", func(t *testing.T) {
		ctx := newCtx(t, inc)
		outs, err := Run(ctx, "Inc", []*value.Value{ctx.Store.Num(il.Nat(41))})
		require.NoError(t, err)
		require.Len(t, outs, 1)
		assert.Equal(t, "42", outs[0].String())
	})

	t.Run("rule invocation binds outputs in the caller", func(t *testing.T) {
		caller := rel0(
			&il.RuleI{
				Rel: il.Id{Name: "Inc"},
				Not: il.NotExp{Op: inc.Op, Args: []il.Exp{natE(7), varE("m")}},
			},
			&il.ResultI{Exps: []il.Exp{varE("m")}},
		)
		ctx := newCtx(t, inc, caller)
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, "8", outs[0].String())
	})

	t.Run("relation outputs carry provenance from inputs", func(t *testing.T) {
		ctx := newCtx(t, inc)
		in := ctx.Store.Num(il.Nat(1))
		outs, err := Run(ctx, "Inc", []*value.Value{in})
		require.NoError(t, err)
		node, ok := ctx.Store.Node(outs[0].VID())
		require.True(t, ok)
		assert.Contains(t, node.Deps, in.VID())
	})

	t.Run("fallthrough is RelFailed, not a default", func(t *testing.T) {
		empty := il.RelD{
			Id:        il.Id{Name: "Stuck"},
			Op:        il.MixOp{{}, {"|-"}, {}},
			InputIdxs: []int{0},
			Args:      []il.Exp{varE("n"), varE("m")},
			Instrs:    []il.Instr{&il.LetI{LHS: varE("k"), RHS: varE("n")}},
		}
		ctx := newCtx(t, empty)
		_, err := Run(ctx, "Stuck", []*value.Value{ctx.Store.Num(il.Nat(0))})
		require.Equal(t, RelFailedErr, KindOf(err))
		assert.Contains(t, err.Error(), "Stuck")
	})

	t.Run("iterated rule invocation lifts outputs", func(t *testing.T) {
		caller := rel0(
			&il.RuleI{
				Rel:   il.Id{Name: "Inc"},
				Not:   il.NotExp{Op: inc.Op, Args: []il.Exp{varE("n"), varE("m")}},
				Iters: []il.IterExp{{Iter: il.ListIter, Vars: []il.Id{{Name: "n"}}}},
			},
			&il.ResultI{Exps: []il.Exp{varE("m")}},
		)
		withInput := caller
		withInput.InputIdxs = []int{0}
		withInput.Args = []il.Exp{varE("n"), varE("out")}
		withInput.Op = il.MixOp{{}, {"|-"}, {}}
		ctx := newCtx(t, inc, withInput)
		ns := ctx.Store.List([]*value.Value{
			ctx.Store.Num(il.Nat(1)), ctx.Store.Num(il.Nat(2)), ctx.Store.Num(il.Nat(3)),
		}, nil)
		outs, err := Run(ctx, "R", []*value.Value{ns})
		require.NoError(t, err)
		assert.Equal(t, "[2, 3, 4]", outs[0].String())
	})

	t.Run("recursive relations hit the depth bound", func(t *testing.T) {
		loop := il.RelD{
			Id:        il.Id{Name: "Loop"},
			Op:        il.MixOp{{}, {"|-"}, {}},
			InputIdxs: []int{0},
			Args:      []il.Exp{varE("n"), varE("m")},
			Instrs: []il.Instr{
				&il.RuleI{Rel: il.Id{Name: "Loop"}, Not: il.NotExp{Op: il.MixOp{{}, {"|-"}, {}},
					Args: []il.Exp{varE("n"), varE("m")}}},
				&il.ResultI{Exps: []il.Exp{varE("m")}},
			},
		}
		spec, err := il.NewSpec([]il.Def{loop})
		require.NoError(t, err)
		ctx := NewContext(spec, Options{MaxDepth: 16})
		_, err = Run(ctx, "Loop", []*value.Value{ctx.Store.Num(il.Nat(0))})
		assert.Equal(t, StackOverflowErr, KindOf(err))
	})
}

func TestScopeDiscipline(t *testing.T) {
	t.Run("depth restored after success", func(t *testing.T) {
		ctx := newCtx(t, rel0(&il.ResultI{Exps: []il.Exp{natE(1)}}))
		before := ctx.ScopeDepth()
		_, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		assert.Equal(t, before, ctx.ScopeDepth())
	})

	t.Run("depth restored after failure", func(t *testing.T) {
		ctx := newCtx(t, rel0(
			&il.IfI{Cond: boolE(true), Body: []il.Instr{
				&il.LetI{LHS: caseE(someOp, varE("x")), RHS: caseE(noneOp)},
			}},
		))
		before := ctx.ScopeDepth()
		_, err := Run(ctx, "R", nil)
		require.Error(t, err)
		assert.Equal(t, before, ctx.ScopeDepth())
	})
}

func TestDeterminism(t *testing.T) {
	// Same IL, same input, two fresh contexts: identical outputs and
	// identical phantom logs.
	rel := rel0(
		&il.IfI{Cond: boolE(false), Body: []il.Instr{&il.ResultI{Exps: []il.Exp{natE(1)}}},
			Phantom: &il.Phantom{PID: 1}},
		&il.CaseI{
			Scrut: natE(3),
			Cases: []il.Case{{Guard: il.CmpG{Op: il.EqOp, OpTyp: natT, E: natE(0)},
				Body: []il.Instr{&il.ResultI{Exps: []il.Exp{natE(2)}}}}},
			Phantom: &il.Phantom{PID: 2},
		},
		&il.OtherwiseI{Body: &il.ResultI{Exps: []il.Exp{callE("$sum", listE(natE(1), natE(2)))}}},
	)

	run := func(t *testing.T) (string, []int) {
		ctx := newCtx(t, rel)
		outs, err := Run(ctx, "R", nil)
		require.NoError(t, err)
		return outs[0].String(), ctx.Phantoms.PIDs()
	}

	out1, pids1 := run(t)
	out2, pids2 := run(t)
	assert.Equal(t, out1, out2)
	assert.Equal(t, pids1, pids2)
	assert.Equal(t, "3", out1)
	assert.Equal(t, []int{1, 2}, pids1)
}

func TestDeadline(t *testing.T) {
	spin := il.RelD{
		Id:        il.Id{Name: "Spin"},
		Op:        il.MixOp{{}, {"|-"}, {}},
		InputIdxs: []int{0},
		Args:      []il.Exp{varE("n"), varE("m")},
		Instrs: []il.Instr{
			&il.RuleI{Rel: il.Id{Name: "Spin"}, Not: il.NotExp{Op: il.MixOp{{}, {"|-"}, {}},
				Args: []il.Exp{varE("n"), varE("m")}}},
			&il.ResultI{Exps: []il.Exp{varE("m")}},
		},
	}
	spec, err := il.NewSpec([]il.Def{spin})
	require.NoError(t, err)
	ctx := NewContext(spec, Options{
		MaxDepth: 1 << 30,
		Deadline: time.Now().Add(-time.Second), // already expired
	})
	_, err = Run(ctx, "Spin", []*value.Value{ctx.Store.Num(il.Nat(0))})
	assert.Equal(t, DeadlineErr, KindOf(err))
}
