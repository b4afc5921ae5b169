package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4spectec/internal/il"
	"p4spectec/internal/value"
)

func TestMatchBasics(t *testing.T) {
	ctx := newCtx(t)
	s := ctx.Store

	t.Run("wildcard matches anything, binds nothing", func(t *testing.T) {
		binds, ok := Match(ctx, &il.WildP{}, s.Text("anything"))
		require.True(t, ok)
		assert.Equal(t, 0, binds.Len())
	})

	t.Run("variable binds the whole value", func(t *testing.T) {
		v := s.Num(il.Nat(5))
		binds, ok := Match(ctx, varP("x"), v)
		require.True(t, ok)
		require.Equal(t, 1, binds.Len())
		binds.Each(func(id il.Id, bound *value.Value) {
			assert.Equal(t, "x", id.Name)
			assert.True(t, value.Equal(v, bound))
		})
	})

	t.Run("literals compare structurally", func(t *testing.T) {
		_, ok := Match(ctx, &il.NumP{N: il.Nat(5)}, s.Num(il.Nat(5)))
		assert.True(t, ok)
		_, ok = Match(ctx, &il.NumP{N: il.Nat(5)}, s.Num(il.Nat(6)))
		assert.False(t, ok)
		_, ok = Match(ctx, &il.NumP{N: il.Nat(5)}, s.Text("5"))
		assert.False(t, ok, "wrong kind is no match, not an error")
	})
}

func TestMatchCase(t *testing.T) {
	ctx := newCtx(t)
	s := ctx.Store
	some5, err := s.Case(someOp, []*value.Value{s.Num(il.Nat(5))}, nil)
	require.NoError(t, err)
	none, err := s.Case(noneOp, nil, nil)
	require.NoError(t, err)

	t.Run("operator and arguments must agree", func(t *testing.T) {
		binds, ok := Match(ctx, &il.CaseP{Op: someOp, Args: []il.Pattern{varP("x")}}, some5)
		require.True(t, ok)
		assert.Equal(t, 1, binds.Len())

		_, ok = Match(ctx, &il.CaseP{Op: someOp, Args: []il.Pattern{varP("x")}}, none)
		assert.False(t, ok)
	})

	t.Run("nested patterns recurse", func(t *testing.T) {
		pair, err := s.Case(pairOp, []*value.Value{some5, none}, nil)
		require.NoError(t, err)
		pat := &il.CaseP{Op: pairOp, Args: []il.Pattern{
			&il.CaseP{Op: someOp, Args: []il.Pattern{&il.NumP{N: il.Nat(5)}}},
			&il.CaseP{Op: noneOp},
		}}
		_, ok := Match(ctx, pat, pair)
		assert.True(t, ok)
	})
}

func TestMatchList(t *testing.T) {
	ctx := newCtx(t)
	s := ctx.Store
	nums := func(ns ...uint64) *value.Value {
		vs := make([]*value.Value, len(ns))
		for i, n := range ns {
			vs[i] = s.Num(il.Nat(n))
		}
		return s.List(vs, nil)
	}

	t.Run("prefix, rest, and suffix", func(t *testing.T) {
		rest := il.Id{Name: "mid"}
		pat := &il.ListP{
			Prefix: []il.Pattern{varP("first")},
			Rest:   &rest,
			Suffix: []il.Pattern{varP("last")},
		}
		binds, ok := Match(ctx, pat, nums(1, 2, 3, 4))
		require.True(t, ok)
		got := map[string]string{}
		binds.Each(func(id il.Id, v *value.Value) { got[id.Name] = v.String() })
		assert.Equal(t, map[string]string{"first": "1", "mid": "[2, 3]", "last": "4"}, got)
	})

	t.Run("too short is no match", func(t *testing.T) {
		pat := &il.ListP{Prefix: []il.Pattern{varP("a"), varP("b")}, Suffix: []il.Pattern{varP("c")}}
		_, ok := Match(ctx, pat, nums(1, 2))
		assert.False(t, ok)
	})

	t.Run("empty list pattern", func(t *testing.T) {
		_, ok := Match(ctx, &il.ListP{}, nums())
		assert.True(t, ok)
	})
}

func TestMatchTupleAndOpt(t *testing.T) {
	ctx := newCtx(t)
	s := ctx.Store

	t.Run("tuple arity must agree", func(t *testing.T) {
		tup := s.Tuple([]*value.Value{s.Bool(true), s.Text("x")}, nil)
		_, ok := Match(ctx, &il.TupleP{Elems: []il.Pattern{varP("a"), varP("b")}}, tup)
		assert.True(t, ok)
		_, ok = Match(ctx, &il.TupleP{Elems: []il.Pattern{varP("a")}}, tup)
		assert.False(t, ok)
	})

	t.Run("option presence", func(t *testing.T) {
		somev := s.Opt(s.Num(il.Nat(1)), nil)
		nonev := s.Opt(nil, nil)
		_, ok := Match(ctx, &il.OptP{Elem: varP("x")}, somev)
		assert.True(t, ok)
		_, ok = Match(ctx, &il.OptP{Elem: varP("x")}, nonev)
		assert.False(t, ok)
		_, ok = Match(ctx, &il.OptP{}, nonev)
		assert.True(t, ok)
		_, ok = Match(ctx, &il.OptP{}, somev)
		assert.False(t, ok)
	})
}
