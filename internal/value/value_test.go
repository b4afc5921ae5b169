package value

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p4spectec/internal/il"
)

var (
	someOp = il.MixOp{{"Some"}, {}}
	noneOp = il.MixOp{{"None"}}
)

func TestAccessors(t *testing.T) {
	s := NewStore()

	t.Run("matching views succeed", func(t *testing.T) {
		b, err := s.Bool(true).AsBool()
		require.NoError(t, err)
		assert.True(t, b)

		n, err := s.Num(il.Nat(42)).AsNum()
		require.NoError(t, err)
		assert.Equal(t, "42", n.String())

		elems, err := s.List([]*Value{s.Num(il.Nat(1))}, nil).AsList()
		require.NoError(t, err)
		assert.Len(t, elems, 1)
	})

	t.Run("mismatched views fail", func(t *testing.T) {
		_, err := s.Bool(true).AsNum()
		var mismatch *MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "num", mismatch.Expected)
		assert.Equal(t, "bool", mismatch.Actual)

		_, err = s.Text("x").AsList()
		assert.Error(t, err)
	})

	t.Run("case view checks the operator", func(t *testing.T) {
		v, err := s.Case(someOp, []*Value{s.Num(il.Nat(1))}, nil)
		require.NoError(t, err)

		args, err := v.AsCase(someOp)
		require.NoError(t, err)
		assert.Len(t, args, 1)

		_, err = v.AsCase(noneOp)
		assert.Error(t, err)
	})

	t.Run("struct field projection", func(t *testing.T) {
		v, err := s.Struct([]Field{{Atom: "SIZE", V: s.Num(il.Nat(4))}}, nil)
		require.NoError(t, err)
		f, err := v.StructField("SIZE")
		require.NoError(t, err)
		assert.Equal(t, NumK, f.Kind())
		_, err = v.StructField("NAME")
		assert.Error(t, err)
	})
}

func TestEqualityIgnoresIdentity(t *testing.T) {
	s := NewStore()
	a := s.Num(il.Nat(7))
	b := s.Num(il.Nat(7))
	require.NotEqual(t, a.VID(), b.VID())
	assert.True(t, Equal(a, b))

	t.Run("deep structures", func(t *testing.T) {
		mk := func() *Value {
			inner, err := s.Case(someOp, []*Value{s.Num(il.Nat(1))}, nil)
			require.NoError(t, err)
			return s.List([]*Value{inner, s.Opt(nil, nil)}, nil)
		}
		assert.True(t, Equal(mk(), mk()))
	})

	t.Run("payload differences are seen", func(t *testing.T) {
		assert.False(t, Equal(s.Num(il.Nat(1)), s.Num(il.Int(1)))) // kind differs
		assert.False(t, Equal(s.Opt(nil, nil), s.Opt(s.Bool(true), nil)))
		assert.False(t, Equal(s.Text("a"), s.Text("b")))
	})
}

func TestWellFormedness(t *testing.T) {
	s := NewStore()
	variant := il.VariantT{Cases: []il.CaseTyp{
		{Op: someOp, Args: []il.Typ{il.NumT{Kind: il.NatK}}},
		{Op: noneOp},
	}}

	t.Run("constructor arity is enforced", func(t *testing.T) {
		_, err := s.Case(someOp, nil, variant)
		assert.Error(t, err)
		_, err = s.Case(someOp, []*Value{s.Num(il.Nat(1))}, variant)
		assert.NoError(t, err)
	})

	t.Run("unknown constructor is rejected", func(t *testing.T) {
		_, err := s.Case(il.MixOp{{"Bogus"}}, nil, variant)
		assert.Error(t, err)
	})

	t.Run("record fields must match the declaration", func(t *testing.T) {
		st := il.StructT{Fields: []il.FieldTyp{
			{Atom: "SIZE", Typ: il.NumT{Kind: il.NatK}},
			{Atom: "NAME", Typ: il.TextT{}},
		}}
		_, err := s.Struct([]Field{{Atom: "SIZE", V: s.Num(il.Nat(1))}}, st)
		assert.Error(t, err, "missing field")
		_, err = s.Struct([]Field{
			{Atom: "NAME", V: s.Text("x")},
			{Atom: "SIZE", V: s.Num(il.Nat(1))},
		}, st)
		assert.Error(t, err, "order matters")
		_, err = s.Struct([]Field{
			{Atom: "SIZE", V: s.Num(il.Nat(1))},
			{Atom: "NAME", V: s.Text("x")},
		}, st)
		assert.NoError(t, err)
	})
}

func TestValueGraph(t *testing.T) {
	s := NewStore()
	a := s.Num(il.Nat(1))
	b := s.Num(il.Nat(2))
	c := s.Num(il.Nat(3))

	t.Run("vids are dense and ascending", func(t *testing.T) {
		assert.Equal(t, uint64(1), a.VID())
		assert.Equal(t, uint64(2), b.VID())
		assert.Equal(t, uint64(3), c.VID())
		assert.Equal(t, 3, s.Size())
	})

	t.Run("links point backwards only", func(t *testing.T) {
		require.NoError(t, s.Link(c.VID(), a.VID(), b.VID()))
		node, ok := s.Node(c.VID())
		require.True(t, ok)
		assert.Equal(t, []uint64{1, 2}, node.Deps)

		assert.Error(t, s.Link(a.VID(), c.VID()), "forward link")
		assert.Error(t, s.Link(a.VID(), a.VID()), "self link")
		assert.Error(t, s.Link(99, 1), "unknown vid")
	})
}

func TestValueJSONRoundTrip(t *testing.T) {
	s := NewStore()
	inner, err := s.Case(someOp, []*Value{s.Num(il.Bits(8, big.NewInt(255)))}, nil)
	require.NoError(t, err)
	rec, err := s.Struct([]Field{
		{Atom: "SIZE", V: s.Num(il.Nat(14))},
		{Atom: "NAME", V: s.Text("ethernet")},
	}, nil)
	require.NoError(t, err)
	v := s.Tuple([]*Value{
		inner,
		rec,
		s.List([]*Value{s.Bool(true), s.Bool(false)}, nil),
		s.Opt(s.Text("x"), nil),
		s.Opt(nil, nil),
		s.Func("hdrsize"),
	}, nil)

	data, err := EncodeValue(v)
	require.NoError(t, err)

	s2 := NewStore()
	back, err := DecodeValue(s2, data)
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}
