package il

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reg(file string, line int) Region {
	return Region{File: file, Start: Pos{Line: line, Col: 1}, End: Pos{Line: line, Col: 9}}
}

func eb(t Typ) ExpBase { return ExpBase{Typ: t} }

// testSpec exercises every node kind of the interchange format at least
// once: all three definitions, all instruction forms, all guards, all
// path conditions, and a broad sample of expressions and patterns.
func testSpec(t *testing.T) *Spec {
	t.Helper()

	someOp := MixOp{{"Some"}, {}}
	noneOp := MixOp{{"None"}}
	judgOp := MixOp{{}, {"|-"}, {":"}, {}}

	valTy := TypD{
		Id: Id{Name: "val", At: reg("spec.watsup", 1)},
		Typ: VariantT{Cases: []CaseTyp{
			{Op: someOp, Args: []Typ{NumT{Kind: NatK}}},
			{Op: noneOp},
		}},
	}
	hdrTy := TypD{
		Id: Id{Name: "hdr", At: reg("spec.watsup", 2)},
		Typ: StructT{Fields: []FieldTyp{
			{Atom: "SIZE", Typ: NumT{Kind: NatK}},
			{Atom: "NAME", Typ: TextT{}},
		}},
	}

	sizeFn := DecD{
		Id:     Id{Name: "hdrsize"},
		Params: []Exp{&VarE{ExpBase: eb(VarT{Id: Id{Name: "hdr"}}), Id: Id{Name: "h"}}},
		Instrs: []Instr{
			&ReturnI{Exp: &DotE{
				ExpBase: eb(NumT{Kind: NatK}),
				E:       &VarE{ExpBase: eb(VarT{Id: Id{Name: "hdr"}}), Id: Id{Name: "h"}},
				Atom:    "SIZE",
			}},
		},
	}

	phantom7 := &Phantom{PID: 7, Conds: []PathCond{
		PlainC{E: &CmpE{ExpBase: eb(BoolT{}), Op: LtOp, OpTyp: NumT{Kind: NatK},
			L: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "n"}},
			R: &NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(8)}}},
		ForallC{
			E:     &VarE{ExpBase: eb(BoolT{}), Id: Id{Name: "ok"}},
			Iters: []IterExp{{Iter: ListIter, Vars: []Id{{Name: "ok"}}}},
		},
		ExistsC{
			E:     &VarE{ExpBase: eb(BoolT{}), Id: Id{Name: "seen"}},
			Iters: []IterExp{{Iter: OptIter, Vars: []Id{{Name: "seen"}}}},
		},
	}}

	rel := RelD{
		Id:        Id{Name: "Typing", At: reg("spec.watsup", 10)},
		Op:        judgOp,
		InputIdxs: []int{0, 1},
		Args: []Exp{
			&VarE{ExpBase: eb(VarT{Id: Id{Name: "hdr"}}), Id: Id{Name: "h"}},
			&VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "n"}},
			&VarE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Id: Id{Name: "v"}},
		},
		Instrs: []Instr{
			&LetI{
				InstrBase: InstrBase{At: reg("spec.watsup", 11)},
				LHS:       &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "sz"}},
				RHS: &CallE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "hdrsize"},
					Args: []Exp{&VarE{ExpBase: eb(VarT{Id: Id{Name: "hdr"}}), Id: Id{Name: "h"}}}},
			},
			&IfI{
				Cond: &CmpE{ExpBase: eb(BoolT{}), Op: GeOp, OpTyp: NumT{Kind: NatK},
					L: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "sz"}},
					R: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "n"}}},
				Body: []Instr{
					&CaseI{
						Scrut: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "n"}},
						Cases: []Case{
							{Guard: CmpG{Op: EqOp, OpTyp: NumT{Kind: NatK}, E: &NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(0)}},
								Body: []Instr{&ResultI{Exps: []Exp{&CaseE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Op: noneOp}}}}},
							{Guard: SubG{Typ: VarT{Id: Id{Name: "val"}}},
								Body: []Instr{&ResultI{Exps: []Exp{&VarE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Id: Id{Name: "n0"}}}}}},
							{Guard: MemG{E: &ListE{ExpBase: eb(ListT{Elem: NumT{Kind: NatK}}),
								Elems: []Exp{&NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(4)}}}},
								Body: []Instr{&ResultI{Exps: []Exp{&CaseE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Op: someOp,
									Args: []Exp{&VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "n"}}}}}}}},
							{Guard: MatchG{Pat: &CaseP{Op: someOp, Args: []Pattern{&VarP{Id: Id{Name: "x"}}}}},
								Body: []Instr{&ResultI{Exps: []Exp{&VarE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Id: Id{Name: "x"}}}}}},
							{Guard: BoolG{B: true},
								Body: []Instr{&RuleI{Rel: Id{Name: "Typing"}, Not: NotExp{Op: judgOp, Args: []Exp{
									&VarE{ExpBase: eb(VarT{Id: Id{Name: "hdr"}}), Id: Id{Name: "h"}},
									&NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(0)},
									&VarE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Id: Id{Name: "v0"}},
								}}}}},
						},
						Phantom: &Phantom{PID: 3},
					},
				},
				Phantom: phantom7,
			},
			&OtherwiseI{Body: &ResultI{Exps: []Exp{&CaseE{ExpBase: eb(VarT{Id: Id{Name: "val"}}), Op: noneOp}}}},
		},
	}

	mixFn := DecD{
		Id: Id{Name: "mix"},
		Params: []Exp{
			&VarE{ExpBase: eb(ListT{Elem: NumT{Kind: NatK}}), Id: Id{Name: "xs"}},
			&VarE{ExpBase: eb(OptT{Elem: TextT{}}), Id: Id{Name: "name"}},
		},
		Instrs: []Instr{
			&LetI{
				LHS: &VarE{ExpBase: eb(ListT{Elem: NumT{Kind: NatK}}), Id: Id{Name: "ys"}},
				RHS: &IterE{ExpBase: eb(ListT{Elem: NumT{Kind: NatK}}),
					E: &BinE{ExpBase: eb(NumT{Kind: NatK}), Op: MulOp, OpTyp: NumT{Kind: NatK},
						L: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "x"}},
						R: &NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(2)}},
					Iter: ListIter, Vars: []Id{{Name: "x"}}},
			},
			&ReturnI{Exp: &MatchE{ExpBase: eb(NumT{Kind: NatK}),
				Scrut: &VarE{ExpBase: eb(ListT{Elem: NumT{Kind: NatK}}), Id: Id{Name: "ys"}},
				Arms: []Arm{
					{Pat: &ListP{}, E: &NumE{ExpBase: eb(NumT{Kind: NatK}), N: Nat(0)}},
					{Pat: &ListP{Prefix: []Pattern{&VarP{Id: Id{Name: "y"}}}, Rest: &Id{Name: "rest"}},
						E: &VarE{ExpBase: eb(NumT{Kind: NatK}), Id: Id{Name: "y"}}},
				}}},
		},
	}

	spec, err := NewSpec([]Def{valTy, hdrTy, sizeFn, rel, mixFn})
	require.NoError(t, err)
	return spec
}

func TestRoundTrip(t *testing.T) {
	spec := testSpec(t)

	first, err := Encode(spec)
	require.NoError(t, err)

	decoded, err := Decode(first)
	require.NoError(t, err)

	second, err := Encode(decoded)
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Fatalf("round trip not stable (-first +second):\n%s", diff)
	}

	// The decoded tree is usable, not just re-printable.
	rel, ok := decoded.Rel("Typing")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, rel.InputIdxs)
	assert.Equal(t, []int{2}, rel.OutputIdxs())
	assert.Equal(t, 3, rel.Op.Arity())

	ifi, ok := rel.Instrs[1].(*IfI)
	require.True(t, ok)
	require.NotNil(t, ifi.Phantom)
	assert.Equal(t, 7, ifi.Phantom.PID)
	assert.Len(t, ifi.Phantom.Conds, 3)

	casei, ok := ifi.Body[0].(*CaseI)
	require.True(t, ok)
	assert.Len(t, casei.Cases, 5)
}

func TestRoundTripPreservesRegions(t *testing.T) {
	spec := testSpec(t)
	data, err := Encode(spec)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	rel, ok := decoded.Rel("Typing")
	require.True(t, ok)
	assert.Equal(t, reg("spec.watsup", 10), rel.Id.At)
	assert.Equal(t, reg("spec.watsup", 11), rel.Instrs[0].Region())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"unknown def":     `{"defs":[{"it":"FooD","id":{"name":"x"}}]}`,
		"unknown exp":     `{"defs":[{"it":"DecD","id":{"name":"f"},"instrs":[{"it":"ReturnI","e":{"it":"WeirdE"}}]}]}`,
		"bad num payload": `{"defs":[{"it":"DecD","id":{"name":"f"},"instrs":[{"it":"ReturnI","e":{"it":"NumE","num":{"kind":"nat","v":"xyz"}}}]}]}`,
		"bad iterator":    `{"defs":[{"it":"DecD","id":{"name":"f"},"instrs":[{"it":"LetI","l":{"it":"VarE","id":{"name":"x"}},"r":{"it":"VarE","id":{"name":"y"}},"iters":[{"iter":"tree"}]}]}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestMixOpEquality(t *testing.T) {
	a := MixOp{{"Some"}, {}}
	b := MixOp{{"Some"}, {}}
	c := MixOp{{"None"}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, 1, a.Arity())
	assert.Equal(t, 0, c.Arity())
	assert.Equal(t, 3, MixOp{{}, {"|-"}, {":"}, {}}.Arity())
}

func TestSpecRejectsDuplicates(t *testing.T) {
	_, err := NewSpec([]Def{
		TypD{Id: Id{Name: "t"}, Typ: BoolT{}},
		TypD{Id: Id{Name: "t"}, Typ: TextT{}},
	})
	assert.Error(t, err)
}
