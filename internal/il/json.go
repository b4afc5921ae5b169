package il

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// The IL interchange format. Every node encodes as an object whose "it"
// field names the constructor, matching the abstract grammar; payload
// fields are lowercase. Decode(Encode(spec)) reproduces the tree exactly,
// regions included; consumers that do not care about regions may strip
// them, equality never depends on them.

// Encode serializes a spec to the interchange format.
func Encode(s *Spec) ([]byte, error) {
	defs := make([]*defWire, len(s.Defs))
	for i, d := range s.Defs {
		w, err := defToWire(d)
		if err != nil {
			return nil, err
		}
		defs[i] = w
	}
	return json.MarshalIndent(specWire{Defs: defs}, "", "  ")
}

// Decode parses the interchange format into a spec.
func Decode(data []byte) (*Spec, error) {
	var w specWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("il: malformed spec: %w", err)
	}
	defs := make([]Def, len(w.Defs))
	for i, dw := range w.Defs {
		d, err := wireToDef(dw)
		if err != nil {
			return nil, fmt.Errorf("il: def %d: %w", i, err)
		}
		defs[i] = d
	}
	return NewSpec(defs)
}

type specWire struct {
	Defs []*defWire `json:"defs"`
}

type regionWire struct {
	File  string `json:"file,omitempty"`
	Start Pos    `json:"start,omitempty"`
	End   Pos    `json:"end,omitempty"`
}

func regionToWire(r Region) *regionWire {
	if r.IsNone() {
		return nil
	}
	return &regionWire{File: r.File, Start: r.Start, End: r.End}
}

func wireToRegion(w *regionWire) Region {
	if w == nil {
		return NoRegion
	}
	return Region{File: w.File, Start: w.Start, End: w.End}
}

type idWire struct {
	Name string      `json:"name"`
	At   *regionWire `json:"at,omitempty"`
}

func idToWire(id Id) *idWire { return &idWire{Name: id.Name, At: regionToWire(id.At)} }

func wireToId(w *idWire) Id {
	if w == nil {
		return Id{}
	}
	return Id{Name: w.Name, At: wireToRegion(w.At)}
}

func idsToWire(ids []Id) []*idWire {
	if len(ids) == 0 {
		return nil
	}
	ws := make([]*idWire, len(ids))
	for i, id := range ids {
		ws[i] = idToWire(id)
	}
	return ws
}

func wireToIds(ws []*idWire) []Id {
	if len(ws) == 0 {
		return nil
	}
	ids := make([]Id, len(ws))
	for i, w := range ws {
		ids[i] = wireToId(w)
	}
	return ids
}

type numWire struct {
	Kind  string `json:"kind"`
	Width uint   `json:"width,omitempty"`
	V     string `json:"v"`
}

func numToWire(n Num) *numWire {
	return &numWire{Kind: n.Kind().String(), Width: n.Width(), V: n.Big().Text(10)}
}

func wireToNum(w *numWire) (Num, error) {
	if w == nil {
		return Num{}, fmt.Errorf("missing number")
	}
	v, ok := new(big.Int).SetString(w.V, 10)
	if !ok {
		return Num{}, fmt.Errorf("malformed numeric payload %q", w.V)
	}
	var kind NumKind
	switch w.Kind {
	case "nat":
		kind = NatK
	case "int":
		kind = IntK
	case "bits":
		kind = BitsK
	default:
		return Num{}, fmt.Errorf("unknown numeric kind %q", w.Kind)
	}
	return FromBig(kind, w.Width, v)
}

type typWire struct {
	It    string `json:"it"`
	Kind  string `json:"kind,omitempty"`
	Width uint   `json:"width,omitempty"`

	Id     *idWire     `json:"id,omitempty"`
	Elem   *typWire    `json:"elem,omitempty"`
	Elems  []*typWire  `json:"elems,omitempty"`
	Args   []*typWire  `json:"args,omitempty"`
	Fields []fieldTypW `json:"fields,omitempty"`
	Cases  []caseTypW  `json:"cases,omitempty"`
	Iter   string      `json:"iter,omitempty"`
}

type fieldTypW struct {
	Atom string   `json:"atom"`
	Typ  *typWire `json:"typ"`
}

type caseTypW struct {
	MixOp MixOp      `json:"mixop"`
	Args  []*typWire `json:"args,omitempty"`
}

func typToWire(t Typ) *typWire {
	switch x := t.(type) {
	case nil:
		return nil
	case BoolT:
		return &typWire{It: "BoolT"}
	case NumT:
		return &typWire{It: "NumT", Kind: x.Kind.String(), Width: x.Width}
	case TextT:
		return &typWire{It: "TextT"}
	case ListT:
		return &typWire{It: "ListT", Elem: typToWire(x.Elem)}
	case TupleT:
		return &typWire{It: "TupleT", Elems: typsToWire(x.Elems)}
	case OptT:
		return &typWire{It: "OptT", Elem: typToWire(x.Elem)}
	case VarT:
		return &typWire{It: "VarT", Id: idToWire(x.Id), Args: typsToWire(x.Args)}
	case StructT:
		fields := make([]fieldTypW, len(x.Fields))
		for i, f := range x.Fields {
			fields[i] = fieldTypW{Atom: f.Atom, Typ: typToWire(f.Typ)}
		}
		return &typWire{It: "StructT", Fields: fields}
	case VariantT:
		cases := make([]caseTypW, len(x.Cases))
		for i, c := range x.Cases {
			cases[i] = caseTypW{MixOp: c.Op, Args: typsToWire(c.Args)}
		}
		return &typWire{It: "VariantT", Cases: cases}
	case IterT:
		return &typWire{It: "IterT", Elem: typToWire(x.Elem), Iter: x.Iter.String()}
	case FuncT:
		return &typWire{It: "FuncT"}
	default:
		return &typWire{It: fmt.Sprintf("unknown:%T", t)}
	}
}

func typsToWire(ts []Typ) []*typWire {
	if len(ts) == 0 {
		return nil
	}
	ws := make([]*typWire, len(ts))
	for i, t := range ts {
		ws[i] = typToWire(t)
	}
	return ws
}

func wireToTyp(w *typWire) (Typ, error) {
	if w == nil {
		return nil, nil
	}
	switch w.It {
	case "BoolT":
		return BoolT{}, nil
	case "NumT":
		switch w.Kind {
		case "nat":
			return NumT{Kind: NatK}, nil
		case "int":
			return NumT{Kind: IntK}, nil
		case "bits":
			return NumT{Kind: BitsK, Width: w.Width}, nil
		default:
			return nil, fmt.Errorf("NumT: unknown kind %q", w.Kind)
		}
	case "TextT":
		return TextT{}, nil
	case "ListT":
		elem, err := wireToTyp(w.Elem)
		if err != nil {
			return nil, err
		}
		return ListT{Elem: elem}, nil
	case "TupleT":
		elems, err := wireToTyps(w.Elems)
		if err != nil {
			return nil, err
		}
		return TupleT{Elems: elems}, nil
	case "OptT":
		elem, err := wireToTyp(w.Elem)
		if err != nil {
			return nil, err
		}
		return OptT{Elem: elem}, nil
	case "VarT":
		args, err := wireToTyps(w.Args)
		if err != nil {
			return nil, err
		}
		return VarT{Id: wireToId(w.Id), Args: args}, nil
	case "StructT":
		fields := make([]FieldTyp, len(w.Fields))
		for i, f := range w.Fields {
			ft, err := wireToTyp(f.Typ)
			if err != nil {
				return nil, err
			}
			fields[i] = FieldTyp{Atom: f.Atom, Typ: ft}
		}
		return StructT{Fields: fields}, nil
	case "VariantT":
		cases := make([]CaseTyp, len(w.Cases))
		for i, c := range w.Cases {
			args, err := wireToTyps(c.Args)
			if err != nil {
				return nil, err
			}
			cases[i] = CaseTyp{Op: c.MixOp, Args: args}
		}
		return VariantT{Cases: cases}, nil
	case "IterT":
		elem, err := wireToTyp(w.Elem)
		if err != nil {
			return nil, err
		}
		it, err := wireToIter(w.Iter)
		if err != nil {
			return nil, err
		}
		return IterT{Elem: elem, Iter: it}, nil
	case "FuncT":
		return FuncT{}, nil
	default:
		return nil, fmt.Errorf("unknown type node %q", w.It)
	}
}

func wireToTyps(ws []*typWire) ([]Typ, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	ts := make([]Typ, len(ws))
	for i, w := range ws {
		t, err := wireToTyp(w)
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}
	return ts, nil
}

func wireToIter(s string) (Iter, error) {
	switch s {
	case "opt":
		return OptIter, nil
	case "list":
		return ListIter, nil
	default:
		return 0, fmt.Errorf("unknown iterator %q", s)
	}
}

type iterExpWire struct {
	Iter string    `json:"iter"`
	Vars []*idWire `json:"vars,omitempty"`
}

func iterExpsToWire(ies []IterExp) []iterExpWire {
	if len(ies) == 0 {
		return nil
	}
	ws := make([]iterExpWire, len(ies))
	for i, ie := range ies {
		ws[i] = iterExpWire{Iter: ie.Iter.String(), Vars: idsToWire(ie.Vars)}
	}
	return ws
}

func wireToIterExps(ws []iterExpWire) ([]IterExp, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	ies := make([]IterExp, len(ws))
	for i, w := range ws {
		it, err := wireToIter(w.Iter)
		if err != nil {
			return nil, err
		}
		ies[i] = IterExp{Iter: it, Vars: wireToIds(w.Vars)}
	}
	return ies, nil
}

type expWire struct {
	It   string      `json:"it"`
	At   *regionWire `json:"at,omitempty"`
	Note *typWire    `json:"note,omitempty"`

	Bool   *bool       `json:"bool,omitempty"`
	Num    *numWire    `json:"num,omitempty"`
	Text   *string     `json:"text,omitempty"`
	Id     *idWire     `json:"id,omitempty"`
	Op     string      `json:"op,omitempty"`
	OpTyp  *typWire    `json:"optyp,omitempty"`
	L      *expWire    `json:"l,omitempty"`
	R      *expWire    `json:"r,omitempty"`
	E      *expWire    `json:"e,omitempty"`
	Exps   []*expWire  `json:"exps,omitempty"`
	MixOp  MixOp       `json:"mixop,omitempty"`
	Atom   string      `json:"atom,omitempty"`
	Idx    *int        `json:"idx,omitempty"`
	Iter   string      `json:"iter,omitempty"`
	Vars   []*idWire   `json:"vars,omitempty"`
	Fields []fieldExpW `json:"fields,omitempty"`
	Arms   []armWire   `json:"arms,omitempty"`
	Typ    *typWire    `json:"typ,omitempty"`
}

type fieldExpW struct {
	Atom string   `json:"atom"`
	E    *expWire `json:"e"`
}

type armWire struct {
	Pat *patWire `json:"pat"`
	E   *expWire `json:"e"`
}

func expToWire(e Exp) (*expWire, error) {
	if e == nil {
		return nil, nil
	}
	w := &expWire{At: regionToWire(e.Region()), Note: typToWire(e.Note())}
	var err error
	switch x := e.(type) {
	case *BoolE:
		w.It, w.Bool = "BoolE", &x.B
	case *NumE:
		w.It, w.Num = "NumE", numToWire(x.N)
	case *TextE:
		w.It, w.Text = "TextE", &x.S
	case *VarE:
		w.It, w.Id = "VarE", idToWire(x.Id)
	case *UnE:
		w.It, w.Op, w.OpTyp = "UnE", x.Op.String(), typToWire(x.OpTyp)
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *BinE:
		w.It, w.Op, w.OpTyp = "BinE", x.Op.String(), typToWire(x.OpTyp)
		if w.L, err = expToWire(x.L); err != nil {
			return nil, err
		}
		if w.R, err = expToWire(x.R); err != nil {
			return nil, err
		}
	case *CmpE:
		w.It, w.Op, w.OpTyp = "CmpE", x.Op.String(), typToWire(x.OpTyp)
		if w.L, err = expToWire(x.L); err != nil {
			return nil, err
		}
		if w.R, err = expToWire(x.R); err != nil {
			return nil, err
		}
	case *TupleE:
		w.It = "TupleE"
		if w.Exps, err = expsToWire(x.Elems); err != nil {
			return nil, err
		}
	case *CaseE:
		w.It, w.MixOp = "CaseE", x.Op
		if w.Exps, err = expsToWire(x.Args); err != nil {
			return nil, err
		}
	case *OptE:
		w.It = "OptE"
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *ListE:
		w.It = "ListE"
		if w.Exps, err = expsToWire(x.Elems); err != nil {
			return nil, err
		}
	case *StrE:
		w.It = "StrE"
		w.Fields = make([]fieldExpW, len(x.Fields))
		for i, f := range x.Fields {
			fe, err := expToWire(f.E)
			if err != nil {
				return nil, err
			}
			w.Fields[i] = fieldExpW{Atom: f.Atom, E: fe}
		}
	case *DotE:
		w.It, w.Atom = "DotE", x.Atom
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *ProjE:
		idx := x.Idx
		w.It, w.Idx = "ProjE", &idx
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *HeadE:
		w.It = "HeadE"
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *TailE:
		w.It = "TailE"
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *LenE:
		w.It = "LenE"
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *MemE:
		w.It = "MemE"
		if w.L, err = expToWire(x.Elem); err != nil {
			return nil, err
		}
		if w.R, err = expToWire(x.List); err != nil {
			return nil, err
		}
	case *CatE:
		w.It = "CatE"
		if w.L, err = expToWire(x.L); err != nil {
			return nil, err
		}
		if w.R, err = expToWire(x.R); err != nil {
			return nil, err
		}
	case *IterE:
		w.It, w.Iter, w.Vars = "IterE", x.Iter.String(), idsToWire(x.Vars)
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	case *CallE:
		w.It, w.Id = "CallE", idToWire(x.Id)
		if w.Exps, err = expsToWire(x.Args); err != nil {
			return nil, err
		}
	case *MatchE:
		w.It = "MatchE"
		if w.E, err = expToWire(x.Scrut); err != nil {
			return nil, err
		}
		w.Arms = make([]armWire, len(x.Arms))
		for i, a := range x.Arms {
			pw, err := patToWire(a.Pat)
			if err != nil {
				return nil, err
			}
			ew, err := expToWire(a.E)
			if err != nil {
				return nil, err
			}
			w.Arms[i] = armWire{Pat: pw, E: ew}
		}
	case *SubE:
		w.It, w.Typ = "SubE", typToWire(x.Typ)
		if w.E, err = expToWire(x.E); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown expression node %T", e)
	}
	return w, nil
}

func expsToWire(es []Exp) ([]*expWire, error) {
	if len(es) == 0 {
		return nil, nil
	}
	ws := make([]*expWire, len(es))
	for i, e := range es {
		w, err := expToWire(e)
		if err != nil {
			return nil, err
		}
		ws[i] = w
	}
	return ws, nil
}

func wireToExp(w *expWire) (Exp, error) {
	if w == nil {
		return nil, nil
	}
	note, err := wireToTyp(w.Note)
	if err != nil {
		return nil, err
	}
	base := ExpBase{At: wireToRegion(w.At), Typ: note}
	switch w.It {
	case "BoolE":
		if w.Bool == nil {
			return nil, fmt.Errorf("BoolE: missing payload")
		}
		return &BoolE{ExpBase: base, B: *w.Bool}, nil
	case "NumE":
		n, err := wireToNum(w.Num)
		if err != nil {
			return nil, err
		}
		return &NumE{ExpBase: base, N: n}, nil
	case "TextE":
		if w.Text == nil {
			return nil, fmt.Errorf("TextE: missing payload")
		}
		return &TextE{ExpBase: base, S: *w.Text}, nil
	case "VarE":
		return &VarE{ExpBase: base, Id: wireToId(w.Id)}, nil
	case "UnE":
		op, err := wireToUnOp(w.Op)
		if err != nil {
			return nil, err
		}
		optyp, err := wireToTyp(w.OpTyp)
		if err != nil {
			return nil, err
		}
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &UnE{ExpBase: base, Op: op, OpTyp: optyp, E: e}, nil
	case "BinE":
		op, err := wireToBinOp(w.Op)
		if err != nil {
			return nil, err
		}
		optyp, err := wireToTyp(w.OpTyp)
		if err != nil {
			return nil, err
		}
		l, err := wireToExp(w.L)
		if err != nil {
			return nil, err
		}
		r, err := wireToExp(w.R)
		if err != nil {
			return nil, err
		}
		return &BinE{ExpBase: base, Op: op, OpTyp: optyp, L: l, R: r}, nil
	case "CmpE":
		op, err := wireToCmpOp(w.Op)
		if err != nil {
			return nil, err
		}
		optyp, err := wireToTyp(w.OpTyp)
		if err != nil {
			return nil, err
		}
		l, err := wireToExp(w.L)
		if err != nil {
			return nil, err
		}
		r, err := wireToExp(w.R)
		if err != nil {
			return nil, err
		}
		return &CmpE{ExpBase: base, Op: op, OpTyp: optyp, L: l, R: r}, nil
	case "TupleE":
		es, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		return &TupleE{ExpBase: base, Elems: es}, nil
	case "CaseE":
		es, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		return &CaseE{ExpBase: base, Op: w.MixOp, Args: es}, nil
	case "OptE":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &OptE{ExpBase: base, E: e}, nil
	case "ListE":
		es, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		return &ListE{ExpBase: base, Elems: es}, nil
	case "StrE":
		fields := make([]FieldExp, len(w.Fields))
		for i, f := range w.Fields {
			fe, err := wireToExp(f.E)
			if err != nil {
				return nil, err
			}
			fields[i] = FieldExp{Atom: f.Atom, E: fe}
		}
		return &StrE{ExpBase: base, Fields: fields}, nil
	case "DotE":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &DotE{ExpBase: base, E: e, Atom: w.Atom}, nil
	case "ProjE":
		if w.Idx == nil {
			return nil, fmt.Errorf("ProjE: missing index")
		}
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &ProjE{ExpBase: base, E: e, Idx: *w.Idx}, nil
	case "HeadE":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &HeadE{ExpBase: base, E: e}, nil
	case "TailE":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &TailE{ExpBase: base, E: e}, nil
	case "LenE":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &LenE{ExpBase: base, E: e}, nil
	case "MemE":
		l, err := wireToExp(w.L)
		if err != nil {
			return nil, err
		}
		r, err := wireToExp(w.R)
		if err != nil {
			return nil, err
		}
		return &MemE{ExpBase: base, Elem: l, List: r}, nil
	case "CatE":
		l, err := wireToExp(w.L)
		if err != nil {
			return nil, err
		}
		r, err := wireToExp(w.R)
		if err != nil {
			return nil, err
		}
		return &CatE{ExpBase: base, L: l, R: r}, nil
	case "IterE":
		it, err := wireToIter(w.Iter)
		if err != nil {
			return nil, err
		}
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &IterE{ExpBase: base, E: e, Iter: it, Vars: wireToIds(w.Vars)}, nil
	case "CallE":
		es, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		return &CallE{ExpBase: base, Id: wireToId(w.Id), Args: es}, nil
	case "MatchE":
		scrut, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		arms := make([]Arm, len(w.Arms))
		for i, a := range w.Arms {
			p, err := wireToPat(a.Pat)
			if err != nil {
				return nil, err
			}
			e, err := wireToExp(a.E)
			if err != nil {
				return nil, err
			}
			arms[i] = Arm{Pat: p, E: e}
		}
		return &MatchE{ExpBase: base, Scrut: scrut, Arms: arms}, nil
	case "SubE":
		t, err := wireToTyp(w.Typ)
		if err != nil {
			return nil, err
		}
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &SubE{ExpBase: base, E: e, Typ: t}, nil
	default:
		return nil, fmt.Errorf("unknown expression node %q", w.It)
	}
}

func wireToExps(ws []*expWire) ([]Exp, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	es := make([]Exp, len(ws))
	for i, w := range ws {
		e, err := wireToExp(w)
		if err != nil {
			return nil, err
		}
		es[i] = e
	}
	return es, nil
}

func wireToUnOp(s string) (UnOp, error) {
	switch s {
	case "not":
		return NotOp, nil
	case "neg":
		return NegOp, nil
	default:
		return 0, fmt.Errorf("unknown unary operator %q", s)
	}
}

func wireToBinOp(s string) (BinOp, error) {
	switch s {
	case "and":
		return AndOp, nil
	case "or":
		return OrOp, nil
	case "impl":
		return ImplOp, nil
	case "add":
		return AddOp, nil
	case "sub":
		return SubOp, nil
	case "mul":
		return MulOp, nil
	case "div":
		return DivOp, nil
	case "mod":
		return ModOp, nil
	case "cat":
		return CatTextOp, nil
	default:
		return 0, fmt.Errorf("unknown binary operator %q", s)
	}
}

func wireToCmpOp(s string) (CmpOp, error) {
	switch s {
	case "eq":
		return EqOp, nil
	case "ne":
		return NeOp, nil
	case "lt":
		return LtOp, nil
	case "gt":
		return GtOp, nil
	case "le":
		return LeOp, nil
	case "ge":
		return GeOp, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

type patWire struct {
	It   string      `json:"it"`
	At   *regionWire `json:"at,omitempty"`
	Id   *idWire     `json:"id,omitempty"`
	Bool *bool       `json:"bool,omitempty"`
	Num  *numWire    `json:"num,omitempty"`
	Text *string     `json:"text,omitempty"`

	MixOp  MixOp      `json:"mixop,omitempty"`
	Args   []*patWire `json:"args,omitempty"`
	Prefix []*patWire `json:"prefix,omitempty"`
	Rest   *idWire    `json:"rest,omitempty"`
	Suffix []*patWire `json:"suffix,omitempty"`
	Elem   *patWire   `json:"elem,omitempty"`
	Some   bool       `json:"some,omitempty"`
}

func patToWire(p Pattern) (*patWire, error) {
	if p == nil {
		return nil, nil
	}
	w := &patWire{At: regionToWire(p.Region())}
	var err error
	switch x := p.(type) {
	case *WildP:
		w.It = "WildP"
	case *VarP:
		w.It, w.Id = "VarP", idToWire(x.Id)
	case *BoolP:
		w.It, w.Bool = "BoolP", &x.B
	case *NumP:
		w.It, w.Num = "NumP", numToWire(x.N)
	case *TextP:
		w.It, w.Text = "TextP", &x.S
	case *CaseP:
		w.It, w.MixOp = "CaseP", x.Op
		if w.Args, err = patsToWire(x.Args); err != nil {
			return nil, err
		}
	case *TupleP:
		w.It = "TupleP"
		if w.Args, err = patsToWire(x.Elems); err != nil {
			return nil, err
		}
	case *ListP:
		w.It = "ListP"
		if w.Prefix, err = patsToWire(x.Prefix); err != nil {
			return nil, err
		}
		if x.Rest != nil {
			w.Rest = idToWire(*x.Rest)
		}
		if w.Suffix, err = patsToWire(x.Suffix); err != nil {
			return nil, err
		}
	case *OptP:
		w.It, w.Some = "OptP", x.Elem != nil
		if w.Elem, err = patToWire(x.Elem); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown pattern node %T", p)
	}
	return w, nil
}

func patsToWire(ps []Pattern) ([]*patWire, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	ws := make([]*patWire, len(ps))
	for i, p := range ps {
		w, err := patToWire(p)
		if err != nil {
			return nil, err
		}
		ws[i] = w
	}
	return ws, nil
}

func wireToPat(w *patWire) (Pattern, error) {
	if w == nil {
		return nil, nil
	}
	base := PatBase{At: wireToRegion(w.At)}
	switch w.It {
	case "WildP":
		return &WildP{PatBase: base}, nil
	case "VarP":
		return &VarP{PatBase: base, Id: wireToId(w.Id)}, nil
	case "BoolP":
		if w.Bool == nil {
			return nil, fmt.Errorf("BoolP: missing payload")
		}
		return &BoolP{PatBase: base, B: *w.Bool}, nil
	case "NumP":
		n, err := wireToNum(w.Num)
		if err != nil {
			return nil, err
		}
		return &NumP{PatBase: base, N: n}, nil
	case "TextP":
		if w.Text == nil {
			return nil, fmt.Errorf("TextP: missing payload")
		}
		return &TextP{PatBase: base, S: *w.Text}, nil
	case "CaseP":
		args, err := wireToPats(w.Args)
		if err != nil {
			return nil, err
		}
		return &CaseP{PatBase: base, Op: w.MixOp, Args: args}, nil
	case "TupleP":
		elems, err := wireToPats(w.Args)
		if err != nil {
			return nil, err
		}
		return &TupleP{PatBase: base, Elems: elems}, nil
	case "ListP":
		prefix, err := wireToPats(w.Prefix)
		if err != nil {
			return nil, err
		}
		suffix, err := wireToPats(w.Suffix)
		if err != nil {
			return nil, err
		}
		var rest *Id
		if w.Rest != nil {
			id := wireToId(w.Rest)
			rest = &id
		}
		return &ListP{PatBase: base, Prefix: prefix, Rest: rest, Suffix: suffix}, nil
	case "OptP":
		elem, err := wireToPat(w.Elem)
		if err != nil {
			return nil, err
		}
		if w.Some && elem == nil {
			return nil, fmt.Errorf("OptP: present option without payload pattern")
		}
		return &OptP{PatBase: base, Elem: elem}, nil
	default:
		return nil, fmt.Errorf("unknown pattern node %q", w.It)
	}
}

func wireToPats(ws []*patWire) ([]Pattern, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	ps := make([]Pattern, len(ws))
	for i, w := range ws {
		p, err := wireToPat(w)
		if err != nil {
			return nil, err
		}
		ps[i] = p
	}
	return ps, nil
}

type pathCondWire struct {
	It    string        `json:"it"`
	E     *expWire      `json:"e"`
	Iters []iterExpWire `json:"iters,omitempty"`
}

type phantomWire struct {
	PID   int            `json:"pid"`
	Conds []pathCondWire `json:"conds,omitempty"`
}

func phantomToWire(p *Phantom) (*phantomWire, error) {
	if p == nil {
		return nil, nil
	}
	w := &phantomWire{PID: p.PID}
	for _, c := range p.Conds {
		var cw pathCondWire
		var err error
		switch x := c.(type) {
		case ForallC:
			cw.It = "ForallC"
			cw.Iters = iterExpsToWire(x.Iters)
			cw.E, err = expToWire(x.E)
		case ExistsC:
			cw.It = "ExistsC"
			cw.Iters = iterExpsToWire(x.Iters)
			cw.E, err = expToWire(x.E)
		case PlainC:
			cw.It = "PlainC"
			cw.E, err = expToWire(x.E)
		default:
			err = fmt.Errorf("unknown path condition %T", c)
		}
		if err != nil {
			return nil, err
		}
		w.Conds = append(w.Conds, cw)
	}
	return w, nil
}

func wireToPhantom(w *phantomWire) (*Phantom, error) {
	if w == nil {
		return nil, nil
	}
	p := &Phantom{PID: w.PID}
	for _, cw := range w.Conds {
		e, err := wireToExp(cw.E)
		if err != nil {
			return nil, err
		}
		iters, err := wireToIterExps(cw.Iters)
		if err != nil {
			return nil, err
		}
		switch cw.It {
		case "ForallC":
			p.Conds = append(p.Conds, ForallC{E: e, Iters: iters})
		case "ExistsC":
			p.Conds = append(p.Conds, ExistsC{E: e, Iters: iters})
		case "PlainC":
			p.Conds = append(p.Conds, PlainC{E: e})
		default:
			return nil, fmt.Errorf("unknown path condition %q", cw.It)
		}
	}
	return p, nil
}

type guardWire struct {
	It    string   `json:"it"`
	Bool  *bool    `json:"bool,omitempty"`
	Op    string   `json:"op,omitempty"`
	OpTyp *typWire `json:"optyp,omitempty"`
	E     *expWire `json:"e,omitempty"`
	Typ   *typWire `json:"typ,omitempty"`
	Pat   *patWire `json:"pat,omitempty"`
}

func guardToWire(g Guard) (*guardWire, error) {
	switch x := g.(type) {
	case BoolG:
		return &guardWire{It: "BoolG", Bool: &x.B}, nil
	case CmpG:
		e, err := expToWire(x.E)
		if err != nil {
			return nil, err
		}
		return &guardWire{It: "CmpG", Op: x.Op.String(), OpTyp: typToWire(x.OpTyp), E: e}, nil
	case SubG:
		return &guardWire{It: "SubG", Typ: typToWire(x.Typ)}, nil
	case MatchG:
		p, err := patToWire(x.Pat)
		if err != nil {
			return nil, err
		}
		return &guardWire{It: "MatchG", Pat: p}, nil
	case MemG:
		e, err := expToWire(x.E)
		if err != nil {
			return nil, err
		}
		return &guardWire{It: "MemG", E: e}, nil
	default:
		return nil, fmt.Errorf("unknown guard %T", g)
	}
}

func wireToGuard(w *guardWire) (Guard, error) {
	if w == nil {
		return nil, fmt.Errorf("missing guard")
	}
	switch w.It {
	case "BoolG":
		if w.Bool == nil {
			return nil, fmt.Errorf("BoolG: missing payload")
		}
		return BoolG{B: *w.Bool}, nil
	case "CmpG":
		op, err := wireToCmpOp(w.Op)
		if err != nil {
			return nil, err
		}
		optyp, err := wireToTyp(w.OpTyp)
		if err != nil {
			return nil, err
		}
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return CmpG{Op: op, OpTyp: optyp, E: e}, nil
	case "SubG":
		t, err := wireToTyp(w.Typ)
		if err != nil {
			return nil, err
		}
		return SubG{Typ: t}, nil
	case "MatchG":
		p, err := wireToPat(w.Pat)
		if err != nil {
			return nil, err
		}
		return MatchG{Pat: p}, nil
	case "MemG":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return MemG{E: e}, nil
	default:
		return nil, fmt.Errorf("unknown guard %q", w.It)
	}
}

type caseWire struct {
	Guard *guardWire   `json:"guard"`
	Body  []*instrWire `json:"body,omitempty"`
}

type instrWire struct {
	It      string        `json:"it"`
	At      *regionWire   `json:"at,omitempty"`
	E       *expWire      `json:"e,omitempty"`
	L       *expWire      `json:"l,omitempty"`
	R       *expWire      `json:"r,omitempty"`
	Iters   []iterExpWire `json:"iters,omitempty"`
	Body    []*instrWire  `json:"body,omitempty"`
	Inner   *instrWire    `json:"inner,omitempty"`
	Cases   []caseWire    `json:"cases,omitempty"`
	Phantom *phantomWire  `json:"phantom,omitempty"`
	Id      *idWire       `json:"id,omitempty"`
	MixOp   MixOp         `json:"mixop,omitempty"`
	Exps    []*expWire    `json:"exps,omitempty"`
}

func instrToWire(in Instr) (*instrWire, error) {
	if in == nil {
		return nil, fmt.Errorf("missing instruction")
	}
	w := &instrWire{At: regionToWire(in.Region())}
	var err error
	switch x := in.(type) {
	case *IfI:
		w.It = "IfI"
		if w.E, err = expToWire(x.Cond); err != nil {
			return nil, err
		}
		w.Iters = iterExpsToWire(x.Iters)
		if w.Body, err = instrsToWire(x.Body); err != nil {
			return nil, err
		}
		if w.Phantom, err = phantomToWire(x.Phantom); err != nil {
			return nil, err
		}
	case *CaseI:
		w.It = "CaseI"
		if w.E, err = expToWire(x.Scrut); err != nil {
			return nil, err
		}
		w.Cases = make([]caseWire, len(x.Cases))
		for i, c := range x.Cases {
			gw, err := guardToWire(c.Guard)
			if err != nil {
				return nil, err
			}
			bw, err := instrsToWire(c.Body)
			if err != nil {
				return nil, err
			}
			w.Cases[i] = caseWire{Guard: gw, Body: bw}
		}
		if w.Phantom, err = phantomToWire(x.Phantom); err != nil {
			return nil, err
		}
	case *OtherwiseI:
		w.It = "OtherwiseI"
		if w.Inner, err = instrToWire(x.Body); err != nil {
			return nil, err
		}
	case *LetI:
		w.It = "LetI"
		if w.L, err = expToWire(x.LHS); err != nil {
			return nil, err
		}
		if w.R, err = expToWire(x.RHS); err != nil {
			return nil, err
		}
		w.Iters = iterExpsToWire(x.Iters)
	case *RuleI:
		w.It, w.Id, w.MixOp = "RuleI", idToWire(x.Rel), x.Not.Op
		if w.Exps, err = expsToWire(x.Not.Args); err != nil {
			return nil, err
		}
		w.Iters = iterExpsToWire(x.Iters)
	case *ResultI:
		w.It = "ResultI"
		if w.Exps, err = expsToWire(x.Exps); err != nil {
			return nil, err
		}
	case *ReturnI:
		w.It = "ReturnI"
		if w.E, err = expToWire(x.Exp); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown instruction node %T", in)
	}
	return w, nil
}

func instrsToWire(ins []Instr) ([]*instrWire, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	ws := make([]*instrWire, len(ins))
	for i, in := range ins {
		w, err := instrToWire(in)
		if err != nil {
			return nil, err
		}
		ws[i] = w
	}
	return ws, nil
}

func wireToInstr(w *instrWire) (Instr, error) {
	if w == nil {
		return nil, fmt.Errorf("missing instruction")
	}
	base := InstrBase{At: wireToRegion(w.At)}
	switch w.It {
	case "IfI":
		cond, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		iters, err := wireToIterExps(w.Iters)
		if err != nil {
			return nil, err
		}
		body, err := wireToInstrs(w.Body)
		if err != nil {
			return nil, err
		}
		ph, err := wireToPhantom(w.Phantom)
		if err != nil {
			return nil, err
		}
		return &IfI{InstrBase: base, Cond: cond, Iters: iters, Body: body, Phantom: ph}, nil
	case "CaseI":
		scrut, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		cases := make([]Case, len(w.Cases))
		for i, cw := range w.Cases {
			g, err := wireToGuard(cw.Guard)
			if err != nil {
				return nil, err
			}
			body, err := wireToInstrs(cw.Body)
			if err != nil {
				return nil, err
			}
			cases[i] = Case{Guard: g, Body: body}
		}
		ph, err := wireToPhantom(w.Phantom)
		if err != nil {
			return nil, err
		}
		return &CaseI{InstrBase: base, Scrut: scrut, Cases: cases, Phantom: ph}, nil
	case "OtherwiseI":
		inner, err := wireToInstr(w.Inner)
		if err != nil {
			return nil, err
		}
		return &OtherwiseI{InstrBase: base, Body: inner}, nil
	case "LetI":
		lhs, err := wireToExp(w.L)
		if err != nil {
			return nil, err
		}
		rhs, err := wireToExp(w.R)
		if err != nil {
			return nil, err
		}
		iters, err := wireToIterExps(w.Iters)
		if err != nil {
			return nil, err
		}
		return &LetI{InstrBase: base, LHS: lhs, RHS: rhs, Iters: iters}, nil
	case "RuleI":
		args, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		iters, err := wireToIterExps(w.Iters)
		if err != nil {
			return nil, err
		}
		return &RuleI{InstrBase: base, Rel: wireToId(w.Id), Not: NotExp{Op: w.MixOp, Args: args}, Iters: iters}, nil
	case "ResultI":
		es, err := wireToExps(w.Exps)
		if err != nil {
			return nil, err
		}
		return &ResultI{InstrBase: base, Exps: es}, nil
	case "ReturnI":
		e, err := wireToExp(w.E)
		if err != nil {
			return nil, err
		}
		return &ReturnI{InstrBase: base, Exp: e}, nil
	default:
		return nil, fmt.Errorf("unknown instruction node %q", w.It)
	}
}

func wireToInstrs(ws []*instrWire) ([]Instr, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	ins := make([]Instr, len(ws))
	for i, w := range ws {
		in, err := wireToInstr(w)
		if err != nil {
			return nil, err
		}
		ins[i] = in
	}
	return ins, nil
}

type defWire struct {
	It      string       `json:"it"`
	Id      *idWire      `json:"id"`
	TParams []*idWire    `json:"tparams,omitempty"`
	Typ     *typWire     `json:"typ,omitempty"`
	MixOp   MixOp        `json:"mixop,omitempty"`
	Inputs  []int        `json:"inputs,omitempty"`
	Args    []*expWire   `json:"args,omitempty"`
	Params  []*expWire   `json:"params,omitempty"`
	Instrs  []*instrWire `json:"instrs,omitempty"`
}

func defToWire(d Def) (*defWire, error) {
	switch x := d.(type) {
	case TypD:
		return &defWire{It: "TypD", Id: idToWire(x.Id), TParams: idsToWire(x.TParams), Typ: typToWire(x.Typ)}, nil
	case RelD:
		args, err := expsToWire(x.Args)
		if err != nil {
			return nil, err
		}
		instrs, err := instrsToWire(x.Instrs)
		if err != nil {
			return nil, err
		}
		return &defWire{It: "RelD", Id: idToWire(x.Id), MixOp: x.Op, Inputs: x.InputIdxs, Args: args, Instrs: instrs}, nil
	case DecD:
		params, err := expsToWire(x.Params)
		if err != nil {
			return nil, err
		}
		instrs, err := instrsToWire(x.Instrs)
		if err != nil {
			return nil, err
		}
		return &defWire{It: "DecD", Id: idToWire(x.Id), TParams: idsToWire(x.TParams), Params: params, Instrs: instrs}, nil
	default:
		return nil, fmt.Errorf("unknown definition node %T", d)
	}
}

func wireToDef(w *defWire) (Def, error) {
	if w == nil {
		return nil, fmt.Errorf("missing definition")
	}
	switch w.It {
	case "TypD":
		t, err := wireToTyp(w.Typ)
		if err != nil {
			return nil, err
		}
		return TypD{Id: wireToId(w.Id), TParams: wireToIds(w.TParams), Typ: t}, nil
	case "RelD":
		args, err := wireToExps(w.Args)
		if err != nil {
			return nil, err
		}
		instrs, err := wireToInstrs(w.Instrs)
		if err != nil {
			return nil, err
		}
		return RelD{Id: wireToId(w.Id), Op: w.MixOp, InputIdxs: w.Inputs, Args: args, Instrs: instrs}, nil
	case "DecD":
		params, err := wireToExps(w.Params)
		if err != nil {
			return nil, err
		}
		instrs, err := wireToInstrs(w.Instrs)
		if err != nil {
			return nil, err
		}
		return DecD{Id: wireToId(w.Id), TParams: wireToIds(w.TParams), Params: params, Instrs: instrs}, nil
	default:
		return nil, fmt.Errorf("unknown definition node %q", w.It)
	}
}
