package value

import (
	"encoding/json"
	"fmt"
	"math/big"

	"p4spectec/internal/il"
)

// Value interchange format, used for driver inputs (concrete programs
// encoded as value trees). Same discriminator convention as the IL codec;
// type notes are re-derived on decode for primitives. The wire form holds
// no type notes, so lists, tuples, options, cases, and structs decode with
// none.

type valueWire struct {
	It    string       `json:"it"`
	Bool  *bool        `json:"bool,omitempty"`
	Kind  string       `json:"kind,omitempty"`
	Width uint         `json:"width,omitempty"`
	V     string       `json:"v,omitempty"`
	Text  *string      `json:"text,omitempty"`
	Elems []*valueWire `json:"elems,omitempty"`
	Some  *valueWire   `json:"some,omitempty"`
	None  bool         `json:"none,omitempty"`
	MixOp il.MixOp     `json:"mixop,omitempty"`
	Field []fieldWire  `json:"fields,omitempty"`
	Func  string       `json:"func,omitempty"`
}

type fieldWire struct {
	Atom string     `json:"atom"`
	V    *valueWire `json:"v"`
}

// EncodeValue serializes one value.
func EncodeValue(v *Value) ([]byte, error) {
	w, err := valueToWire(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(w, "", "  ")
}

// DecodeValue parses one value into the store.
func DecodeValue(s *Store, data []byte) (*Value, error) {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("value: malformed input: %w", err)
	}
	return wireToValue(s, &w)
}

func valueToWire(v *Value) (*valueWire, error) {
	if v == nil {
		return nil, fmt.Errorf("value: cannot encode nil")
	}
	switch v.kind {
	case BoolK:
		return &valueWire{It: "BoolV", Bool: &v.b}, nil
	case NumK:
		return &valueWire{It: "NumV", Kind: v.num.Kind().String(), Width: v.num.Width(), V: v.num.Big().Text(10)}, nil
	case TextK:
		return &valueWire{It: "TextV", Text: &v.text}, nil
	case ListK:
		elems, err := valuesToWire(v.elems)
		if err != nil {
			return nil, err
		}
		return &valueWire{It: "ListV", Elems: elems}, nil
	case TupleK:
		elems, err := valuesToWire(v.elems)
		if err != nil {
			return nil, err
		}
		return &valueWire{It: "TupleV", Elems: elems}, nil
	case OptK:
		if v.opt == nil {
			return &valueWire{It: "OptV", None: true}, nil
		}
		some, err := valueToWire(v.opt)
		if err != nil {
			return nil, err
		}
		return &valueWire{It: "OptV", Some: some}, nil
	case CaseK:
		elems, err := valuesToWire(v.elems)
		if err != nil {
			return nil, err
		}
		return &valueWire{It: "CaseV", MixOp: v.op, Elems: elems}, nil
	case StructK:
		fields := make([]fieldWire, len(v.fields))
		for i, f := range v.fields {
			fw, err := valueToWire(f.V)
			if err != nil {
				return nil, err
			}
			fields[i] = fieldWire{Atom: f.Atom, V: fw}
		}
		return &valueWire{It: "StructV", Field: fields}, nil
	case FuncK:
		return &valueWire{It: "FuncV", Func: v.fn}, nil
	default:
		return nil, fmt.Errorf("value: unknown kind %s", v.kind)
	}
}

func valuesToWire(vs []*Value) ([]*valueWire, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	ws := make([]*valueWire, len(vs))
	for i, v := range vs {
		w, err := valueToWire(v)
		if err != nil {
			return nil, err
		}
		ws[i] = w
	}
	return ws, nil
}

func wireToValue(s *Store, w *valueWire) (*Value, error) {
	if w == nil {
		return nil, fmt.Errorf("value: missing node")
	}
	switch w.It {
	case "BoolV":
		if w.Bool == nil {
			return nil, fmt.Errorf("BoolV: missing payload")
		}
		return s.Bool(*w.Bool), nil
	case "NumV":
		payload, ok := new(big.Int).SetString(w.V, 10)
		if !ok {
			return nil, fmt.Errorf("NumV: malformed payload %q", w.V)
		}
		var kind il.NumKind
		switch w.Kind {
		case "nat":
			kind = il.NatK
		case "int":
			kind = il.IntK
		case "bits":
			kind = il.BitsK
		default:
			return nil, fmt.Errorf("NumV: unknown kind %q", w.Kind)
		}
		n, err := il.FromBig(kind, w.Width, payload)
		if err != nil {
			return nil, fmt.Errorf("NumV: %w", err)
		}
		return s.Num(n), nil
	case "TextV":
		if w.Text == nil {
			return nil, fmt.Errorf("TextV: missing payload")
		}
		return s.Text(*w.Text), nil
	case "ListV":
		elems, err := wiresToValues(s, w.Elems)
		if err != nil {
			return nil, err
		}
		return s.List(elems, nil), nil
	case "TupleV":
		elems, err := wiresToValues(s, w.Elems)
		if err != nil {
			return nil, err
		}
		return s.Tuple(elems, nil), nil
	case "OptV":
		if w.None || w.Some == nil {
			return s.Opt(nil, nil), nil
		}
		payload, err := wireToValue(s, w.Some)
		if err != nil {
			return nil, err
		}
		return s.Opt(payload, nil), nil
	case "CaseV":
		elems, err := wiresToValues(s, w.Elems)
		if err != nil {
			return nil, err
		}
		return s.Case(w.MixOp, elems, nil)
	case "StructV":
		fields := make([]Field, len(w.Field))
		for i, fw := range w.Field {
			fv, err := wireToValue(s, fw.V)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Atom: fw.Atom, V: fv}
		}
		return s.Struct(fields, nil)
	case "FuncV":
		return s.Func(w.Func), nil
	default:
		return nil, fmt.Errorf("value: unknown node %q", w.It)
	}
}

func wiresToValues(s *Store, ws []*valueWire) ([]*Value, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	vs := make([]*Value, len(ws))
	for i, w := range ws {
		v, err := wireToValue(s, w)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}
