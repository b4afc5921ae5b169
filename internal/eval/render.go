package eval

import (
	"fmt"
	"strings"

	"p4spectec/internal/il"
)

// renderExp produces the compact textual form of an expression used in
// context paths and diagnostics. The rendering is stable across runs of
// the same IL; it is not meant to be re-parseable.
func renderExp(e il.Exp) string {
	switch x := e.(type) {
	case nil:
		return "_"
	case *il.BoolE:
		return fmt.Sprintf("%t", x.B)
	case *il.NumE:
		return x.N.String()
	case *il.TextE:
		return fmt.Sprintf("%q", x.S)
	case *il.VarE:
		return x.Id.Name
	case *il.UnE:
		return x.Op.String() + " " + renderExp(x.E)
	case *il.BinE:
		return "(" + renderExp(x.L) + " " + x.Op.String() + " " + renderExp(x.R) + ")"
	case *il.CmpE:
		return "(" + renderExp(x.L) + " " + x.Op.String() + " " + renderExp(x.R) + ")"
	case *il.TupleE:
		return "(" + renderExps(x.Elems) + ")"
	case *il.CaseE:
		if len(x.Args) == 0 {
			return x.Op.String()
		}
		return x.Op.String() + "(" + renderExps(x.Args) + ")"
	case *il.OptE:
		if x.E == nil {
			return "none"
		}
		return "some(" + renderExp(x.E) + ")"
	case *il.ListE:
		return "[" + renderExps(x.Elems) + "]"
	case *il.StrE:
		parts := make([]string, len(x.Fields))
		for i, f := range x.Fields {
			parts[i] = f.Atom + " " + renderExp(f.E)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *il.DotE:
		return renderExp(x.E) + "." + x.Atom
	case *il.ProjE:
		return fmt.Sprintf("%s.%d", renderExp(x.E), x.Idx)
	case *il.HeadE:
		return "head(" + renderExp(x.E) + ")"
	case *il.TailE:
		return "tail(" + renderExp(x.E) + ")"
	case *il.LenE:
		return "|" + renderExp(x.E) + "|"
	case *il.MemE:
		return renderExp(x.Elem) + " in " + renderExp(x.List)
	case *il.CatE:
		return renderExp(x.L) + " ++ " + renderExp(x.R)
	case *il.IterE:
		suffix := "*"
		if x.Iter == il.OptIter {
			suffix = "?"
		}
		return "(" + renderExp(x.E) + ")" + suffix
	case *il.CallE:
		return x.Id.Name + "(" + renderExps(x.Args) + ")"
	case *il.MatchE:
		return "case " + renderExp(x.Scrut)
	case *il.SubE:
		return renderExp(x.E) + " <: " + x.Typ.String()
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func renderExps(es []il.Exp) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = renderExp(e)
	}
	return strings.Join(parts, ", ")
}

func renderGuard(scrut il.Exp, g il.Guard) string {
	s := renderExp(scrut)
	switch x := g.(type) {
	case il.BoolG:
		return fmt.Sprintf("%s = %t", s, x.B)
	case il.CmpG:
		return fmt.Sprintf("%s %s %s", s, x.Op, renderExp(x.E))
	case il.SubG:
		return fmt.Sprintf("%s <: %s", s, x.Typ)
	case il.MatchG:
		return s + " matches " + renderPat(x.Pat)
	case il.MemG:
		return s + " in " + renderExp(x.E)
	default:
		return s
	}
}

func renderPat(p il.Pattern) string {
	switch x := p.(type) {
	case nil:
		return "_"
	case *il.WildP:
		return "_"
	case *il.VarP:
		return x.Id.Name
	case *il.BoolP:
		return fmt.Sprintf("%t", x.B)
	case *il.NumP:
		return x.N.String()
	case *il.TextP:
		return fmt.Sprintf("%q", x.S)
	case *il.CaseP:
		if len(x.Args) == 0 {
			return x.Op.String()
		}
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = renderPat(a)
		}
		return x.Op.String() + "(" + strings.Join(parts, ", ") + ")"
	case *il.TupleP:
		parts := make([]string, len(x.Elems))
		for i, a := range x.Elems {
			parts[i] = renderPat(a)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *il.ListP:
		var parts []string
		for _, a := range x.Prefix {
			parts = append(parts, renderPat(a))
		}
		if x.Rest != nil {
			parts = append(parts, x.Rest.Name+"...")
		}
		for _, a := range x.Suffix {
			parts = append(parts, renderPat(a))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *il.OptP:
		if x.Elem == nil {
			return "none"
		}
		return "some(" + renderPat(x.Elem) + ")"
	default:
		return fmt.Sprintf("<%T>", p)
	}
}
