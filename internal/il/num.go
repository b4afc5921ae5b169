package il

import (
	"errors"
	"fmt"
	"math/big"
)

// NumKind tags the arithmetic domain of a number.
type NumKind uint8

const (
	// NatK is an arbitrary-precision natural (n >= 0).
	NatK NumKind = iota
	// IntK is an arbitrary-precision signed integer.
	IntK
	// BitsK is a fixed-width bit vector; arithmetic wraps modulo 2^width.
	BitsK
)

func (k NumKind) String() string {
	switch k {
	case NatK:
		return "nat"
	case IntK:
		return "int"
	case BitsK:
		return "bits"
	default:
		return fmt.Sprintf("numkind(%d)", k)
	}
}

// Arithmetic failures surfaced by Num operations. The evaluator wraps these
// into its own error taxonomy; this package stays free of evaluation
// concerns.
var (
	ErrDivByZero    = errors.New("division by zero")
	ErrNatUnderflow = errors.New("natural subtraction below zero")
	ErrKindMismatch = errors.New("numeric kind mismatch")
)

// Num is a tagged arbitrary-precision number. Naturals and integers are
// exact; bit vectors carry a declared width and every operation reduces the
// payload modulo 2^width. The zero Num is nat 0.
type Num struct {
	kind  NumKind
	width uint
	v     *big.Int
}

// Nat returns a natural.
func Nat(n uint64) Num { return Num{kind: NatK, v: new(big.Int).SetUint64(n)} }

// Int returns a signed integer.
func Int(n int64) Num { return Num{kind: IntK, v: big.NewInt(n)} }

// Bits returns a bit vector of the given width, wrapping n into range.
func Bits(width uint, n *big.Int) Num {
	return Num{kind: BitsK, width: width, v: wrapBits(width, n)}
}

// FromBig returns a number of the given kind backed by a copy of v.
// Naturals reject negative payloads; bit vectors wrap.
func FromBig(kind NumKind, width uint, v *big.Int) (Num, error) {
	switch kind {
	case NatK:
		if v.Sign() < 0 {
			return Num{}, ErrNatUnderflow
		}
		return Num{kind: NatK, v: new(big.Int).Set(v)}, nil
	case IntK:
		return Num{kind: IntK, v: new(big.Int).Set(v)}, nil
	case BitsK:
		return Bits(width, v), nil
	default:
		return Num{}, fmt.Errorf("unknown numeric kind %d", kind)
	}
}

func wrapBits(width uint, n *big.Int) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), width)
	w := new(big.Int).Mod(n, mod)
	if w.Sign() < 0 {
		w.Add(w, mod)
	}
	return w
}

// Kind reports the arithmetic domain.
func (n Num) Kind() NumKind { return n.kind }

// Width reports the declared width of a bit vector and 0 otherwise.
func (n Num) Width() uint { return n.width }

// Big returns the payload. Callers must not mutate the result.
func (n Num) Big() *big.Int {
	if n.v == nil {
		return big.NewInt(0)
	}
	return n.v
}

// Int64 returns the payload as an int64 when it fits.
func (n Num) Int64() (int64, bool) {
	b := n.Big()
	if !b.IsInt64() {
		return 0, false
	}
	return b.Int64(), true
}

func (n Num) String() string {
	switch n.kind {
	case BitsK:
		return fmt.Sprintf("0x%s:%d", n.Big().Text(16), n.width)
	default:
		return n.Big().String()
	}
}

// Equal compares payload, kind, and (for bit vectors) width.
func (n Num) Equal(o Num) bool {
	if n.kind != o.kind || n.width != o.width {
		return false
	}
	return n.Big().Cmp(o.Big()) == 0
}

// Cmp orders two numbers of the same kind. It fails on kind disagreement
// rather than coercing; the elaborator guarantees operand kinds agree.
func (n Num) Cmp(o Num) (int, error) {
	if n.kind != o.kind || n.width != o.width {
		return 0, ErrKindMismatch
	}
	return n.Big().Cmp(o.Big()), nil
}

func (n Num) binop(o Num, f func(z, x, y *big.Int) *big.Int) (Num, error) {
	if n.kind != o.kind || n.width != o.width {
		return Num{}, ErrKindMismatch
	}
	z := f(new(big.Int), n.Big(), o.Big())
	return FromBig(n.kind, n.width, z)
}

// Add returns n+o. Bit vectors wrap.
func (n Num) Add(o Num) (Num, error) {
	return n.binop(o, func(z, x, y *big.Int) *big.Int { return z.Add(x, y) })
}

// Sub returns n-o. Natural subtraction below zero fails; bit vectors wrap.
func (n Num) Sub(o Num) (Num, error) {
	return n.binop(o, func(z, x, y *big.Int) *big.Int { return z.Sub(x, y) })
}

// Mul returns n*o. Bit vectors wrap.
func (n Num) Mul(o Num) (Num, error) {
	return n.binop(o, func(z, x, y *big.Int) *big.Int { return z.Mul(x, y) })
}

// Div returns the truncated quotient n/o, failing ErrDivByZero on o = 0.
func (n Num) Div(o Num) (Num, error) {
	if o.Big().Sign() == 0 {
		return Num{}, ErrDivByZero
	}
	return n.binop(o, func(z, x, y *big.Int) *big.Int { return z.Quo(x, y) })
}

// Mod returns the truncated remainder n%o, failing ErrDivByZero on o = 0.
func (n Num) Mod(o Num) (Num, error) {
	if o.Big().Sign() == 0 {
		return Num{}, ErrDivByZero
	}
	return n.binop(o, func(z, x, y *big.Int) *big.Int { return z.Rem(x, y) })
}

// Neg returns -n. Negating a nonzero natural fails; bit vectors wrap
// (two's complement within the declared width).
func (n Num) Neg() (Num, error) {
	z := new(big.Int).Neg(n.Big())
	return FromBig(n.kind, n.width, z)
}
