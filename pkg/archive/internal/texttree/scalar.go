package texttree

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const (
	nanText    = "NaN"
	posInfText = "Infinity"
	negInfText = "-Infinity"
)

// FormatScalar renders s as text. The returned token tells JSON whether the
// text must be quoted.
func FormatScalar(s archive.Scalar) (string, Token) {
	k := s.Kind
	switch {
	case k == archive.KindBool:
		return strconv.FormatBool(s.Bool), TokenBool
	case k.IsSigned():
		return strconv.FormatInt(s.Int, 10), TokenNumber
	case k.IsUnsigned():
		return strconv.FormatUint(s.Uint, 10), TokenNumber
	case k.IsFloat():
		switch {
		case math.IsNaN(s.Float):
			return nanText, TokenString
		case math.IsInf(s.Float, 1):
			return posInfText, TokenString
		case math.IsInf(s.Float, -1):
			return negInfText, TokenString
		}
		return FormatFloat(s.Float, k.Bits()), TokenNumber
	case k == archive.KindBytes:
		return base64.StdEncoding.EncodeToString(s.Bytes), TokenString
	default:
		return s.Str, TokenString
	}
}

// FormatFloat writes the shortest text that reads back as f. Exponent form
// is used below 1e-6 and from 1e21 on. The mantissa always has a fractional
// part: 33 is written 33.0 and 1e21 as 1.0e+21.
func FormatFloat(f float64, bits int) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 {
		if bits == 32 {
			a := float32(abs)
			if a < 1e-6 || a >= 1e21 {
				format = 'e'
			}
		} else if abs < 1e-6 || abs >= 1e21 {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bits)
	mantissa := len(b)
	if format == 'e' {
		// e-09 -> e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
		mantissa = strings.IndexByte(string(b), 'e')
	}
	if strings.IndexByte(string(b[:mantissa]), '.') < 0 {
		out := make([]byte, 0, len(b)+2)
		out = append(out, b[:mantissa]...)
		out = append(out, '.', '0')
		out = append(out, b[mantissa:]...)
		b = out
	}
	return string(b)
}

// ParseScalar converts the leaf n to kind k.
func ParseScalar(n *Node, k archive.Kind) (archive.Scalar, error) {
	if n.Kind != Leaf {
		return archive.Scalar{}, merr.WrapErrFormat(k.String(), n.Kind.String(), "reading "+describe(n))
	}
	if n.Token == TokenNull {
		return archive.Scalar{}, merr.WrapErrFormat(k.String(), "null", "reading "+describe(n))
	}
	bad := func(reason string) error {
		return merr.WrapErrFormat(k.String(), strconv.Quote(n.Text), reason, "reading "+describe(n))
	}
	switch {
	case k == archive.KindBool:
		if n.Token != TokenText && n.Token != TokenBool {
			return archive.Scalar{}, bad("not a boolean")
		}
		switch n.Text {
		case "true":
			return archive.BoolScalar(true), nil
		case "false":
			return archive.BoolScalar(false), nil
		}
		return archive.Scalar{}, bad("not a boolean")
	case k.IsSigned():
		if n.Token != TokenText && n.Token != TokenNumber {
			return archive.Scalar{}, bad("not a number")
		}
		v, err := strconv.ParseInt(n.Text, 10, k.Bits())
		if err != nil {
			return archive.Scalar{}, bad(err.Error())
		}
		return archive.IntScalar(k, v), nil
	case k.IsUnsigned():
		if n.Token != TokenText && n.Token != TokenNumber {
			return archive.Scalar{}, bad("not a number")
		}
		v, err := strconv.ParseUint(n.Text, 10, k.Bits())
		if err != nil {
			return archive.Scalar{}, bad(err.Error())
		}
		return archive.UintScalar(k, v), nil
	case k.IsFloat():
		switch n.Text {
		case nanText:
			return archive.FloatScalar(k, math.NaN()), nil
		case posInfText:
			return archive.FloatScalar(k, math.Inf(1)), nil
		case negInfText:
			return archive.FloatScalar(k, math.Inf(-1)), nil
		}
		if n.Token != TokenText && n.Token != TokenNumber {
			return archive.Scalar{}, bad("not a number")
		}
		v, err := strconv.ParseFloat(n.Text, k.Bits())
		if err != nil {
			return archive.Scalar{}, bad(err.Error())
		}
		return archive.FloatScalar(k, v), nil
	case k == archive.KindString:
		if n.Token != TokenText && n.Token != TokenString {
			return archive.Scalar{}, bad("not a string")
		}
		return archive.StringScalar(n.Text), nil
	case k == archive.KindBytes:
		if n.Token != TokenText && n.Token != TokenString {
			return archive.Scalar{}, bad("not a string")
		}
		b, err := base64.StdEncoding.DecodeString(n.Text)
		if err != nil {
			return archive.Scalar{}, bad(err.Error())
		}
		return archive.BytesScalar(b), nil
	}
	return archive.Scalar{}, merr.WrapErrParameterInvalidMsg("unknown kind %s", k)
}
