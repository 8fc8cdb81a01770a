package vm

import (
	"math"
	"strconv"
	"strings"
)

// ObjectPlaceholder is the text StringOf produces for any object.
const ObjectPlaceholder = "<object>"

// StringOf renders v as text.
//
// nil renders as "nil", bools and numbers as canonical decimal text, and
// strings as a double-quoted literal with quotes, backslashes and control
// characters escaped. Objects are not dumped structurally; every object
// renders as ObjectPlaceholder.
func StringOf(v Value) string {
	switch v.typeID {
	case TypeNil:
		return "nil"
	case TypeBool:
		return strconv.FormatBool(v.bits != 0)
	case TypeInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case TypeFloat:
		return formatFloat(math.Float64frombits(v.bits))
	case TypeString:
		return quote(*v.str)
	default:
		return ObjectPlaceholder
	}
}

// String implements fmt.Stringer using StringOf.
func (v Value) String() string {
	return StringOf(v)
}

// formatFloat returns the shortest decimal text that round-trips, keeping a
// trailing ".0" on integral values so floats never read back as ints.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// quote escapes s as a double-quoted literal. Printable non-ASCII runes are
// kept as-is; control characters use the short escapes where one exists and
// \xHH otherwise.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\v':
			sb.WriteString(`\v`)
		default:
			if c < 0x20 || c == 0x7F {
				sb.WriteString(`\x`)
				sb.WriteByte(hexDigits[c>>4])
				sb.WriteByte(hexDigits[c&0x0F])
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

const hexDigits = "0123456789ABCDEF"
