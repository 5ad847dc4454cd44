package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatJSON renders n with two-space indentation. Output follows the
// conventions of the generators that write this metadata: non-ASCII text is
// kept as is, integers keep their digits, and other numbers are printed in
// their shortest round-trip form with a trailing ".0" when integral.
func formatJSON(n *node) string {
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *node, depth int) {
	switch n.kind {
	case kindObject, kindArray:
		opening, closing := "{", "}"
		if n.kind == kindArray {
			opening, closing = "[", "]"
		}
		if len(n.values) == 0 {
			b.WriteString(opening + closing)
			return
		}
		b.WriteString(opening)
		for i, child := range n.values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
			writeIndent(b, depth+1)
			if n.kind == kindObject {
				writeString(b, n.keys[i])
				b.WriteString(": ")
			}
			writeNode(b, child, depth+1)
		}
		b.WriteByte('\n')
		writeIndent(b, depth)
		b.WriteString(closing)
	case kindString:
		writeString(b, n.scalar)
	case kindNumber:
		b.WriteString(formatNumber(n.scalar))
	case kindBool:
		b.WriteString(n.scalar)
	default:
		b.WriteString("null")
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

// writeString quotes s, escaping only quotes, backslashes and control characters
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// formatNumber normalizes a JSON number literal. Integers are kept, except
// that -0 becomes 0. Fractions and exponents are parsed as float64 and
// printed positionally for decimal exponents in [-4, 16), in exponent
// form otherwise.
func formatNumber(literal string) string {
	if !strings.ContainsAny(literal, ".eE") {
		if literal == "-0" {
			return "0"
		}
		return literal
	}

	// Out-of-range literals parse to ±Inf along with an error
	f, _ := strconv.ParseFloat(literal, 64)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	exp := strconv.FormatFloat(f, 'e', -1, 64)
	x, _ := strconv.Atoi(exp[strings.IndexByte(exp, 'e')+1:])
	if x < -4 || x >= 16 {
		return exp
	}

	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}
