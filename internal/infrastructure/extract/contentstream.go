package extract

import (
	"strconv"
	"strings"
)

// wordGap is the TJ adjustment (thousandths of text space) treated as a space.
const wordGap = -200

// DecodeContentStream pulls the shown text out of a PDF page content stream.
// Strings are decoded byte-wise as Latin-1, which covers WinAnsi text in practice.
func DecodeContentStream(stream []byte) string {
	var (
		out     strings.Builder
		pending strings.Builder
		inArray bool
	)

	newline := func() {
		s := out.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}

	for i := 0; i < len(stream); {
		c := stream[i]
		switch {
		case isWhitespace(c):
			i++
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteral(stream, i)
			pending.WriteString(s)
			i = next
		case c == '<' && i+1 < len(stream) && stream[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(stream) && stream[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHex(stream, i)
			pending.WriteString(s)
			i = next
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case isNumberStart(c):
			start := i
			for i < len(stream) && !isWhitespace(stream[i]) && !isDelimiter(stream[i]) {
				i++
			}
			if inArray {
				if n, err := strconv.ParseFloat(string(stream[start:i]), 64); err == nil && n < wordGap {
					pending.WriteByte(' ')
				}
			}
		default:
			start := i
			for i < len(stream) && !isWhitespace(stream[i]) && !isDelimiter(stream[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			switch string(stream[start:i]) {
			case "Tj", "TJ":
				out.WriteString(pending.String())
			case "'", "\"":
				newline()
				out.WriteString(pending.String())
			case "T*", "Td", "TD", "ET":
				newline()
			}
			pending.Reset()
		}
	}

	return strings.TrimSpace(out.String())
}

func readLiteral(stream []byte, i int) (string, int) {
	var b strings.Builder
	depth := 0
	for i < len(stream) {
		c := stream[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		case '\\':
			i++
			if i >= len(stream) {
				return b.String(), i
			}
			esc := stream[i]
			switch esc {
			case 'n':
				b.WriteByte('\n')
				i++
			case 'r':
				b.WriteByte('\r')
				i++
			case 't':
				b.WriteByte('\t')
				i++
			case 'b', 'f':
				i++
			case '\r', '\n':
				i++
				if esc == '\r' && i < len(stream) && stream[i] == '\n' {
					i++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				end := i
				for end < len(stream) && end-i < 3 && stream[end] >= '0' && stream[end] <= '7' {
					end++
				}
				n, _ := strconv.ParseUint(string(stream[i:end]), 8, 8)
				b.WriteRune(rune(n))
				i = end
			default:
				b.WriteByte(esc)
				i++
			}
		default:
			if c < 0x80 {
				b.WriteByte(c)
			} else {
				b.WriteRune(rune(c))
			}
			i++
		}
	}
	return b.String(), i
}

func readHex(stream []byte, i int) (string, int) {
	i++ // '<'
	digits := make([]byte, 0, 16)
	for i < len(stream) && stream[i] != '>' {
		if isHexDigit(stream[i]) {
			digits = append(digits, stream[i])
		}
		i++
	}
	if i < len(stream) {
		i++ // '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	var b strings.Builder
	for j := 0; j+1 < len(digits); j += 2 {
		n, err := strconv.ParseUint(string(digits[j:j+2]), 16, 8)
		if err != nil || n < 0x20 {
			continue
		}
		b.WriteRune(rune(n))
	}
	return b.String(), i
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
