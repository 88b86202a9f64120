// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// streamText recovers the text shown by a page content stream. It follows
// the text-showing operators (Tj, TJ, ' and ") and turns line moves (T*,
// Td/TD with a vertical offset, ET) into newlines. Glyphs drawn through
// fonts without a usable encoding come out as unprintable bytes and are
// dropped, so an empty result means the page needs a fallback.
func streamText(data []byte) string {
	var (
		sb       strings.Builder
		operands []operand
		pending  bool // text written since the last newline
	)
	newline := func() {
		if pending {
			sb.WriteByte('\n')
			pending = false
		}
	}
	show := func(ops []operand) {
		for _, op := range ops {
			if op.kind == opString {
				if s := decodeString(op.raw); s != "" {
					sb.WriteString(s)
					pending = true
				}
			}
		}
	}

	sc := scanner{data: data}
	for {
		tok, ok := sc.next()
		if !ok {
			break
		}
		if tok.kind != opOperator {
			operands = append(operands, tok)
			continue
		}
		switch string(tok.raw) {
		case "Tj", "TJ":
			show(operands)
		case "'", `"`:
			newline()
			show(operands)
		case "T*", "ET":
			newline()
		case "Td", "TD":
			if len(operands) >= 2 && !isZero(operands[len(operands)-1].raw) {
				newline()
			}
		}
		operands = operands[:0]
	}
	return cleanText(sb.String())
}

type opKind int

const (
	opNumber opKind = iota
	opString
	opName
	opOperator
)

type operand struct {
	kind opKind
	raw  []byte
}

// scanner splits a content stream into operands and operators. Array
// brackets are skipped, so the strings inside a TJ array arrive as plain
// operands of the TJ operator.
type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) next() (operand, bool) {
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return operand{}, false
		}
		c := s.data[s.pos]
		switch {
		case c == '[' || c == ']' || c == '{' || c == '}':
			s.pos++
			continue
		case c == '(':
			return operand{kind: opString, raw: s.literal()}, true
		case c == '<' && s.peek(1) == '<', c == '>' && s.peek(1) == '>':
			s.pos += 2
			return operand{kind: opName, raw: []byte{c, c}}, true
		case c == '<':
			return operand{kind: opString, raw: s.hex()}, true
		case c == '>' || c == ')':
			s.pos++
			continue
		case c == '/':
			start := s.pos
			s.pos++
			s.word()
			return operand{kind: opName, raw: s.data[start:s.pos]}, true
		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			start := s.pos
			s.word()
			return operand{kind: opNumber, raw: s.data[start:s.pos]}, true
		case c == '\'' || c == '"':
			s.pos++
			return operand{kind: opOperator, raw: []byte{c}}, true
		default:
			start := s.pos
			s.word()
			if s.pos == start {
				s.pos++
				continue
			}
			return operand{kind: opOperator, raw: s.data[start:s.pos]}, true
		}
	}
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.data) {
		return s.data[s.pos+n]
	}
	return 0
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		if !isSpace(c) {
			return
		}
		s.pos++
	}
}

func (s *scanner) word() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace(c) || isDelim(c) {
			return
		}
		s.pos++
	}
}

// literal reads a parenthesised string with nesting and escapes.
func (s *scanner) literal() []byte {
	var out bytes.Buffer
	depth := 0
	s.pos++ // (
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return out.Bytes()
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case 'b':
				out.WriteByte('\b')
			case 'f':
				out.WriteByte('\f')
			case '\n':
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data); i++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						s.pos++
					}
					out.WriteByte(byte(v))
				} else {
					out.WriteByte(e)
				}
			}
		case '(':
			depth++
			out.WriteByte(c)
		case ')':
			if depth == 0 {
				return out.Bytes()
			}
			depth--
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// hex reads a <...> string; an odd trailing digit is padded with 0.
func (s *scanner) hex() []byte {
	s.pos++ // <
	var out []byte
	var hi byte
	half := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if !half {
			hi, half = v, true
			continue
		}
		out = append(out, hi<<4|v)
		half = false
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isZero(raw []byte) bool {
	for _, c := range raw {
		if c != '0' && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

var utf16BOM = xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM)

// decodeString maps raw string bytes to text: UTF-16BE when the string
// starts with a byte-order mark, UTF-8 when the bytes are valid UTF-8,
// Latin-1 otherwise.
func decodeString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		if b, err := utf16BOM.NewDecoder().Bytes(raw); err == nil {
			return string(b)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	b, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// cleanText drops unprintable runes, collapses runs of blanks and trims
// each line. Empty lines are removed.
func cleanText(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		var sb strings.Builder
		blank := false
		for _, r := range line {
			switch {
			case unicode.IsSpace(r):
				blank = true
			case unicode.IsPrint(r):
				if blank && sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				blank = false
				sb.WriteRune(r)
			}
		}
		if sb.Len() > 0 {
			out = append(out, sb.String())
		}
	}
	return strings.Join(out, "\n")
}
