package literal

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// SyntaxError describes a parse failure and the byte offset at which it
// was detected.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// MaxDepth bounds the nesting of objects and arrays.
const MaxDepth = 512

type parser struct {
	src   []byte
	pos   int
	depth int
}

// Parse decodes a single literal from data. JSON is accepted as a subset.
// Trailing content other than whitespace or a semicolon is an error.
func Parse(data []byte) (Value, error) {
	p := &parser{src: data}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
		p.skipSpace()
	}
	if p.pos != len(p.src) {
		return Value{}, p.errorf("unexpected trailing %q", p.src[p.pos])
	}
	return v, nil
}

// ParsePrefix decodes one literal starting at data[0] and returns the
// number of bytes consumed.
func ParsePrefix(data []byte) (Value, int, error) {
	p := &parser{src: data}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return Value{}, 0, err
	}
	return v, p.pos, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := strings.Index(string(p.src[p.pos+2:]), "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	if p.pos >= len(p.src) {
		return Value{}, p.errorf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '{' || c == '[':
		if p.depth >= MaxDepth {
			return Value{}, p.errorf("nesting too deep (more than %d levels)", MaxDepth)
		}
		p.depth++
		defer func() { p.depth-- }()
		if c == '{' {
			return p.object()
		}
		return p.array()
	case c == '"' || c == '\'':
		s, err := p.str()
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		word := p.ident()
		switch word {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		case "null", "undefined":
			return NullValue(), nil
		}
		p.pos -= len(word)
		return Value{}, p.errorf("unexpected identifier %q", word)
	default:
		return Value{}, p.errorf("unexpected character %q", c)
	}
}

func (p *parser) object() (Value, error) {
	p.pos++ // {
	v := Value{Kind: Object, Members: []Member{}}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errorf("unterminated object")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return v, nil
		}
		key, err := p.key()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return Value{}, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		item, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Members = append(v.Members, Member{Key: key, Value: item})
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errorf("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return v, nil
		default:
			return Value{}, p.errorf("expected ',' or '}' in object, got %q", p.src[p.pos])
		}
	}
}

func (p *parser) key() (string, error) {
	c := p.src[p.pos]
	switch {
	case c == '"' || c == '\'':
		return p.str()
	case isIdentStart(c):
		return p.ident(), nil
	case isDigit(c):
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		return string(p.src[start:p.pos]), nil
	default:
		return "", p.errorf("invalid object key starting with %q", c)
	}
}

func (p *parser) array() (Value, error) {
	p.pos++ // [
	v := Value{Kind: Array, Items: []Value{}}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errorf("unterminated array")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return v, nil
		}
		item, err := p.value()
		if err != nil {
			return Value{}, err
		}
		v.Items = append(v.Items, item)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errorf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return v, nil
		default:
			return Value{}, p.errorf("expected ',' or ']' in array, got %q", p.src[p.pos])
		}
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
		digits++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		p.pos = start
		return Value{}, p.errorf("invalid number")
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
			p.pos++
		}
		exp := 0
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
			exp++
		}
		if exp == 0 {
			return Value{}, p.errorf("invalid number exponent")
		}
	}
	num := string(p.src[start:p.pos])
	return Value{Kind: Number, Num: strings.TrimPrefix(num, "+")}, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		case c == '\n':
			return "", p.errorf("newline in string")
		case c < utf8.RuneSelf:
			sb.WriteByte(c)
			p.pos++
		default:
			r, size := utf8.DecodeRune(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\n':
		// line continuation
	case 'x':
		n, ok := p.hex(2)
		if !ok {
			return p.errorf("invalid \\x escape")
		}
		sb.WriteRune(rune(n))
	case 'u':
		n, ok := p.hex(4)
		if !ok {
			return p.errorf("invalid \\u escape")
		}
		r := rune(n)
		if utf16.IsSurrogate(r) && p.pos+6 <= len(p.src) && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
			save := p.pos
			p.pos += 2
			if lo, ok := p.hex(4); ok {
				if dec := utf16.DecodeRune(r, rune(lo)); dec != utf8.RuneError {
					sb.WriteRune(dec)
					return nil
				}
			}
			p.pos = save
		}
		sb.WriteRune(r)
	default:
		// \" \' \\ \/ and any other escaped character stand for themselves.
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) hex(n int) (int, bool) {
	if p.pos+n > len(p.src) {
		return 0, false
	}
	v := 0
	for i := 0; i < n; i++ {
		c := p.src[p.pos+i]
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		v = v<<4 | int(d)
	}
	p.pos += n
	return v, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
