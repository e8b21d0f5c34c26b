package literal

import (
	"bytes"
	"io"
	"unicode/utf16"
)

// Style selects the key quoting rules used by Encode.
type Style int

const (
	// JS leaves identifier keys bare and quotes reserved words.
	JS Style = iota
	// JSON quotes every key.
	JSON
)

// reserved lists the words a JavaScript engine refuses as bare object keys
// in older dialects. Generators quote them, so the encoder does too.
var reserved = map[string]struct{}{
	"abstract": {}, "boolean": {}, "break": {}, "byte": {}, "case": {},
	"catch": {}, "char": {}, "class": {}, "const": {}, "continue": {},
	"debugger": {}, "default": {}, "delete": {}, "do": {}, "double": {},
	"else": {}, "enum": {}, "export": {}, "extends": {}, "false": {},
	"final": {}, "finally": {}, "float": {}, "for": {}, "function": {},
	"goto": {}, "if": {}, "implements": {}, "import": {}, "in": {},
	"instanceof": {}, "int": {}, "interface": {}, "long": {}, "native": {},
	"new": {}, "null": {}, "package": {}, "private": {}, "protected": {},
	"public": {}, "return": {}, "short": {}, "static": {}, "super": {},
	"switch": {}, "synchronized": {}, "this": {}, "throw": {}, "throws": {},
	"transient": {}, "true": {}, "try": {}, "typeof": {}, "var": {},
	"void": {}, "volatile": {}, "while": {}, "with": {},
}

// Marshal encodes v compactly in the given style.
func Marshal(v Value, style Style) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v, style)
	return buf.Bytes()
}

// Encode writes the compact encoding of v to w.
func Encode(w io.Writer, v Value, style Style) error {
	_, err := w.Write(Marshal(v, style))
	return err
}

func encodeValue(buf *bytes.Buffer, v Value, style Style) {
	switch v.Kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		buf.WriteString(v.Num)
	case String:
		quote(buf, v.Str)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeValue(buf, item, style)
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeKey(buf, m.Key, style)
			buf.WriteByte(':')
			encodeValue(buf, m.Value, style)
		}
		buf.WriteByte('}')
	}
}

func encodeKey(buf *bytes.Buffer, key string, style Style) {
	if style == JS && bareKey(key) {
		buf.WriteString(key)
		return
	}
	quote(buf, key)
}

func bareKey(key string) bool {
	if key == "" || !isIdentStart(key[0]) {
		return false
	}
	for i := 1; i < len(key); i++ {
		if !isIdentPart(key[i]) {
			return false
		}
	}
	_, isReserved := reserved[key]
	return !isReserved
}

const hexDigits = "0123456789abcdef"

// quote writes s as a double-quoted string, escaping everything outside
// printable ASCII so the output is safe in any script encoding.
func quote(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r >= 0x20 && r < 0x7f:
			buf.WriteByte(byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			writeUnicode(buf, hi)
			writeUnicode(buf, lo)
		default:
			writeUnicode(buf, r)
		}
	}
	buf.WriteByte('"')
}

func writeUnicode(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[r>>12&0xf])
	buf.WriteByte(hexDigits[r>>8&0xf])
	buf.WriteByte(hexDigits[r>>4&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}
