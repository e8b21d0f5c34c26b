// Package literal models the JavaScript object literals that documentation
// generators emit for their search indexes. Unlike encoding/json it accepts
// unquoted identifier keys and single-quoted strings, and it keeps object
// members in source order so a decoded index can be written back unchanged.
package literal

import "strconv"

// Kind identifies the type held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a decoded literal. Numbers keep their source text so that
// re-encoding never changes their representation.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     string
	Str     string
	Items   []Value
	Members []Member
}

// Member is one key/value pair of an object, in source order.
type Member struct {
	Key   string
	Value Value
}

func NullValue() Value { return Value{Kind: Null} }

func BoolValue(b bool) Value { return Value{Kind: Bool, Bool: b} }

func IntValue(n int) Value { return Value{Kind: Number, Num: strconv.Itoa(n)} }

func StringValue(s string) Value { return Value{Kind: String, Str: s} }

func ArrayValue(items ...Value) Value { return Value{Kind: Array, Items: items} }

func ObjectValue(members ...Member) Value { return Value{Kind: Object, Members: members} }

// Get returns the first member named key of an object value.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Int reports the value as an int when it is an integral number.
func (v Value) Int() (int, bool) {
	if v.Kind != Number {
		return 0, false
	}
	n, err := strconv.Atoi(v.Num)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Strings returns the items of an array of strings.
func (v Value) Strings() ([]string, bool) {
	if v.Kind != Array {
		return nil, false
	}
	out := make([]string, len(v.Items))
	for i, item := range v.Items {
		if item.Kind != String {
			return nil, false
		}
		out[i] = item.Str
	}
	return out, true
}

// StringsValue builds an array of strings.
func StringsValue(ss []string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = StringValue(s)
	}
	return Value{Kind: Array, Items: items}
}
