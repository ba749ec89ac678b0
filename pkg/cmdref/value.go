package cmdref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the literal kind of an attribute value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindString
	KindInt
	KindRegexp
	KindSequence
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindBool:     "boolean",
	KindString:   "string",
	KindInt:      "integer",
	KindRegexp:   "regexp",
	KindSequence: "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a typed attribute value. The zero Value is the absence marker.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string // string text, or the regexp literal as written
	re   *regexp.Regexp
	seq  []Value
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// RegexpValue returns a regexp Value. literal is the pattern as authored and
// is used for display; it defaults to "/<expr>/".
func RegexpValue(re *regexp.Regexp, literal string) Value {
	if literal == "" {
		literal = "/" + re.String() + "/"
	}
	return Value{kind: KindRegexp, re: re, s: literal}
}

// SequenceValue returns a sequence Value holding a copy of elems.
func SequenceValue(elems ...Value) Value {
	return Value{kind: KindSequence, seq: append([]Value(nil), elems...)}
}

// Kind returns the literal kind, KindInvalid for the absence marker.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the absence marker.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Str returns the string payload, or the authored literal of a regexp.
func (v Value) Str() string {
	if v.kind == KindString || v.kind == KindRegexp {
		return v.s
	}
	return ""
}

// Int returns the integer payload; 0 for other kinds.
func (v Value) Int() int64 {
	if v.kind == KindInt {
		return v.i
	}
	return 0
}

// Regexp returns the compiled pattern of a regexp Value, nil otherwise.
func (v Value) Regexp() *regexp.Regexp {
	if v.kind == KindRegexp {
		return v.re
	}
	return nil
}

// Seq returns a copy of the elements of a sequence Value, nil otherwise.
func (v Value) Seq() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return append([]Value(nil), v.seq...)
}

// Len returns the element count of a sequence, 1 for other present values and
// 0 for the absence marker.
func (v Value) Len() int {
	switch v.kind {
	case KindInvalid:
		return 0
	case KindSequence:
		return len(v.seq)
	default:
		return 1
	}
}

// Interface converts v to plain Go data suitable for JSON or YAML encoding.
// Regexps render as their authored literal.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString, KindRegexp:
		return v.s
	case KindInt:
		return v.i
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload. Regexps
// compare by their compiled expression.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindRegexp:
		return v.re.String() == o.re.String()
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindRegexp:
		return v.s
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<absent>"
	}
}

// ParseRegexpLiteral compiles a regexp literal. "/expr/flags" form strips the
// delimiters and maps the flags i, m and s onto inline flags; anything else is
// compiled verbatim.
func ParseRegexpLiteral(lit string) (*regexp.Regexp, error) {
	expr := lit
	if len(lit) >= 2 && lit[0] == '/' {
		end := strings.LastIndexByte(lit, '/')
		if end > 0 {
			flags := lit[end+1:]
			for _, f := range flags {
				if !strings.ContainsRune("ims", f) {
					return nil, fmt.Errorf("unsupported regexp flag %q", f)
				}
			}
			expr = lit[1:end]
			if flags != "" {
				expr = "(?" + flags + ")" + expr
			}
		}
	}
	return regexp.Compile(expr)
}
