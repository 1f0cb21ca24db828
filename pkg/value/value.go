// Package value defines the runtime values manipulated by the virtual machine
// and the constant pool embedded in compiled chunks.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Object is a reference to a heap-allocated value. No object types exist yet;
// the variant is reserved so that consumers already handle it.
type Object interface {
	ObjectKind() string
}

// Value is a tagged union over the closed set of kinds above.
// The zero Value is nil.
type Value struct {
	kind Kind
	num  float64
	obj  Object
}

// Nil is the nil value.
var Nil = Value{kind: KindNil}

// Number wraps a float64.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Bool wraps a boolean.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// FromObject wraps a heap object reference.
func FromObject(o Object) Value {
	return Value{kind: KindObject, obj: o}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsNumber returns the float payload. The result is meaningless unless
// IsNumber reports true.
func (v Value) AsNumber() float64 { return v.num }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.kind == KindBool && v.num != 0 }

// AsObject returns the object payload, or nil.
func (v Value) AsObject() Object { return v.obj }

// Equal reports whether two values are the same variant with the same payload.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindNumber:
		return a.num == b.num
	case KindObject:
		return a.obj == b.obj
	default:
		panic(fmt.Sprintf("value: unhandled kind %s", a.kind))
	}
}

// String formats a value the way the REPL prints results.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindObject:
		if v.obj == nil {
			return "<object>"
		}
		return "<" + v.obj.ObjectKind() + ">"
	default:
		panic(fmt.Sprintf("value: unhandled kind %s", v.kind))
	}
}
