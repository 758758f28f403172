package ir

import "github.com/concat-lang/concatc/token"

// Type is one of the primitive types a concatc program can declare:
// a parameter type, a return type, or a cast target/source.
type Type byte

// The recognised primitive types. Only TypeI64, TypePtr and TypeStr
// (and, derivatively, TypeBool) participate in the 64-bit operand
// stack at runtime; the rest are accepted as declarations and as cast
// annotations even though floating-point arithmetic on the operand
// stack itself is out of scope for the runtime, not for the type
// system.
const (
	TypeI8 Type = iota
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
	TypeF32
	TypeF64
	TypePtr
	TypeStr
	TypeBool
	TypeVoid
)

var typeNames = map[Type]string{
	TypeI8:   "i8",
	TypeU8:   "u8",
	TypeI16:  "i16",
	TypeU16:  "u16",
	TypeI32:  "i32",
	TypeU32:  "u32",
	TypeI64:  "i64",
	TypeU64:  "u64",
	TypeF32:  "f32",
	TypeF64:  "f64",
	TypePtr:  "ptr",
	TypeStr:  "str",
	TypeBool: "bool",
	TypeVoid: "void",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// TypeFromToken maps a type-keyword token to its Type. ok is false if
// kind doesn't name a type.
func TypeFromToken(kind token.Kind) (Type, bool) {
	switch kind {
	case token.I8:
		return TypeI8, true
	case token.U8:
		return TypeU8, true
	case token.I16:
		return TypeI16, true
	case token.U16:
		return TypeU16, true
	case token.I32:
		return TypeI32, true
	case token.U32:
		return TypeU32, true
	case token.I64:
		return TypeI64, true
	case token.U64:
		return TypeU64, true
	case token.F32:
		return TypeF32, true
	case token.F64:
		return TypeF64, true
	case token.PTR:
		return TypePtr, true
	case token.STR:
		return TypeStr, true
	case token.BOOL:
		return TypeBool, true
	case token.VOID:
		return TypeVoid, true
	}
	return 0, false
}

// IntWidth returns the bit width of an integer type, and ok=false for
// non-integer types.
func (t Type) IntWidth() (width int, signed, ok bool) {
	switch t {
	case TypeI8:
		return 8, true, true
	case TypeU8:
		return 8, false, true
	case TypeI16:
		return 16, true, true
	case TypeU16:
		return 16, false, true
	case TypeI32:
		return 32, true, true
	case TypeU32:
		return 32, false, true
	case TypeI64, TypePtr:
		return 64, true, true
	case TypeU64:
		return 64, false, true
	}
	return 0, false, false
}
