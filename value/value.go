// Package value implements the self-describing value model used as the
// canonical representation for blocks and transaction payloads.
package value

import (
	"fmt"
	"math/big"
	"sort"
)

// Kind discriminates the variant held by a Value.
type Kind int

// The variants of Value, mirroring the tagged union described by the data
// model: signed/unsigned arbitrary precision integers, byte strings, UTF-8
// text, ordered arrays and ordered string-keyed maps.
const (
	KindInt Kind = iota
	KindNat
	KindBlob
	KindText
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindNat:
		return "nat"
	case KindBlob:
		return "blob"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the recursive self-describing value. Exactly one of the
// accessors is meaningful, determined by Kind.
type Value struct {
	kind Kind
	i    *big.Int
	n    *big.Int
	blob []byte
	text string
	arr  []Value
	m    map[string]Value
}

// Int wraps a signed arbitrary precision integer.
func Int(v *big.Int) Value { return Value{kind: KindInt, i: new(big.Int).Set(v)} }

// IntFromInt64 is a convenience constructor for small signed integers.
func IntFromInt64(v int64) Value { return Int(big.NewInt(v)) }

// Nat wraps an unsigned arbitrary precision integer. Panics if v is negative,
// matching the type's invariant that Nat values are never negative.
func Nat(v *big.Int) Value {
	if v.Sign() < 0 {
		panic("value: Nat given a negative magnitude")
	}
	return Value{kind: KindNat, n: new(big.Int).Set(v)}
}

// NatFromUint64 is a convenience constructor for small unsigned integers.
func NatFromUint64(v uint64) Value { return Nat(new(big.Int).SetUint64(v)) }

// Blob wraps a raw byte string.
func Blob(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBlob, blob: cp}
}

// Text wraps a UTF-8 string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Array wraps an ordered sequence of values. The sequence order is
// significant and preserved as-is (unlike Map, which is reordered
// canonically on construction).
func Array(vs ...Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arr: cp}
}

// Map wraps an ordered string-keyed mapping. Key order is not significant
// to callers; Entries() always returns entries in canonical (ascending key
// byte) order.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the wrapped signed integer. Panics if Kind() != KindInt.
func (v Value) AsInt() *big.Int { v.mustBe(KindInt); return v.i }

// AsNat returns the wrapped unsigned integer. Panics if Kind() != KindNat.
func (v Value) AsNat() *big.Int { v.mustBe(KindNat); return v.n }

// AsBlob returns the wrapped byte string. Panics if Kind() != KindBlob.
func (v Value) AsBlob() []byte { v.mustBe(KindBlob); return v.blob }

// AsText returns the wrapped string. Panics if Kind() != KindText.
func (v Value) AsText() string { v.mustBe(KindText); return v.text }

// AsArray returns the wrapped sequence. Panics if Kind() != KindArray.
func (v Value) AsArray() []Value { v.mustBe(KindArray); return v.arr }

// Entries returns the wrapped map's entries sorted ascending by key bytes,
// the canonical order required for hashing. Panics if Kind() != KindMap.
func (v Value) Entries() []MapEntry {
	v.mustBe(KindMap)
	entries := make([]MapEntry, 0, len(v.m))
	for k, val := range v.m {
		entries = append(entries, MapEntry{Key: k, Value: val})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Field looks up a key in a map Value. Panics if Kind() != KindMap.
func (v Value) Field(key string) (Value, bool) {
	v.mustBe(KindMap)
	val, ok := v.m[key]
	return val, ok
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: expected %s, got %s", k, v.kind))
	}
}

// MapEntry is a single canonically-ordered map entry.
type MapEntry struct {
	Key   string
	Value Value
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i.Cmp(b.i) == 0
	case KindNat:
		return a.n.Cmp(b.n) == 0
	case KindBlob:
		return string(a.blob) == string(b.blob)
	case KindText:
		return a.text == b.text
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		ae, be := a.Entries(), b.Entries()
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if ae[i].Key != be[i].Key || !Equal(ae[i].Value, be[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
