// Package certhash implements the representation-independent hash over the
// value model. Any two conforming implementations must produce
// byte-identical digests for structurally equal values; this is the
// property the core's cross-implementation certification depends on. The
// package's tests check that property directly (raw SHA-256 for blobs,
// text hashed as its UTF-8 bytes, independence from map construction
// order); they do not include golden digest vectors.
package certhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/txlogd/txlog/value"
)

// Size is the digest length in bytes.
const Size = 32

// Hash is a fixed-size digest, modeled on the teacher's crypto/hash.Hash
// shape but without its bitcoin-specific byte-reversed display convention:
// this domain's digests are displayed and compared in their literal
// big-endian form so that independent implementations agree byte for byte.
type Hash [Size]byte

// Zero is the all-zero digest used as the phash of block id 0 and as the
// tip hash of an empty log.
var Zero Hash

// String returns the hex encoding of h.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns a copy of h's bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// Equal reports whether h and other hold the same digest.
func (h Hash) Equal(other Hash) bool { return h == other }

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool { return h == Zero }

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) { return json.Marshal(h.String()) }

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	return h.SetBytes(b)
}

// SetBytes sets h's bytes. Returns an error if len(b) != Size.
func (h *Hash) SetBytes(b []byte) error {
	if len(b) != Size {
		return errHashLength(len(b))
	}
	copy(h[:], b)
	return nil
}

type errHashLength int

func (e errHashLength) Error() string {
	return "certhash: invalid hash length"
}

// FromBytes builds a Hash from a raw digest.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	err := h.SetBytes(b)
	return h, err
}

// leaf returns the digest of a single byte slice.
func leaf(b []byte) Hash {
	s := sha256.Sum256(b)
	return Hash(s)
}

// Of computes the representation-independent hash of v:
//
//	Int/Nat  -> variable-length big-endian minimal encoding of the
//	            magnitude, with a leading sign byte for Int.
//	Blob/Text -> the raw bytes (Text is UTF-8).
//	Array     -> H(concat(H(e0) .. H(en)))
//	Map       -> sort entries ascending by key bytes;
//	             H(concat over entries of H(key) ++ H(value))
func Of(v value.Value) Hash {
	switch v.Kind() {
	case value.KindInt:
		n := v.AsInt()
		sign := byte(0)
		if n.Sign() < 0 {
			sign = 1
		}
		mag := new(bigIntAbs).from(n)
		return leaf(append([]byte{sign}, mag.bytes...))
	case value.KindNat:
		mag := new(bigIntAbs).from(v.AsNat())
		return leaf(mag.bytes)
	case value.KindBlob:
		return leaf(v.AsBlob())
	case value.KindText:
		return leaf([]byte(v.AsText()))
	case value.KindArray:
		items := v.AsArray()
		buf := make([]byte, 0, len(items)*Size)
		for _, item := range items {
			h := Of(item)
			buf = append(buf, h[:]...)
		}
		return leaf(buf)
	case value.KindMap:
		entries := v.Entries()
		buf := make([]byte, 0, len(entries)*2*Size)
		for _, e := range entries {
			kh := leaf([]byte(e.Key))
			vh := Of(e.Value)
			buf = append(buf, kh[:]...)
			buf = append(buf, vh[:]...)
		}
		return leaf(buf)
	default:
		panic("certhash: unknown value kind")
	}
}

// bigIntAbs extracts the minimal big-endian magnitude of a big.Int, with
// the zero value encoded as a single zero byte rather than an empty slice
// so that 0 and "no bytes" are never confused downstream.
type bigIntAbs struct {
	bytes []byte
}

func (b *bigIntAbs) from(n interface{ Bytes() []byte }) *bigIntAbs {
	raw := n.Bytes()
	if len(raw) == 0 {
		b.bytes = []byte{0}
		return b
	}
	b.bytes = raw
	return b
}
