package value

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// tag identifies the on-wire variant, independent of Kind's ordering so the
// two can evolve separately.
type tag byte

const (
	tagInt tag = iota
	tagNat
	tagBlob
	tagText
	tagArray
	tagMap
)

// Encode produces the canonical byte encoding of v, used for archive
// offload batches (EncodedBlock) and for content-hash-independent storage.
// It is not used for certified hashing; certhash.Of defines that encoding
// separately.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch v.kind {
	case KindInt:
		sign := byte(0)
		if v.i.Sign() < 0 {
			sign = 1
		}
		buf = append(buf, byte(tagInt), sign)
		buf = appendBytes(buf, v.i.Bytes())
	case KindNat:
		buf = append(buf, byte(tagNat))
		buf = appendBytes(buf, v.n.Bytes())
	case KindBlob:
		buf = append(buf, byte(tagBlob))
		buf = appendBytes(buf, v.blob)
	case KindText:
		buf = append(buf, byte(tagText))
		buf = appendBytes(buf, []byte(v.text))
	case KindArray:
		buf = append(buf, byte(tagArray))
		buf = appendUvarint(buf, uint64(len(v.arr)))
		for _, item := range v.arr {
			buf = appendValue(buf, item)
		}
	case KindMap:
		buf = append(buf, byte(tagMap))
		entries := v.Entries()
		buf = appendUvarint(buf, uint64(len(entries)))
		for _, e := range entries {
			buf = appendBytes(buf, []byte(e.Key))
			buf = appendValue(buf, e.Value)
		}
	default:
		panic("value: unknown kind in Encode")
	}
	return buf
}

func appendBytes(buf, b []byte) []byte {
	buf = appendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendUvarint(buf []byte, n uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	sz := binary.PutUvarint(tmp[:], n)
	return append(buf, tmp[:sz]...)
}

// GobEncode implements gob.GobEncoder. Value's fields are unexported, so
// gob's reflection-based encoder can't see into it on its own; this routes
// gob through the same canonical encoding used for archive offload and
// content-addressed storage instead of exposing the fields.
func (v Value) GobEncode() ([]byte, error) {
	return Encode(v), nil
}

// GobDecode implements gob.GobDecoder.
func (v *Value) GobDecode(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Decode parses the canonical byte encoding produced by Encode.
func Decode(b []byte) (Value, error) {
	v, rest, err := decodeValue(b)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("value: %d trailing bytes after decode", len(rest))
	}
	return v, nil
}

func decodeValue(b []byte) (Value, []byte, error) {
	if len(b) == 0 {
		return Value{}, nil, fmt.Errorf("value: unexpected end of input")
	}
	t := tag(b[0])
	b = b[1:]
	switch t {
	case tagInt:
		if len(b) == 0 {
			return Value{}, nil, fmt.Errorf("value: truncated int sign byte")
		}
		sign := b[0]
		b = b[1:]
		mag, rest, err := decodeBytes(b)
		if err != nil {
			return Value{}, nil, err
		}
		n := new(big.Int).SetBytes(mag)
		if sign == 1 {
			n.Neg(n)
		}
		return Int(n), rest, nil
	case tagNat:
		mag, rest, err := decodeBytes(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Nat(new(big.Int).SetBytes(mag)), rest, nil
	case tagBlob:
		raw, rest, err := decodeBytes(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Blob(raw), rest, nil
	case tagText:
		raw, rest, err := decodeBytes(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Text(string(raw)), rest, nil
	case tagArray:
		count, rest, err := decodeUvarint(b)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, count)
		for i := uint64(0); i < count; i++ {
			var item Value
			item, rest, err = decodeValue(rest)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, item)
		}
		return Array(items...), rest, nil
	case tagMap:
		count, rest, err := decodeUvarint(b)
		if err != nil {
			return Value{}, nil, err
		}
		m := make(map[string]Value, count)
		for i := uint64(0); i < count; i++ {
			var key []byte
			key, rest, err = decodeBytes(rest)
			if err != nil {
				return Value{}, nil, err
			}
			var val Value
			val, rest, err = decodeValue(rest)
			if err != nil {
				return Value{}, nil, err
			}
			m[string(key)] = val
		}
		return Map(m), rest, nil
	default:
		return Value{}, nil, fmt.Errorf("value: unknown tag %d", t)
	}
}

func decodeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := decodeUvarint(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("value: truncated byte string")
	}
	return rest[:n], rest[n:], nil
}

func decodeUvarint(b []byte) (uint64, []byte, error) {
	n, sz := binary.Uvarint(b)
	if sz <= 0 {
		return 0, nil, fmt.Errorf("value: invalid varint")
	}
	return n, b[sz:], nil
}
