package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// jsonValue mirrors the ICRC-3 Value variant directly: exactly one field is
// set, matching Kind. This is the wire shape icrc3_get_blocks and friends
// return over JSON-RPC; it is independent of both the canonical byte codec
// (used for storage and archive offload) and certhash's hashing encoding.
type jsonValue struct {
	Int   *string              `json:"Int,omitempty"`
	Nat   *string              `json:"Nat,omitempty"`
	Blob  *string              `json:"Blob,omitempty"`
	Text  *string              `json:"Text,omitempty"`
	Array []jsonValue          `json:"Array,omitempty"`
	Map   map[string]jsonValue `json:"Map,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSONValue())
}

func (v Value) toJSONValue() jsonValue {
	switch v.kind {
	case KindInt:
		s := v.i.String()
		return jsonValue{Int: &s}
	case KindNat:
		s := v.n.String()
		return jsonValue{Nat: &s}
	case KindBlob:
		s := base64.StdEncoding.EncodeToString(v.blob)
		return jsonValue{Blob: &s}
	case KindText:
		s := v.text
		return jsonValue{Text: &s}
	case KindArray:
		items := make([]jsonValue, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.toJSONValue()
		}
		return jsonValue{Array: items}
	case KindMap:
		m := make(map[string]jsonValue, len(v.m))
		for k, val := range v.m {
			m[k] = val.toJSONValue()
		}
		return jsonValue{Map: m}
	default:
		panic("value: unknown kind in MarshalJSON")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	out, err := fromJSONValue(jv)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromJSONValue(jv jsonValue) (Value, error) {
	switch {
	case jv.Int != nil:
		n, ok := new(big.Int).SetString(*jv.Int, 10)
		if !ok {
			return Value{}, fmt.Errorf("value: invalid Int %q", *jv.Int)
		}
		return Int(n), nil
	case jv.Nat != nil:
		n, ok := new(big.Int).SetString(*jv.Nat, 10)
		if !ok {
			return Value{}, fmt.Errorf("value: invalid Nat %q", *jv.Nat)
		}
		return Nat(n), nil
	case jv.Blob != nil:
		raw, err := base64.StdEncoding.DecodeString(*jv.Blob)
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid Blob: %w", err)
		}
		return Blob(raw), nil
	case jv.Text != nil:
		return Text(*jv.Text), nil
	case jv.Array != nil:
		items := make([]Value, len(jv.Array))
		for i, item := range jv.Array {
			v, err := fromJSONValue(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case jv.Map != nil:
		m := make(map[string]Value, len(jv.Map))
		for k, item := range jv.Map {
			v, err := fromJSONValue(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("value: empty Value variant")
	}
}
