package value

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestJSONRoundTripEveryKind(t *testing.T) {
	cases := []Value{
		Int(big.NewInt(-42)),
		Nat(big.NewInt(7)),
		Blob([]byte{0xde, 0xad, 0xbe, 0xef}),
		Text("hello"),
		Array(Text("a"), NatFromUint64(1)),
		Map(map[string]Value{"x": Text("y"), "n": NatFromUint64(3)}),
	}
	for _, v := range cases {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", v.Kind(), err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !Equal(v, got) {
			t.Fatalf("round trip mismatch for %v: got %v from %s", v.Kind(), got, data)
		}
	}
}

func TestJSONMapUsesVariantShape(t *testing.T) {
	data, err := json.Marshal(Text("hi"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw["Text"] != "hi" {
		t.Fatalf("expected {\"Text\":\"hi\"}, got %s", data)
	}
}
