package merkle

import (
	"testing"

	"github.com/txlogd/txlog/certhash"
)

func leafOf(b byte) certhash.Hash {
	var h certhash.Hash
	h[0] = b
	return h
}

func TestMergeTwoHashIsDeterministic(t *testing.T) {
	a, b := leafOf(1), leafOf(2)
	m1 := MergeTwoHash(a, b)
	m2 := MergeTwoHash(a, b)
	if m1 != m2 {
		t.Fatalf("MergeTwoHash not deterministic: %v != %v", m1, m2)
	}
	if m1 == MergeTwoHash(b, a) {
		t.Fatalf("MergeTwoHash should not be order-independent")
	}
}

func TestNewMerkleSingleLeafRootIsUnchanged(t *testing.T) {
	leaf := leafOf(42)
	tree := NewMerkle([]certhash.Hash{leaf})
	if tree.GetRoot() != leaf {
		t.Fatalf("single-leaf root = %v, want unchanged leaf %v", tree.GetRoot(), leaf)
	}
	if len(tree.Nodes()) != 1 {
		t.Fatalf("single-leaf tree should have exactly one node, got %d", len(tree.Nodes()))
	}
}

func TestNewMerkleEmptyUsesZeroLeaf(t *testing.T) {
	tree := NewMerkle(nil)
	if tree.GetRoot() != certhash.Zero {
		t.Fatalf("empty-input root = %v, want certhash.Zero", tree.GetRoot())
	}
}

func TestNewMerkleOddNumberOfLeaves(t *testing.T) {
	a, b, c := leafOf(1), leafOf(2), leafOf(3)
	tree := NewMerkle([]certhash.Hash{a, b, c})
	// 3 leaves round up to 4 slots: (a,b) and (c,c) merge, then their merge
	// is the root.
	want := MergeTwoHash(MergeTwoHash(a, b), MergeTwoHash(c, c))
	if tree.GetRoot() != want {
		t.Fatalf("GetRoot() = %v, want %v", tree.GetRoot(), want)
	}
}
