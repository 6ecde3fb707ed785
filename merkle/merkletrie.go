/*
 * Copyright 2018 The CovenantSQL Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package merkle

import (
	"crypto/sha256"

	"github.com/txlogd/txlog/certhash"
)

// Merkle is a merkle tree over certhash.Hash leaves
// (https://en.wikipedia.org/wiki/Merkle_tree). The certifier builds one of
// these over a single leaf on every append; callers with more than one
// leaf (there are none in this system today, but the construction is
// general) get the usual binary tree.
type Merkle struct {
	tree []certhash.Hash
}

// we will not consider overflow because overflow means the length of slice is larger than 2^63
// Algorithm is from
// https://web.archive.org/web/20180327073507/graphics.stanford.edu/~seander/bithacks.html#RoundUpPowerOf2
func upperPowOfTwo(n int) int {
	n--
	n |= (n >> 1)
	n |= (n >> 2)
	n |= (n >> 4)
	n |= (n >> 8)
	n |= (n >> 16)
	n++
	return n
}

// NewMerkle builds a merkle tree over items. A single-item input (the
// certifier's common case) produces a one-node tree whose root is that
// item unchanged.
func NewMerkle(items []certhash.Hash) *Merkle {
	if len(items) == 0 {
		items = []certhash.Hash{certhash.Zero}
	}

	// the max number of merkle tree node = upperPowOfTwo(len(items)) * 2 - 1
	upperPoT := upperPowOfTwo(len(items))
	maxMerkleSize := upperPoT*2 - 1
	hashArray := make([]certhash.Hash, maxMerkleSize)
	present := make([]bool, maxMerkleSize)

	for i, item := range items {
		hashArray[i] = item
		present[i] = true
	}
	offset := upperPoT
	for i := 0; i < maxMerkleSize-1; i += 2 {
		switch {
		case present[i] && present[i+1]:
			hashArray[offset] = MergeTwoHash(hashArray[i], hashArray[i+1])
			present[offset] = true
		case present[i]:
			hashArray[offset] = MergeTwoHash(hashArray[i], hashArray[i])
			present[offset] = true
		}
		offset++
	}
	return &Merkle{tree: hashArray}
}

// GetRoot returns the root of the merkle tree.
func (m *Merkle) GetRoot() certhash.Hash {
	return m.tree[len(m.tree)-1]
}

// Nodes returns every node of the tree in construction order (leaves
// first, root last), for serializing as a hash-tree blob.
func (m *Merkle) Nodes() []certhash.Hash {
	return m.tree
}

// MergeTwoHash computes the hash of the concatenation of two hashes.
func MergeTwoHash(l, r certhash.Hash) certhash.Hash {
	sum := sha256.Sum256(append(append([]byte{}, l.Bytes()...), r.Bytes()...))
	return certhash.Hash(sum)
}
