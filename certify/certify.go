// Package certify implements the tip certification that runs after every
// successful append: a hash tree over the pair (last_block_index,
// tip_hash), published to the hosting platform's certified-data slot so
// clients can verify the log's tip without trusting the host. The actual
// certified-variable API is an external collaborator represented here by
// the narrow Platform interface.
package certify

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/txlogd/txlog/certhash"
	"github.com/txlogd/txlog/merkle"
)

// Platform is the hosting environment's certified-data slot: a setter for
// a single authenticated blob, and a getter for the certificate proving
// the currently-set blob to a client. A real platform adapter backs this
// with the actual certified-variable API; InMemoryPlatform below stands in
// for it anywhere that API isn't available.
type Platform interface {
	SetCertifiedData(data []byte) error
	DataCertificate() ([]byte, error)
}

// Certificate is the cached result of the most recent certification,
// returned verbatim by icrc3_get_tip_certificate.
type Certificate struct {
	Certificate []byte
	HashTree    []byte
}

// Certifier implements ledger.Certifier: after every append it rebuilds
// the single-leaf hash tree over (last_block_index, tip_hash), publishes
// the root to the platform, and caches the resulting certificate.
type Certifier struct {
	mu       sync.Mutex
	platform Platform
	current  Certificate
}

// NewCertifier constructs a Certifier against platform.
func NewCertifier(platform Platform) *Certifier {
	return &Certifier{platform: platform}
}

// Certify implements ledger.Certifier. It must not block the caller on
// anything beyond the platform's own SetCertifiedData/DataCertificate
// calls, which are expected to be in-memory-fast for any real platform
// adapter the same way the rest of the append path is synchronous.
func (c *Certifier) Certify(lastBlockIndex uint64, tipHash certhash.Hash) {
	leaf := leafHash(lastBlockIndex, tipHash)
	tree := merkle.NewMerkle([]certhash.Hash{leaf})
	root := tree.GetRoot()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.platform.SetCertifiedData(root.Bytes()); err != nil {
		return
	}
	cert, err := c.platform.DataCertificate()
	if err != nil {
		return
	}
	c.current = Certificate{
		Certificate: cert,
		HashTree:    encodeHashTree(tree),
	}
}

// Current returns the most recently published certificate, for
// icrc3_get_tip_certificate. It is the zero Certificate until the first
// Certify call; ledger.Log.SetCertifier makes that call as soon as the
// certifier is wired in.
func (c *Certifier) Current() Certificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// leafHash computes the single leaf the certification tree is built over:
// the 8-byte big-endian block index followed by the 32-byte tip hash.
func leafHash(lastBlockIndex uint64, tipHash certhash.Hash) certhash.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], lastBlockIndex)
	sum := sha256.Sum256(append(idx[:], tipHash.Bytes()...))
	return certhash.Hash(sum)
}

// encodeHashTree serializes every node of the tree (leaves first, root
// last) as a flat concatenation of fixed-size digests. This is not the
// platform's real hash-tree CBOR format (out of scope, per the certified-
// variable API being an external collaborator); it is a stand-in with the
// same "prove the root from the leaves" shape.
func encodeHashTree(tree *merkle.Merkle) []byte {
	nodes := tree.Nodes()
	out := make([]byte, 0, len(nodes)*certhash.Size)
	for _, n := range nodes {
		out = append(out, n.Bytes()...)
	}
	return out
}
