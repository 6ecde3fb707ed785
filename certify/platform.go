package certify

import (
	"crypto/sha256"
	"sync"

	"github.com/pkg/errors"
)

// InMemoryPlatform is a Platform that keeps the latest certified data in
// memory and fabricates a certificate as its hash, for running outside any
// real hosting platform (local development, tests, or a deployment target
// that has no certified-variable API of its own).
type InMemoryPlatform struct {
	mu   sync.Mutex
	data []byte
}

// NewInMemoryPlatform constructs an empty InMemoryPlatform.
func NewInMemoryPlatform() *InMemoryPlatform {
	return &InMemoryPlatform{}
}

// SetCertifiedData implements Platform.
func (p *InMemoryPlatform) SetCertifiedData(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	return nil
}

// DataCertificate implements Platform. There is no real platform signature
// to return, so the "certificate" is the hash of the currently-set data;
// good enough to detect staleness locally, not a substitute for a real
// certified-variable certificate.
func (p *InMemoryPlatform) DataCertificate() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return nil, errors.New("certify: no certified data set yet")
	}
	sum := sha256.Sum256(p.data)
	return sum[:], nil
}
