package token

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"credverse/pkg/platform/sentinel"
)

// KeyPair is usable issuer key material. The provider is a black box; callers
// never persist private keys themselves.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// KeyProvider holds or derives signing keys per issuer.
type KeyProvider interface {
	// GetOrCreate returns the issuer's key pair, generating one on first use.
	GetOrCreate(ctx context.Context, issuerID uuid.UUID) (KeyPair, error)
	// Public returns the issuer's public key without creating material.
	Public(ctx context.Context, issuerID uuid.UUID) (ed25519.PublicKey, error)
}

// InMemoryKeyProvider keeps key material in process memory. Suitable for
// development and tests; production deployments swap in a KMS-backed
// implementation behind the same interface.
type InMemoryKeyProvider struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]KeyPair
}

func NewInMemoryKeyProvider() *InMemoryKeyProvider {
	return &InMemoryKeyProvider{keys: make(map[uuid.UUID]KeyPair)}
}

func (p *InMemoryKeyProvider) GetOrCreate(_ context.Context, issuerID uuid.UUID) (KeyPair, error) {
	p.mu.RLock()
	if pair, ok := p.keys[issuerID]; ok {
		p.mu.RUnlock()
		return pair, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if pair, ok := p.keys[issuerID]; ok {
		return pair, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate issuer key: %w", err)
	}
	pair := KeyPair{Public: pub, Private: priv}
	p.keys[issuerID] = pair
	return pair, nil
}

func (p *InMemoryKeyProvider) Public(_ context.Context, issuerID uuid.UUID) (ed25519.PublicKey, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pair, ok := p.keys[issuerID]
	if !ok {
		return nil, fmt.Errorf("issuer key: %w", sentinel.ErrNotFound)
	}
	return pair.Public, nil
}
