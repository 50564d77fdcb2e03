package hash

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/suite"
)

// HashSuite tests canonical digest behaviour.
//
// Justification: the digest keys every anchor on the registry ledger. If two
// logically identical payloads ever hash differently, re-anchoring stops
// being idempotent and revocation lookups miss.
type HashSuite struct {
	suite.Suite
}

func TestHashSuite(t *testing.T) {
	suite.Run(t, new(HashSuite))
}

func (s *HashSuite) TestKeyOrderIndependence() {
	a := Payload{"name": "A", "id": "1"}
	b := Payload{"id": "1", "name": "A"}

	ha, err := Content(a)
	s.Require().NoError(err)
	hb, err := Content(b)
	s.Require().NoError(err)

	s.Equal(ha, hb)
}

func (s *HashSuite) TestNestedKeyOrderIndependence() {
	a := Payload{
		"subject": map[string]any{"name": "A", "dob": "2000-01-01"},
		"grades":  []any{map[string]any{"course": "math", "score": 91.0}},
	}
	b := Payload{
		"grades":  []any{map[string]any{"score": 91.0, "course": "math"}},
		"subject": map[string]any{"dob": "2000-01-01", "name": "A"},
	}

	ha, err := Content(a)
	s.Require().NoError(err)
	hb, err := Content(b)
	s.Require().NoError(err)

	s.Equal(ha, hb)
}

func (s *HashSuite) TestValueChangeChangesDigest() {
	base := Payload{"name": "A", "id": "1"}
	changed := Payload{"name": "A", "id": "2"}

	hBase, err := Content(base)
	s.Require().NoError(err)
	hChanged, err := Content(changed)
	s.Require().NoError(err)

	s.NotEqual(hBase, hChanged)
}

func (s *HashSuite) TestArrayOrderIsSignificant() {
	a := Payload{"items": []any{"x", "y"}}
	b := Payload{"items": []any{"y", "x"}}

	ha, err := Content(a)
	s.Require().NoError(err)
	hb, err := Content(b)
	s.Require().NoError(err)

	s.NotEqual(ha, hb)
}

func (s *HashSuite) TestNilPayloadRejected() {
	_, err := Content(nil)
	s.Error(err)
}

func (s *HashSuite) TestRandomPayloadPairsDiverge() {
	rng := rand.New(rand.NewSource(42))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		p := Payload{
			"id":    fmt.Sprintf("cred-%d", rng.Int63()),
			"score": rng.Intn(100),
			"tags":  []any{fmt.Sprintf("t%d", rng.Intn(1000))},
		}
		h, err := Content(p)
		s.Require().NoError(err)
		s.False(seen[h.Hex()], "digest collision within test run")
		seen[h.Hex()] = true
	}
}

func (s *HashSuite) TestCanonicalBytesAreStable() {
	p := Payload{"b": 2.0, "a": "x", "c": map[string]any{"z": true, "y": nil}}
	got, err := Canonical(p)
	s.Require().NoError(err)
	s.Equal(`{"a":"x","b":2,"c":{"y":null,"z":true}}`, string(got))
}
