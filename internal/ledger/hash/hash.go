// Package hash computes canonical content digests for credential payloads.
//
// The digest must be a pure function of the payload's logical content:
// identical payloads hash identically regardless of field insertion order or
// the machine producing them. Anchors on the registry ledger are keyed by
// this digest, so any drift here silently breaks anchoring idempotency.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Payload is an arbitrary JSON-shaped credential body.
type Payload map[string]any

// Content returns the canonical SHA-256 digest of the payload.
func Content(payload Payload) (common.Hash, error) {
	if payload == nil {
		return common.Hash{}, fmt.Errorf("payload is nil")
	}
	canonical, err := Canonical(payload)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(sha256.Sum256(canonical)), nil
}

// Canonical serializes the payload with recursively sorted object keys and
// compact separators. Numbers pass through json.Marshal, which rejects NaN
// and infinities.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		return writeCanonicalMap(buf, val)
	case Payload:
		return writeCanonicalMap(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		// Scalars and anything already concrete: defer to encoding/json.
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonicalize value: %w", err)
		}
		buf.Write(b)
		return nil
	}
}

func writeCanonicalMap(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return fmt.Errorf("canonicalize key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := writeCanonical(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
