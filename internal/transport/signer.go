package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// envelope is the wire shape both sign and verify operate on: a base64
// payload, a second-granularity Unix timestamp, and an HMAC-SHA256 over
// both. This plays the role of itsdangerous.TimedSerializer in the original
// client, which has no Go or ecosystem equivalent in the retrieval pack.
type envelope struct {
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type signer struct {
	key []byte
}

func newSigner(key string) *signer {
	return &signer{key: []byte(key)}
}

// sign wraps payload in a timestamped, HMAC-signed envelope and returns its
// JSON encoding, ready to POST.
func (s *signer) sign(payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("signer: marshal payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	ts := time.Now().Unix()

	env := envelope{
		Payload:   encoded,
		Timestamp: ts,
		Signature: s.mac(encoded, ts),
	}
	return json.Marshal(env)
}

// verify checks the envelope's signature and freshness, then returns the
// decoded payload as a generic map.
func (s *signer) verify(data []byte, maxAge time.Duration) (map[string]interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("signer: malformed envelope: %w", err)
	}

	want := s.mac(env.Payload, env.Timestamp)
	if !hmac.Equal([]byte(want), []byte(env.Signature)) {
		return nil, errors.New("signer: bad signature")
	}

	age := time.Since(time.Unix(env.Timestamp, 0))
	if age > maxAge || age < -5*time.Second {
		return nil, errors.New("signer: stale or future-dated envelope")
	}

	raw, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("signer: bad payload encoding: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("signer: malformed payload: %w", err)
	}
	return result, nil
}

func (s *signer) mac(encodedPayload string, timestamp int64) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s.%d", encodedPayload, timestamp)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
