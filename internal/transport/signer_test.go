package transport

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newSigner("sekrit")
	data, err := s.sign(map[string]interface{}{"currency": "LTC"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := s.verify(data, 10*time.Second)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got["currency"] != "LTC" {
		t.Fatalf("expected currency=LTC, got %+v", got)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	s1 := newSigner("sekrit")
	s2 := newSigner("different")

	data, err := s1.sign(map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s2.verify(data, 10*time.Second); err == nil {
		t.Fatal("expected verify with wrong key to fail")
	}
}

func TestVerifyRejectsStaleEnvelope(t *testing.T) {
	s := newSigner("sekrit")
	data, err := s.sign(map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.verify(data, -1*time.Second); err == nil {
		t.Fatal("expected verify to reject an envelope older than maxAge")
	}
}
