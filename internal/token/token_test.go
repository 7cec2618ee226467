package token

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")
	issued := time.Date(2024, 6, 1, 12, 30, 45, 123_000_000, time.UTC)

	tok, err := codec.Encode(issued)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(issued) {
		t.Fatalf("expected %v, got %v", issued, decoded)
	}
}

func TestFreshIVProducesDistinctTokens(t *testing.T) {
	codec := NewCodec("test-secret")
	issued := time.Now()

	first, err := codec.Encode(issued)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := codec.Encode(issued)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens for the same timestamp")
	}

	for _, tok := range []string{first, second} {
		decoded, err := codec.Decode(tok)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.Unix() != issued.Unix() {
			t.Fatalf("expected %v, got %v", issued, decoded)
		}
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	codec := NewCodec("test-secret")
	valid, err := codec.Encode(time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ivHex, cipherHex, _ := strings.Cut(valid, ":")

	cases := map[string]string{
		"missing delimiter": ivHex + cipherHex,
		"empty":             "",
		"not hex":           "zz:zz",
		"short iv":          ivHex[:8] + ":" + cipherHex,
		"truncated cipher":  ivHex + ":" + cipherHex[:len(cipherHex)-2],
		"empty cipher":      ivHex + ":",
	}
	for name, tok := range cases {
		if _, err := codec.Decode(tok); err != ErrBadToken {
			t.Fatalf("%s: expected ErrBadToken, got %v", name, err)
		}
	}
}

func TestDecodeRejectsFlippedByte(t *testing.T) {
	codec := NewCodec("test-secret")
	valid, err := codec.Encode(time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tampered := []byte(valid)
	// Flip a ciphertext nibble past the delimiter.
	i := strings.IndexByte(valid, ':') + 1
	if tampered[i] == '0' {
		tampered[i] = '1'
	} else {
		tampered[i] = '0'
	}
	if _, err := codec.Decode(string(tampered)); err != ErrBadToken {
		t.Fatalf("expected ErrBadToken for tampered token, got %v", err)
	}
}

func TestDecodeRejectsForeignKey(t *testing.T) {
	tok, err := NewCodec("secret-a").Encode(time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := NewCodec("secret-b").Decode(tok); err != ErrBadToken {
		t.Fatalf("expected ErrBadToken under a different key, got %v", err)
	}
}
