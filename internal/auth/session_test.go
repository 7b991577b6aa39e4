package auth

import (
	"strings"
	"testing"
	"time"
)

// newTestCodec creates a SessionCodec with a fixed secret so tests are
// deterministic.
func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()
	codec, err := NewSessionCodec("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}
	return codec
}

// testEnvelope returns a fully populated envelope for round-trip tests.
func testEnvelope() Envelope {
	return Envelope{
		AccessToken:       "access-abc",
		RefreshToken:      "refresh-xyz",
		AccessTokenExpiry: time.Now().Add(time.Hour).Truncate(time.Second),
		Identity: Identity{
			ID:          "spotify-user-1",
			DisplayName: "Alex",
			AvatarURL:   "https://img.example/alex.png",
		},
		SessionID: "sid-001",
	}
}

// =========================================================================
// CODEC CONSTRUCTION TESTS
// =========================================================================

func TestNewSessionCodec_ShortSecret(t *testing.T) {
	_, err := NewSessionCodec("short")
	if err == nil {
		t.Fatal("NewSessionCodec() should reject secrets shorter than 16 chars")
	}
}

func TestNewSessionCodec_ValidSecret(t *testing.T) {
	_, err := NewSessionCodec("this-is-16-chars")
	if err != nil {
		t.Fatalf("NewSessionCodec() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ENCODE TESTS
// =========================================================================

func TestEncode_ProducesJWT(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode(testEnvelope())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if token == "" {
		t.Error("Encode() returned empty token")
	}
	// JWTs have 3 dot-separated parts: header.payload.signature
	if parts := strings.Count(token, "."); parts != 2 {
		t.Errorf("Encode() token doesn't look like a JWT (expected 2 dots, got %d)", parts)
	}
}

func TestEncode_RejectsMissingIdentity(t *testing.T) {
	codec := newTestCodec(t)

	env := testEnvelope()
	env.Identity.ID = ""
	if _, err := codec.Encode(env); err == nil {
		t.Error("Encode() should reject an envelope without an identity")
	}
}

func TestEncode_RejectsMissingSessionID(t *testing.T) {
	codec := newTestCodec(t)

	env := testEnvelope()
	env.SessionID = ""
	if _, err := codec.Encode(env); err == nil {
		t.Error("Encode() should reject an envelope without a session ID")
	}
}

// =========================================================================
// DECODE TESTS
// =========================================================================

func TestDecode_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	env := testEnvelope()

	token, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got.AccessToken != env.AccessToken {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, env.AccessToken)
	}
	if got.RefreshToken != env.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", got.RefreshToken, env.RefreshToken)
	}
	// The expiry travels as unix seconds; sub-second precision is lost.
	if !got.AccessTokenExpiry.Equal(env.AccessTokenExpiry) {
		t.Errorf("AccessTokenExpiry = %v, want %v", got.AccessTokenExpiry, env.AccessTokenExpiry)
	}
	if got.Identity != env.Identity {
		t.Errorf("Identity = %+v, want %+v", got.Identity, env.Identity)
	}
	if got.SessionID != env.SessionID {
		t.Errorf("SessionID = %q, want %q", got.SessionID, env.SessionID)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestDecode_RoundTripPreservesDegradedMarker(t *testing.T) {
	codec := newTestCodec(t)

	env := testEnvelope()
	env.Error = ErrorRefreshFailed

	token, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Error != ErrorRefreshFailed {
		t.Errorf("Error = %q, want %q", got.Error, ErrorRefreshFailed)
	}
}

func TestDecode_RejectsTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode(testEnvelope())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip a character in the payload segment.
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}

	if _, err := codec.Decode(string(tampered)); err == nil {
		t.Error("Decode() accepted a tampered token")
	}
}

func TestDecode_RejectsTokenFromDifferentSecret(t *testing.T) {
	codec := newTestCodec(t)

	other, err := NewSessionCodec("a-completely-different-secret!!")
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}
	token, err := other.Encode(testEnvelope())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if _, err := codec.Decode(token); err == nil {
		t.Error("Decode() accepted a token signed with a different secret")
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := codec.Decode(input); err == nil {
			t.Errorf("Decode(%q) accepted invalid input", input)
		}
	}
}

// =========================================================================
// ENVELOPE TESTS
// =========================================================================

func TestEnvelopeValid(t *testing.T) {
	now := time.Now()

	env := Envelope{AccessTokenExpiry: now.Add(time.Minute)}
	if !env.Valid(now) {
		t.Error("Valid() = false for a token expiring in the future")
	}

	env.AccessTokenExpiry = now.Add(-time.Minute)
	if env.Valid(now) {
		t.Error("Valid() = true for an expired token")
	}

	// Exactly at the boundary counts as expired.
	env.AccessTokenExpiry = now
	if env.Valid(now) {
		t.Error("Valid() = true at the exact expiry instant")
	}
}
