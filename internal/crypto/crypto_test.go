package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSigner(t *testing.T) {
	if _, err := NewSigner(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewSigner(\"\") error = %v, want ErrEmptySecret", err)
	}
	if _, err := NewSigner("whsec"); err != nil {
		t.Errorf("NewSigner() error = %v", err)
	}
}

func TestSigner_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	s, _ := NewSigner("Jefe")
	got := s.Sign([]byte("what do ya want for nothing?"))

	want := "sha256=5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSigner_Verify(t *testing.T) {
	s, _ := NewSigner("whsec")
	payload := []byte(`{"userId":"u1","cost":0.00055}`)
	sig := s.Sign(payload)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		wantErr   bool
	}{
		{"valid", payload, sig, false},
		{"tampered payload", []byte(`{"userId":"u1","cost":0}`), sig, true},
		{"missing prefix", payload, strings.TrimPrefix(sig, "sha256="), true},
		{"not hex", payload, "sha256=zz", true},
		{"empty", payload, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(tt.payload, tt.signature)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSigner_DifferentSecrets(t *testing.T) {
	a, _ := NewSigner("secret-a")
	b, _ := NewSigner("secret-b")
	payload := []byte("payload")

	if a.Sign(payload) == b.Sign(payload) {
		t.Error("different secrets produced the same signature")
	}
	if err := b.Verify(payload, a.Sign(payload)); err == nil {
		t.Error("Verify() accepted a signature from another secret")
	}
}

func BenchmarkSign(b *testing.B) {
	s, _ := NewSigner("whsec")
	payload := []byte(strings.Repeat("x", 1024))
	for i := 0; i < b.N; i++ {
		s.Sign(payload)
	}
}
