package keys

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateIDFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 5, 0, 123456, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateID(IDLength, now)
		if len(id) != IDLength {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), IDLength)
		}
		for j := 0; j < len(id); j++ {
			if !strings.ContainsRune(idCharset, rune(id[j])) {
				t.Fatalf("id %q contains %q outside charset", id, id[j])
			}
		}
		if !ValidID(id) {
			t.Fatalf("generated id fails its own validation: %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Fatalf("too many collisions: %d unique out of 100", len(seen))
	}
}

func TestGenerateIDShortLength(t *testing.T) {
	now := time.Now()
	if got := generateID(4, now); len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got := generateID(0, now); len(got) != IDLength {
		t.Fatalf("zero length should fall back to default, got %d", len(got))
	}
}

func TestValidID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"ABCDEFGH12345678", true},
		{"abcdefgh12345678", true},
		{"0000000000000000", true},
		{"", false},
		{"ABC", false},
		{"ABCDEFGH1234567", false},
		{"ABCDEFGH123456789", false},
		{"ABCDEFGH1234567!", false},
		{"ABCDEFGH 2345678", false},
	}
	for _, c := range cases {
		if got := ValidID(c.id); got != c.want {
			t.Fatalf("ValidID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestTruncateClientString(t *testing.T) {
	long := strings.Repeat("x", 300)
	if got := truncateClientString(long); len(got) != maxClientString {
		t.Fatalf("len = %d, want %d", len(got), maxClientString)
	}
	if got := truncateClientString("corto"); got != "corto" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
}

func TestCredentialExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := &Credential{CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}

	if c.ExpiredAt(now) {
		t.Fatal("fresh credential reported as expired")
	}
	if got := c.ExpiresIn(now); got != 10*time.Minute {
		t.Fatalf("ExpiresIn = %v, want 10m", got)
	}
	at := now.Add(10 * time.Minute)
	if !c.ExpiredAt(at) {
		t.Fatal("credential at exact expiry instant should count as expired")
	}
	if got := c.ExpiresIn(now.Add(15 * time.Minute)); got != 0 {
		t.Fatalf("ExpiresIn past expiry = %v, want 0", got)
	}
}
