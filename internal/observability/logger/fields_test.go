package logger

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDurationFieldUsesGivenKey(t *testing.T) {
	f := Duration("interval", 3*time.Minute)
	if f.Key != "interval" {
		t.Fatalf("key = %q, quiero %q", f.Key, "interval")
	}
	if f.Type != zapcore.DurationType {
		t.Fatalf("type = %v, quiero DurationType", f.Type)
	}
	if time.Duration(f.Integer) != 3*time.Minute {
		t.Fatalf("valor = %v, quiero %v", time.Duration(f.Integer), 3*time.Minute)
	}

	// Claves distintas para usos distintos, como en el arranque del server.
	if g := Duration("key_lifetime", 20*time.Minute); g.Key != "key_lifetime" {
		t.Fatalf("key = %q, quiero %q", g.Key, "key_lifetime")
	}
}

func TestFixedKeyFields(t *testing.T) {
	cases := []struct {
		field zap.Field
		key   string
	}{
		{RequestID("abc"), "request_id"},
		{DurationMs(12), "duration_ms"},
		{ClientIP("1.2.3.4"), "client_ip"},
		{KeyID("K123"), "key_id"},
		{Count(7), "count"},
	}
	for _, c := range cases {
		if c.field.Key != c.key {
			t.Fatalf("key = %q, quiero %q", c.field.Key, c.key)
		}
	}
}
