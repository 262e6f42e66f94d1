package broker

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCredentials_OpenSealedValues(t *testing.T) {
	creds, err := NewCredentials(" trader@example.com ", "s3cret", "api-key-123")
	if err != nil {
		t.Fatalf("NewCredentials() error = %v", err)
	}

	if got := creds.Identifier(); got != "trader@example.com" {
		t.Errorf("Identifier() = %q, want %q", got, "trader@example.com")
	}
	if got, _ := creds.Secret(); got != "s3cret" {
		t.Errorf("Secret() = %q, want %q", got, "s3cret")
	}
	if got, _ := creds.APIKey(); got != "api-key-123" {
		t.Errorf("APIKey() = %q, want %q", got, "api-key-123")
	}
	if missing := creds.Missing(); len(missing) != 0 {
		t.Errorf("Missing() = %v, want none", missing)
	}
}

func TestCredentials_NeverPrintsSecrets(t *testing.T) {
	creds, _ := NewCredentials("trader@example.com", "s3cret", "api-key-123")

	for _, out := range []string{creds.String(), fmt.Sprintf("%v", creds), fmt.Sprintf("%+v", *creds)} {
		if strings.Contains(out, "s3cret") || strings.Contains(out, "api-key-123") {
			t.Errorf("formatted credentials leak plaintext: %s", out)
		}
	}

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("login", "credentials", creds)
	if strings.Contains(buf.String(), "s3cret") {
		t.Errorf("log line leaks secret: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "credentials.secret=******") {
		t.Errorf("log line should carry masked secret, got: %s", buf.String())
	}
}

func TestCredentials_Missing(t *testing.T) {
	creds, _ := NewCredentials("", "", "key")

	missing := creds.Missing()
	want := []string{"identifier", "secret"}
	if len(missing) != len(want) || missing[0] != want[0] || missing[1] != want[1] {
		t.Errorf("Missing() = %v, want %v", missing, want)
	}
	if got, err := creds.Secret(); err != nil || got != "" {
		t.Errorf("Secret() = %q, %v; want empty, nil", got, err)
	}
	if !strings.Contains(creds.String(), "secret: NOT SET") {
		t.Errorf("String() = %s, want NOT SET marker", creds.String())
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil", nil, false},
		{"complete and fresh", &Session{CST: "c", SecurityToken: "x", ExpiresAt: now.Add(time.Minute)}, true},
		{"missing cst", &Session{SecurityToken: "x", ExpiresAt: now.Add(time.Minute)}, false},
		{"missing security token", &Session{CST: "c", ExpiresAt: now.Add(time.Minute)}, false},
		{"expires exactly now", &Session{CST: "c", SecurityToken: "x", ExpiresAt: now}, false},
		{"expired", &Session{CST: "c", SecurityToken: "x", ExpiresAt: now.Add(-time.Second)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
