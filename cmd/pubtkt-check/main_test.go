package main

import (
	"bytes"
	"crypto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goPubtkt/internal/tickettest"
	"github.com/MrEthical07/goPubtkt/ticket"
)

func writeKey(t *testing.T) (*tickettest.Signer, string) {
	t.Helper()
	signer, err := tickettest.NewRSA(2048, crypto.SHA1)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}
	path := filepath.Join(t.TempDir(), "issuer.pem")
	if err := os.WriteFile(path, signer.PublicPEM(), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return signer, path
}

func TestRunDecisions(t *testing.T) {
	signer, keyPath := writeKey(t)
	at := time.Unix(1_700_000_000, 0)

	raw, err := signer.Sign(ticket.Ticket{
		UID:        "alice",
		ClientIP:   "192.0.2.10",
		ValidUntil: uint64(at.Add(time.Hour).Unix()),
		Tokens:     "staff",
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"valid", []string{"--key", keyPath, "--ip", "192.0.2.10", "--at", "1700000000", raw}, 0, "result:    valid"},
		{"ip mismatch", []string{"--key", keyPath, "--ip", "192.0.2.11", "--at", "1700000000", raw}, 1, "ip_mismatch"},
		{"expired", []string{"--key", keyPath, "--ip", "192.0.2.10", "--at", "1800000000", raw}, 1, "expired"},
		{"forged", []string{"--key", keyPath, "--at", "1700000000", strings.Replace(raw, "alice", "mallo", 1)}, 1, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code, err := run(tt.args, strings.NewReader(""), &out)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if code != tt.wantCode {
				t.Fatalf("code = %d, want %d\n%s", code, tt.wantCode, out.String())
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Fatalf("output missing %q:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

func TestRunReadsStdin(t *testing.T) {
	signer, keyPath := writeKey(t)
	raw, err := signer.Sign(ticket.Ticket{UID: "bob", ValidUntil: 1_700_003_600})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	var out bytes.Buffer
	code, err := run([]string{"--key", keyPath, "--at", "1700000000"}, strings.NewReader(`"`+raw+`"`+"\n"), &out)
	if err != nil || code != 0 {
		t.Fatalf("code=%d err=%v\n%s", code, err, out.String())
	}
	if !strings.Contains(out.String(), "uid:       bob") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	var out bytes.Buffer
	if code, err := run(nil, strings.NewReader(""), &out); code != 2 || err == nil {
		t.Fatalf("missing key: code=%d err=%v", code, err)
	}
	if code, err := run([]string{"--bogus"}, strings.NewReader(""), &out); code != 2 || err == nil {
		t.Fatalf("unknown flag: code=%d err=%v", code, err)
	}
	if code, err := run([]string{"--help"}, strings.NewReader(""), &out); code != 0 || err != nil {
		t.Fatalf("help: code=%d err=%v", code, err)
	}
}
