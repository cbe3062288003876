package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "5m", want: 5 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "10d", want: 240 * time.Hour},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "d", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "10", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFindTlockStanza(t *testing.T) {
	header := "age-encryption.org/v1\n" +
		"-> tlock 1000 7672797f548f3f4748ac4bf3352fc6c6b6468c9ad40ad456a397545c6e2df5bf\n" +
		"qqqq\n" +
		"--- fakehmac\n"

	round, chainHash, err := findTlockStanza(strings.NewReader(header))
	if err != nil {
		t.Fatalf("findTlockStanza: %v", err)
	}
	if round != 1000 {
		t.Errorf("round = %d, want 1000", round)
	}
	if chainHash != "7672797f548f3f4748ac4bf3352fc6c6b6468c9ad40ad456a397545c6e2df5bf" {
		t.Errorf("chain hash = %q", chainHash)
	}
}

func TestFindTlockStanza_NoStanza(t *testing.T) {
	header := "age-encryption.org/v1\n-> X25519 abc\nqqqq\n--- fakehmac\n"
	if _, _, err := findTlockStanza(strings.NewReader(header)); err == nil {
		t.Fatalf("expected error for header without a tlock stanza")
	}
}

func TestMatchingFiles_PatternFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("a.txt")
	writeFile("b.txt")
	writeFile("c.bin")

	all, err := matchingFiles(dir, "")
	if err != nil {
		t.Fatalf("matchingFiles: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d files, want 3", len(all))
	}

	txt, err := matchingFiles(dir, "*.txt")
	if err != nil {
		t.Fatalf("matchingFiles: %v", err)
	}
	if len(txt) != 2 {
		t.Fatalf("got %d .txt files, want 2", len(txt))
	}
}
