package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GenerateKey(16)
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
	if a == b {
		t.Fatalf("expected distinct keys")
	}
}

func TestIsIPOrCIDR(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1":      true,
		"10.0.0.0/8":     true,
		"::1":            true,
		"fd00::/8":       true,
		"localhost":      false,
		"*.example.com":  false,
		"300.1.1.1":      false,
		"192.168.1.0/33": false,
	}
	for in, want := range cases {
		if got := IsIPOrCIDR(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestSplitLines(t *testing.T) {
	if got := SplitLines(""); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
	got := SplitLines("a\r\nb\nc")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("expected replaced content, got %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}
