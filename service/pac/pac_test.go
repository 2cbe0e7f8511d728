package pac

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const testTemplate = `var rules = __RULES__;
var proxy = "PROXY 127.0.0.1:__HTTP__PORT__; SOCKS5 127.0.0.1:__SOCKS5__PORT__; DIRECT";
function FindProxyForURL(url, host) {
  return proxy;
}
`

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGeneratePAC(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "template.pac", testTemplate)
	gfw := writeFile(t, dir, "gfwlist.txt", "[AutoProxy 0.2.9]\n! Checksum: abc\n||google.com\r\n\n  .twitter.com  \n")

	content, err := GeneratePAC("example.com\n! my comment\n", gfw, tpl, 8080, 1080)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, want := range []string{`"example.com"`, `"||google.com"`, `".twitter.com"`, "127.0.0.1:8080", "SOCKS5 127.0.0.1:1080", "function FindProxyForURL"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in PAC:\n%s", want, content)
		}
	}
	for _, unwanted := range []string{"Checksum", "AutoProxy", "my comment", "__RULES__", "__HTTP__PORT__", "__SOCKS5__PORT__"} {
		if strings.Contains(content, unwanted) {
			t.Fatalf("unexpected %q in PAC:\n%s", unwanted, content)
		}
	}
	if !strings.Contains(content, "[\n\"example.com\",\n\"||google.com\",\n\".twitter.com\"\n]") {
		t.Fatalf("custom rules must precede block-list rules:\n%s", content)
	}
}

func TestGeneratePAC_WithoutBlockList(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "template.pac", testTemplate)

	content, err := GeneratePAC("example.com", "", tpl, 8080, 1080)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(content, "[\n\"example.com\"\n]") {
		t.Fatalf("unexpected rules array:\n%s", content)
	}
}

func TestGeneratePAC_QuotesRules(t *testing.T) {
	got := rulesArray([]string{`a"b`, `c\d`})
	want := "[\n\"a\\\"b\",\n\"c\\\\d\"\n]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGeneratePAC_InvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "template.pac", "var rules = __RULES__;")

	_, err := GeneratePAC("example.com", "", tpl, 8080, 1080)
	if !errors.Is(err, ErrInvalidPAC) {
		t.Fatalf("expected ErrInvalidPAC, got %v", err)
	}
}

func TestGeneratePAC_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "template.pac", testTemplate)

	_, err := GeneratePAC("", filepath.Join(dir, "missing.txt"), tpl, 8080, 1080)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error for block list, got %v", err)
	}
	_, err = GeneratePAC("", "", filepath.Join(dir, "missing.pac"), 8080, 1080)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error for template, got %v", err)
	}
}

func TestServer_ServesAndRestarts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy.pac")
	if err := WritePAC(path, testTemplate); err != nil {
		t.Fatalf("write pac: %v", err)
	}

	s := NewServer(testLogger())
	t.Cleanup(func() { s.Stop(context.Background()) })

	first, err := s.Start(path)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(first, "http://127.0.0.1:") || !strings.HasSuffix(first, "/proxy.pac") {
		t.Fatalf("unexpected url %q", first)
	}

	resp, err := http.Get(first)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != ContentType {
		t.Fatalf("expected content type %q, got %q", ContentType, ct)
	}
	if string(body) != testTemplate {
		t.Fatalf("unexpected body %q", body)
	}

	second, err := s.Start(path)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.URL() != second {
		t.Fatalf("expected current url %q, got %q", second, s.URL())
	}
	if first != second {
		if _, err := http.Get(first); err == nil {
			t.Fatalf("old server must be stopped after restart")
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Running() || s.URL() != "" {
		t.Fatalf("expected stopped server")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestServer_MissingFile(t *testing.T) {
	s := NewServer(testLogger())

	if _, err := s.Start(filepath.Join(t.TempDir(), "missing.pac")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if s.Running() {
		t.Fatalf("server must not run without a file")
	}
}
