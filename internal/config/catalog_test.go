package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadCatalog_DefaultWhenUnset(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil || len(c) != 3 {
		t.Fatalf("default catalog = %v, %v", c, err)
	}
}

func TestLoadCatalog_FromYAML(t *testing.T) {
	p := writeCatalog(t, `
services:
  - key: pedicure
    name: " Pedicure "
  - key: nail_art
    name: Nail art
`)
	c, err := LoadCatalog(p)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c) != 2 || c[0].Name != "Pedicure" || c[1].Key != "nail_art" {
		t.Fatalf("catalog = %+v", c)
	}
	if s, ok := c.Lookup("nail_art"); !ok || s.Name != "Nail art" {
		t.Fatalf("lookup = %+v, %v", s, ok)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":     "services: []\n",
		"no name":   "services:\n  - key: a\n",
		"colon key": "services:\n  - key: \"a:b\"\n    name: A\n",
		"duplicate": "services:\n  - key: a\n    name: A\n  - key: a\n    name: B\n",
		"not yaml":  "services: [\n",
	}
	for name, body := range cases {
		if _, err := LoadCatalog(writeCatalog(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file: expected error")
	}
}
