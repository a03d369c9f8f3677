package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

const jsonDoc = `{
  "version": "2024-05",
  "products": [
    {"id": 101, "slug": "smoke-detector", "name": "Smoke Detector", "price": "180"},
    {"id": "102", "slug": "lcd-keypad", "name": "LCD Keypad", "price": 120,
     "meta_data": [{"key": "power_ma", "value": 100}, {"key": "category", "value": "keypad"}]}
  ]
}`

const yamlDoc = `version: "2024-05"
products:
  - slug: zone-expander-8
    name: Input Expander
    price: 95
    meta_data:
      - key: provides_input_zones
        value: 8
`

const tomlDoc = `version = "2024-05"

[[products]]
slug = "aux-power-supply"
name = "Aux Power Supply"
price = 140

[[products.meta_data]]
key = "supply_ma"
value = 1500
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_MergesFormatsInFileOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.json", jsonDoc)
	writeFile(t, dir, "b.yaml", yamlDoc)
	writeFile(t, dir, "c.toml", tomlDoc)
	writeFile(t, dir, "notes.txt", "ignored")

	l, err := NewLoader([]string{dir}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	products, err := l.LoadProducts()
	if err != nil {
		t.Fatal(err)
	}

	var slugs []string
	for _, p := range products {
		slugs = append(slugs, p.Slug)
	}
	want := []string{"smoke-detector", "lcd-keypad", "zone-expander-8", "aux-power-supply"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slugs[%d] = %s, want %s", i, slugs[i], want[i])
		}
	}

	res := Normalize(products)
	if len(res.Addons) != 4 {
		t.Fatalf("expected 4 addons, got %d", len(res.Addons))
	}
	if res.Addons[3].ProvidesMilliAmps != 1500 {
		t.Errorf("toml metadata lost: %+v", res.Addons[3])
	}
	if res.Addons[2].ProvidesInputZones != 8 {
		t.Errorf("yaml metadata lost: %+v", res.Addons[2])
	}
}

func TestLoader_SkipsInvalidDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "good.json", jsonDoc)
	writeFile(t, dir, "no-products.json", `{"version": "1"}`)
	writeFile(t, dir, "broken.yaml", "products: [")

	l, err := NewLoader([]string{dir}, nil)
	if err != nil {
		t.Fatal(err)
	}

	products, err := l.LoadProducts()
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Errorf("expected 2 products from the valid document, got %d", len(products))
	}
}

func TestLoader_NoDocuments(t *testing.T) {
	t.Parallel()

	empty := t.TempDir()
	rejected := t.TempDir()
	writeFile(t, rejected, "bad.json", `{"products": [{"name": "no slug"}]}`)

	for _, paths := range [][]string{{empty}, {rejected}, {filepath.Join(empty, "missing")}} {
		l, err := NewLoader(paths, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := l.LoadProducts(); !errors.Is(err, ErrNoDocuments) {
			t.Errorf("LoadProducts(%v) error = %v, want ErrNoDocuments", paths, err)
		}
	}
}

func TestLoader_SingleFilePath(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "catalog.yml", yamlDoc)

	l, err := NewLoader([]string{path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := l.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != "2024-05" || len(doc.Products) != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestDecodeDocument_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := DecodeDocument("catalog.xml", []byte("<x/>")); err == nil {
		t.Error("expected error for xml")
	}
}
