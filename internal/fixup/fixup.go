// Package fixup normalizes the vendor/product strings reported by
// drives. SATA and USB-attached drives surface a placeholder vendor
// ("ATA", "USB") with the real brand buried in the product string;
// smartmontools' drivedb has the same problem at much larger scale.
// The rules are table-driven so site-specific hardware can extend the
// built-in mappings from a config file.
package fixup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrefixRule maps a product-name prefix to a canonical vendor.
type PrefixRule struct {
	Prefix string `yaml:"prefix"`
	Vendor string `yaml:"vendor"`
}

// Table holds the normalization rules. The zero value applies nothing.
type Table struct {
	// GenericVendors are placeholder vendor tokens that carry no brand
	// information and are eligible for rewriting.
	GenericVendors []string `yaml:"generic_vendors"`

	// Prefixes map well-known product prefixes to brands, for drives
	// that never embed the vendor in the model string at all.
	Prefixes []PrefixRule `yaml:"prefixes"`
}

// Default returns the built-in table covering the hardware quirks seen
// so far. Intentionally small; extend via a fixups file instead of
// growing this in code.
func Default() *Table {
	return &Table{
		GenericVendors: []string{"ATA", "USB"},
		Prefixes: []PrefixRule{
			{Prefix: "SSDSC", Vendor: "INTEL"},
			{Prefix: "MZ", Vendor: "SAMSUNG"},
		},
	}
}

// Load reads a fixup table from path. An empty path searches the usual
// locations and falls back to the defaults when nothing is found.
// Rules from the file are appended after the built-in ones.
func Load(path string) (*Table, error) {
	if path == "" {
		candidates := []string{
			"/etc/drvlist/fixups.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/drvlist/fixups.yaml"),
			"fixups.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	tbl := Default()
	if path == "" {
		return tbl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixup table: %w", err)
	}

	var loaded Table
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse fixup table %s: %w", path, err)
	}

	for _, v := range loaded.GenericVendors {
		if !tbl.generic(v) {
			tbl.GenericVendors = append(tbl.GenericVendors, v)
		}
	}
	tbl.Prefixes = append(tbl.Prefixes, loaded.Prefixes...)
	return tbl, nil
}

// Apply normalizes a (vendor, product) pair. It is a pure function and
// idempotent: once the vendor is no longer a generic placeholder no
// rule matches again.
func (t *Table) Apply(vendor, product string) (string, string) {
	if vendor == "" || product == "" {
		return vendor, product
	}

	// A generic vendor with a brand embedded in the product string:
	// split the product at its first interior space.
	if t.generic(vendor) {
		if i := strings.IndexByte(product, ' '); i > 0 && i+1 < len(product) && product[i+1] != ' ' {
			vendor = product[:i]
			product = strings.TrimLeft(product[i+1:], " ")
		}
	}

	// Still generic: map known product prefixes to the brand.
	if t.generic(vendor) {
		for _, rule := range t.Prefixes {
			if strings.HasPrefix(product, rule.Prefix) {
				vendor = rule.Vendor
				break
			}
		}
	}

	return vendor, product
}

func (t *Table) generic(vendor string) bool {
	for _, g := range t.GenericVendors {
		if vendor == g {
			return true
		}
	}
	return false
}
