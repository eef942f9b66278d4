package fixup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Apply(t *testing.T) {
	tbl := Default()

	var testCases = []struct {
		name            string
		vendor, product string
		wantVendor      string
		wantProduct     string
	}{
		{
			name:   "embedded brand split",
			vendor: "ATA", product: "SAMSUNG MZVL21T0",
			wantVendor: "SAMSUNG", wantProduct: "MZVL21T0",
		},
		{
			name:   "usb bridge split",
			vendor: "USB", product: "WDC WD80EFAX-68K",
			wantVendor: "WDC", wantProduct: "WD80EFAX-68K",
		},
		{
			name:   "intel prefix",
			vendor: "ATA", product: "SSDSC2KG480G8R",
			wantVendor: "INTEL", wantProduct: "SSDSC2KG480G8R",
		},
		{
			name:   "samsung prefix",
			vendor: "ATA", product: "MZ7LH480HAHQ",
			wantVendor: "SAMSUNG", wantProduct: "MZ7LH480HAHQ",
		},
		{
			name:   "real vendor untouched",
			vendor: "SEAGATE", product: "ST8000NM0045",
			wantVendor: "SEAGATE", wantProduct: "ST8000NM0045",
		},
		{
			name:   "trailing space is not a split point",
			vendor: "ATA", product: "ODDBALL ",
			wantVendor: "ATA", wantProduct: "ODDBALL ",
		},
		{
			name:   "empty product untouched",
			vendor: "ATA", product: "",
			wantVendor: "ATA", wantProduct: "",
		},
		{
			name:   "empty vendor untouched",
			vendor: "", product: "MZ7LH480HAHQ",
			wantVendor: "", wantProduct: "MZ7LH480HAHQ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, p := tbl.Apply(tc.vendor, tc.product)
			assert.Equal(t, tc.wantVendor, v)
			assert.Equal(t, tc.wantProduct, p)
		})
	}
}

// Applying the pass twice must match applying it once.
func Test_ApplyIdempotent(t *testing.T) {
	tbl := Default()

	pairs := [][2]string{
		{"ATA", "SAMSUNG MZVL21T0"},
		{"ATA", "SSDSC2KG480G8R"},
		{"USB", "WDC WD80EFAX-68K"},
		{"ATA", "ATA weird"},
		{"SEAGATE", "ST8000NM0045"},
		{"ATA", "NOSPACETOKEN"},
	}

	for _, pair := range pairs {
		v1, p1 := tbl.Apply(pair[0], pair[1])
		v2, p2 := tbl.Apply(v1, p1)
		assert.Equal(t, v1, v2, "vendor changed on second pass for %v", pair)
		assert.Equal(t, p1, p2, "product changed on second pass for %v", pair)
	}
}

func Test_LoadExtendsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixups.yaml")
	content := `
generic_vendors: ["JMicron"]
prefixes:
  - prefix: "HUS"
    vendor: "HGST"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)

	// built-in rules still present
	v, _ := tbl.Apply("ATA", "SSDSC2KG480G8R")
	assert.Equal(t, "INTEL", v)

	// file rules active
	v, _ = tbl.Apply("JMicron", "HUS728T8TALE6L4")
	assert.Equal(t, "HGST", v)
}

func Test_LoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/fixups.yaml")
	assert.Error(t, err)
}
