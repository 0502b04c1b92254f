package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blue T-Shirt", "blue-t-shirt"},
		{"  Spaced  Out  ", "spaced-out"},
		{"UPPER case 42", "upper-case-42"},
		{"trailing!!!", "trailing"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

func TestParseCSVHeader(t *testing.T) {
	columns, err := parseCSVHeader([]string{"Name", " SKU ", "base_price", "description", "vendor", "extra"})
	require.NoError(t, err)
	assert.Equal(t, 0, columns["name"])
	assert.Equal(t, 1, columns["sku"])
	assert.Equal(t, 5, columns["extra"])
}

func TestParseCSVHeaderMissingColumn(t *testing.T) {
	_, err := parseCSVHeader([]string{"name", "sku", "base_price", "description"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column: vendor")
}

func TestParseCSVHeaderReordered(t *testing.T) {
	columns, err := parseCSVHeader([]string{"vendor", "description", "base_price", "sku", "name"})
	require.NoError(t, err)
	assert.Equal(t, 4, columns["name"])
	assert.Equal(t, 0, columns["vendor"])
}
