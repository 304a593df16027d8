package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "'simple'"},
		{"with space", "'with space'"},
		{"with'quote", "'with'\\''quote'"},
		{"", "''"},
		{"$variable", "'$variable'"},
		{"$(command)", "'$(command)'"},
		{"`backtick`", "'`backtick`'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellQuote(tt.input))
		})
	}
}

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gpu-01", "gpu-01"},
		{"gpu-01.cluster.local", "gpu-01.cluster.local"},
		{"10.0.0.12", "10.0.0.12"},
		{"fe80::1%eth0", "fe80::1%eth0"},
		{"[fe80::1]", "[fe80::1]"},
		{"ubuntu@gpu-01", "ubuntu@gpu-01"},
		{"", "''"},
		{"gpu-01; rm -rf /", "'gpu-01; rm -rf /'"},
		{"$(hostname)", "'$(hostname)'"},
		{"it's", "'it'\\''s'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteArg(tt.input))
		})
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 hosts"},
		{1, "1 host"},
		{2, "2 hosts"},
		{-1, "-1 hosts"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Plural(tt.n, "host"))
		})
	}
}
