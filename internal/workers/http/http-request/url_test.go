package httprequest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"http", "http://example.com", true},
		{"https", "https://example.com", true},
		{"with path and query", "https://api.example.com/v1/users?id=1", true},
		{"with port", "http://localhost:8080/health", true},
		{"empty", "", false},
		{"no scheme", "not-a-url", false},
		{"ftp", "ftp://example.com", false},
		{"scheme only", "https://", false},
		{"whitespace inside", "https://exa mple.com", false},
		{"upper-case scheme", "HTTP://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidURL(tt.input))
		})
	}
}
