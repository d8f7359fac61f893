package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStatement_ValidQueries(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		backslashEscapes bool
		expected         string
	}{
		{name: "empty", input: "   ", expected: ""},
		{name: "simple select", input: "SELECT 1", expected: "SELECT 1"},
		{name: "trailing semicolon", input: "SELECT 1;  ", expected: "SELECT 1"},
		{
			name:     "semicolon inside literal",
			input:    "SELECT page_id FROM page WHERE page_title = 'a;b'",
			expected: "SELECT page_id FROM page WHERE page_title = 'a;b'",
		},
		{
			name:     "doubled quote",
			input:    "SELECT 1 FROM page WHERE page_title = 'O''Brien;'",
			expected: "SELECT 1 FROM page WHERE page_title = 'O''Brien;'",
		},
		{
			name:             "backslash escaped quote",
			input:            `SELECT 1 FROM page WHERE page_title = 'it\'s;'`,
			backslashEscapes: true,
			expected:         `SELECT 1 FROM page WHERE page_title = 'it\'s;'`,
		},
		{
			name:     "trailing backslash without escapes",
			input:    `SELECT 1 FROM page WHERE page_title = 'C:\'`,
			expected: `SELECT 1 FROM page WHERE page_title = 'C:\'`,
		},
		{
			name:     "bracket identifier",
			input:    "SELECT [a;b] FROM page",
			expected: "SELECT [a;b] FROM page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateStatement(tt.input, tt.backslashEscapes)
			require.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestValidateStatement_Rejects(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		backslashEscapes bool
		expected         error
	}{
		{name: "two statements", input: "SELECT 1; SELECT 2", expected: ErrMultipleStatements},
		{name: "injected drop", input: "SELECT 1 FROM page WHERE x = 'a'; DROP TABLE page", expected: ErrMultipleStatements},
		{name: "unterminated literal", input: "SELECT 'abc", expected: ErrUnterminatedLiteral},
		{
			name:             "escaped closing quote leaves literal open",
			input:            `SELECT 'C:\'`,
			backslashEscapes: true,
			expected:         ErrUnterminatedLiteral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateStatement(tt.input, tt.backslashEscapes)
			assert.ErrorIs(t, result.Error, tt.expected)
			assert.Empty(t, result.NormalizedSQL)
		})
	}
}
