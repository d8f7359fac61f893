package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenOption(t *testing.T) {
	tests := []struct {
		name            string
		option          string
		value           string
		expectInjection bool
	}{
		{name: "empty value", option: "createdby", value: ""},
		{name: "user name", option: "createdby", value: "Jimbo Wales"},
		{name: "page title", option: "titlematch", value: "Main Page"},
		{
			name:            "tautology",
			option:          "createdby",
			value:           "' OR '1'='1",
			expectInjection: true,
		},
		{
			name:            "stacked drop",
			option:          "modifiedby",
			value:           "'; DROP TABLE users--",
			expectInjection: true,
		},
		{
			name:            "union select",
			option:          "lastmodifiedby",
			value:           "1 UNION SELECT * FROM passwords",
			expectInjection: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScreenOption(tt.option, tt.value)
			if !tt.expectInjection {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.option, result.Option)
			assert.Equal(t, tt.value, result.Value)
			assert.NotEmpty(t, result.Fingerprint)
		})
	}
}
