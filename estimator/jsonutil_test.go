package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"surrounding prose", "Voici la proposition:\n{\"a\": 1}\nBonne journée.", `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing comma", "{\"a\": [1, 2,], \"b\": 3,}", `{"a": [1, 2], "b": 3}`},
		{"line comment", "{\n\"a\": 1 // un jour\n}", "{\n\"a\": 1\n}"},
		{"slashes inside string", `{"url": "https://example.com"}`, `{"url": "https://example.com"}`},
		{"none", "pas de JSON ici", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}
