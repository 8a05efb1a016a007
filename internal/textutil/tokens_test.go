package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"lowercases and drops single chars", "A Big DEAL, x y", []string{"big", "deal"}},
		{"splits on punctuation", "rate-cut! (maybe)", []string{"rate", "cut", "maybe"}},
		{"keeps digits and underscores", "Q3 2024 snake_case", []string{"q3", "2024", "snake_case"}},
		{"unicode letters", "Zürich café", []string{"zürich", "café"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestContentTokensRemovesStopWords(t *testing.T) {
	got := ContentTokens("The bank is raising the rates again")
	assert.Equal(t, []string{"bank", "raising", "rates"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 200))
	assert.Equal(t, "", Truncate("hi", 0))
}
