package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var supported = []string{"en", "es", "uk", "it", "fr", "ru"}

func Test_NewLinguaClassifier_rejectsBadCode(t *testing.T) {
	_, err := NewLinguaClassifier([]string{"en", "zz"}, "en")
	assert.Error(t, err, "expected an error for an invalid language code")
}

func Test_Classify(t *testing.T) {
	c, err := NewLinguaClassifier(supported, "en")
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "the quick brown fox jumps over the lazy dog", "en"},
		{"spanish", "hola, buenos días, ¿cómo estás esta mañana?", "es"},
		{"french", "bonjour, je voudrais un café s'il vous plaît", "fr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func Test_Classify_fallback(t *testing.T) {
	c, err := NewLinguaClassifier(supported, "en")
	require.NoError(t, err)

	assert.Equal(t, "en", c.Classify(""), "expected fallback code for empty input")
	assert.Equal(t, "en", c.Classify("12345 !!!"), "expected fallback code for non-text input")
}
