package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	v, err := ParseIdentifier("m17n:si:wijesekera")
	require.NoError(t, err)
	assert.Equal(t, EngineVariant{Language: "si", Method: "wijesekera"}, v)
	assert.Equal(t, "m17n:si:wijesekera", v.String())
	assert.Equal(t, "engine/M17N/si/wijesekera", v.ConfigSection())

	v, err = ParseIdentifier("m17n:t:latn-post")
	require.NoError(t, err)
	assert.Equal(t, "m17n:t:latn-post", v.String())
}

func TestParseIdentifierInvalid(t *testing.T) {
	bad := []string{
		"",
		"m17n",
		"m17n:si",
		"m17n:si:wijesekera:extra",
		"xkb:si:wijesekera",
		"M17N:si:wijesekera",
		"m17n::wijesekera",
		"m17n:si:",
		"m17n:SI:wijesekera",
		"m17n:si:wije sekera",
		"m17n:si/x:y",
	}
	for _, id := range bad {
		_, err := ParseIdentifier(id)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("ParseIdentifier(%q) = %v, want ErrInvalidIdentifier", id, err)
		}
	}
}
