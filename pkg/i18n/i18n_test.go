package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedLocales(t *testing.T) {
	require.NoError(t, Load())
	assert.Equal(t, []string{"en", "es"}, Locales())
	assert.True(t, Supported("es"))
	assert.False(t, Supported("fr"))
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Resource not found", T("en", "errors.not_found"))
	assert.Equal(t, "Recurso no encontrado", T("es", "errors.not_found"))
	assert.Equal(t, "Resource not found", T("fr", "errors.not_found"))
	assert.Equal(t, "errors.unknown", T("es", "errors.unknown"))
}

func TestEveryKeyIsTranslated(t *testing.T) {
	require.NoError(t, Load())
	for key := range dictionaries[DefaultLocale] {
		_, ok := dictionaries["es"][key]
		assert.True(t, ok, "missing es translation for %s", key)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		accept    string
		want      string
	}{
		{"cookie wins", "es", "en-US,en;q=0.9", "es"},
		{"accept language", "", "es-MX,es;q=0.9,en;q=0.5", "es"},
		{"regional cookie", "es-AR", "", "es"},
		{"unknown falls back", "", "fr-FR", "en"},
		{"nothing given", "", "", "en"},
		{"garbage header", "", ";;;", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.preferred, tt.accept))
		})
	}
}

func TestDictionaryMergesFallback(t *testing.T) {
	d := Dictionary("fr")
	assert.Equal(t, "Resource not found", d["errors.not_found"])

	d["errors.not_found"] = "changed"
	assert.Equal(t, "Resource not found", T("en", "errors.not_found"))
}
