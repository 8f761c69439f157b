package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// DefaultLocale is used when nothing else matches and for missing keys
const DefaultLocale = "en"

var (
	loadOnce     sync.Once
	loadErr      error
	dictionaries map[string]map[string]string
	supported    []language.Tag
	matcher      language.Matcher
)

func load() {
	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		loadErr = err
		return
	}

	dictionaries = make(map[string]map[string]string, len(entries))
	// the default locale goes first so the matcher falls back to it
	supported = []language.Tag{language.Make(DefaultLocale)}
	for _, entry := range entries {
		locale := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		raw, err := localesFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			loadErr = err
			return
		}

		var tree map[string]interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			loadErr = fmt.Errorf("locale %s: %w", locale, err)
			return
		}

		flat := make(map[string]string)
		flatten("", tree, flat)
		dictionaries[locale] = flat
		if locale != DefaultLocale {
			supported = append(supported, language.Make(locale))
		}
	}
	matcher = language.NewMatcher(supported)
}

// flatten turns nested YAML maps into dotted keys
func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Load parses the embedded dictionaries. Other functions call it lazily.
func Load() error {
	loadOnce.Do(load)
	return loadErr
}

// Locales returns the supported locale codes, default first
func Locales() []string {
	if Load() != nil {
		return []string{DefaultLocale}
	}
	codes := make([]string, 0, len(supported))
	for _, tag := range supported {
		codes = append(codes, tag.String())
	}
	return codes
}

// Supported reports whether a dictionary exists for the locale
func Supported(locale string) bool {
	if Load() != nil {
		return false
	}
	_, ok := dictionaries[locale]
	return ok
}

// Match picks the best supported locale for a preferred locale (cookie) and
// an Accept-Language header, in that order of precedence.
func Match(preferred, acceptLanguage string) string {
	if Load() != nil {
		return DefaultLocale
	}
	if preferred != "" && Supported(preferred) {
		return preferred
	}

	var wanted []language.Tag
	if preferred != "" {
		if tag, err := language.Parse(preferred); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return DefaultLocale
	}

	_, index, confidence := matcher.Match(wanted...)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[index].String()
}

// T translates key for the locale, falling back to English and then to the key itself
func T(locale, key string) string {
	if Load() != nil {
		return key
	}
	if msg, ok := dictionaries[locale][key]; ok {
		return msg
	}
	if msg, ok := dictionaries[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Dictionary returns a copy of the merged dictionary for the locale
func Dictionary(locale string) map[string]string {
	if Load() != nil {
		return map[string]string{}
	}
	merged := make(map[string]string, len(dictionaries[DefaultLocale]))
	for k, v := range dictionaries[DefaultLocale] {
		merged[k] = v
	}
	for k, v := range dictionaries[locale] {
		merged[k] = v
	}
	return merged
}
