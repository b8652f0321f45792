package i18n

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"ru": "Русский",
}

// Languages lists the supported language codes in picker order.
func Languages() []string {
	return []string{"ru", "en"}
}

func GetLanguageName(code string) string {
	normalized := strings.ToLower(code)
	if name, ok := languageNames[normalized]; ok {
		return name
	}
	return code
}
