package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is one language the transcription service accepts in the handshake.
type Language struct {
	Code       string // ISO 639-1 code sent to the service
	Name       string
	NativeName string
}

// Default is used when no language is configured
var Default = Language{Code: "en", Name: "English", NativeName: "English"}

var languages = []Language{
	Default,
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages))
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// FromCode looks up a language by code, ignoring case and surrounding space.
func FromCode(code string) (Language, bool) {
	lang, ok := codeIndex[normalize(code)]
	return lang, ok
}

// List returns all supported languages
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

// Codes returns all supported language codes
func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

func IsSupported(code string) bool {
	_, ok := FromCode(code)
	return ok
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Label describes any BCP 47 code for messages, supported or not.
// "de" gives "German (de)", "pt_BR" gives "Brazilian Portuguese (pt_BR)".
func Label(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "no language"
	}

	tag, err := xlanguage.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return fmt.Sprintf("language '%s'", code)
	}

	name := display.English.Tags().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return fmt.Sprintf("language '%s'", code)
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
