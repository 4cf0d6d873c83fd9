// Package langdetect classifies text into a supported language code using
// Unicode script ranges, with a stop-word tie-break for Latin-script
// languages. It is a fast local heuristic, not a linguistic authority:
// callers treat the result as a default the user can override.
package langdetect

import "strings"

// Language describes one supported target.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

var languages = []Language{
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "th", Name: "Thai", NativeName: "ไทย"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt"},
}

var languageIndex = func() map[string]Language {
	m := make(map[string]Language, len(languages))
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// All returns the supported languages in presentation order.
func All() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Supported reports whether code names a supported language.
func Supported(code string) bool {
	_, ok := languageIndex[code]
	return ok
}

// Name returns the English display name for code, or code itself when the
// language is unknown.
func Name(code string) string {
	if l, ok := languageIndex[code]; ok {
		return l.Name
	}
	return code
}

type scriptCounts struct {
	chinese  int
	japanese int
	korean   int
	cyrillic int
	arabic   int
	thai     int
	latin    int
}

func (c scriptCounts) total() int {
	return c.chinese + c.japanese + c.korean + c.cyrillic + c.arabic + c.thai + c.latin
}

// Detect returns the dominant language of text, defaulting to English for
// empty or unclassifiable input.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "en"
	}

	var counts scriptCounts
	for _, r := range text {
		switch {
		case (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) || (r >= 0x20000 && r <= 0x2A6DF):
			counts.chinese++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			counts.japanese++
		case (r >= 0xAC00 && r <= 0xD7AF) || (r >= 0x1100 && r <= 0x11FF) || (r >= 0x3130 && r <= 0x318F):
			counts.korean++
		case r >= 0x0400 && r <= 0x04FF:
			counts.cyrillic++
		case (r >= 0x0600 && r <= 0x06FF) || (r >= 0x0750 && r <= 0x077F):
			counts.arabic++
		case r >= 0x0E00 && r <= 0x0E7F:
			counts.thai++
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= 0x00C0 && r <= 0x00FF):
			counts.latin++
		}
	}

	total := counts.total()
	if total == 0 {
		return "en"
	}
	ratio := func(n int) float64 { return float64(n) / float64(total) }

	if ratio(counts.chinese) > 0.3 {
		// Japanese prose mixes kanji with kana; kana presence wins.
		if ratio(counts.japanese) > 0.1 {
			return "ja"
		}
		return "zh"
	}
	if ratio(counts.japanese) > 0.2 {
		return "ja"
	}
	if ratio(counts.korean) > 0.3 {
		return "ko"
	}
	if ratio(counts.cyrillic) > 0.3 {
		return "ru"
	}
	if ratio(counts.arabic) > 0.3 {
		return "ar"
	}
	if ratio(counts.thai) > 0.3 {
		return "th"
	}
	if counts.latin > 0 {
		return detectLatin(text)
	}
	return "en"
}

var latinStopWords = map[string][]string{
	"en": {" the ", " is ", " are ", " and ", " or ", " to ", " of ", " in ", " for ", " with ",
		" that ", " this ", " have ", " has ", " from ", " you ", " your ", " can ", " will "},
	"fr": {" le ", " la ", " les ", " des ", " une ", " est ", " sont ", " dans ", " avec ", " cette ",
		" mais ", " nous ", " vous ", " leur ", " été "},
	"de": {" der ", " die ", " das ", " den ", " dem ", " und ", " ist ", " sind ", " mit ", " für ",
		" nicht ", " auch ", " aber ", " werden ", " wurde "},
	"es": {" el ", " los ", " las ", " del ", " una ", " está ", " son ", " con ", " por ", " para ",
		" que ", " pero ", " también ", " sido ", " hacer "},
	"pt": {" os ", " das ", " uma ", " está ", " são ", " com ", " para ", " mais ", " pelo ",
		" não ", " também ", " seu ", " seus ", " sua "},
	"it": {" il ", " lo ", " gli ", " della ", " delle ", " con ", " per ", " che ", " sono ",
		" anche ", " suo ", " sua ", " stati ", " essere "},
}

// detectLatin disambiguates Latin-script languages by counting distinctive
// stop words. English wins ties; weak signals fall back to English.
func detectLatin(text string) string {
	lower := " " + strings.ToLower(text) + " "

	scores := make(map[string]int, len(latinStopWords))
	for code, words := range latinStopWords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				scores[code]++
			}
		}
	}

	best, bestScore := "en", 0
	for _, l := range languages {
		if score, ok := scores[l.Code]; ok && score > bestScore {
			best, bestScore = l.Code, score
		}
	}

	if scores["en"] >= 3 && float64(scores["en"]) >= float64(bestScore)*0.7 {
		return "en"
	}
	if best != "en" && bestScore < 4 {
		return "en"
	}
	return best
}
