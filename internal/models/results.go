package models

// TranslateRequest asks for text in a target language. SourceLanguage is
// optional; when empty the service detects it.
type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language"`
	Stream         bool   `json:"stream,omitempty"`
}

// DictionaryRequest asks for a dictionary-style explanation of one word,
// optionally scoped to the sentence it appeared in.
type DictionaryRequest struct {
	Word    string `json:"word"`
	Context string `json:"context,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
}

// SpeechRequest asks for synthesized audio of text.
type SpeechRequest struct {
	Text string `json:"text"`
}

// TranslateResult is the terminal outcome of one translation request.
type TranslateResult struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Model            string `json:"model,omitempty"`
	Usage            *Usage `json:"usage,omitempty"`
	Cached           bool   `json:"cached,omitempty"`
	// Message carries informational notes such as the same-language
	// short-circuit; it is empty for ordinary translations.
	Message string `json:"message,omitempty"`
}

// DictionaryResult is the terminal outcome of one word lookup.
type DictionaryResult struct {
	Word               string `json:"word"`
	Definition         string `json:"definition"`
	ContextTranslation string `json:"contextTranslation,omitempty"`
	Model              string `json:"model,omitempty"`
	Usage              *Usage `json:"usage,omitempty"`
	Cached             bool   `json:"cached,omitempty"`
}

// DictionaryEntry is the cached payload for dictionary lookups. Entries
// without context carry an empty ContextTranslation.
type DictionaryEntry struct {
	Definition         string `json:"definition"`
	ContextTranslation string `json:"contextTranslation,omitempty"`
}

// SpeechResult carries a playable audio buffer. Bytes are always a valid
// container: headerless PCM from the provider has already been wrapped.
type SpeechResult struct {
	Bytes       []byte
	Format      string
	ContentType string
}
