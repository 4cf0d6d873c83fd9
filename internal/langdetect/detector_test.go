package langdetect

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", "en"},
		{"whitespace", "   \n\t", "en"},
		{"chinese", "今天的天气真不错，适合出去散步。", "zh"},
		{"japanese kana", "これはペンです。ありがとうございます。", "ja"},
		{"japanese kanji with kana", "日本語を勉強しています。", "ja"},
		{"korean", "안녕하세요 만나서 반갑습니다", "ko"},
		{"russian", "Сегодня хорошая погода для прогулки", "ru"},
		{"arabic", "الطقس جميل اليوم للمشي في الحديقة", "ar"},
		{"thai", "วันนี้อากาศดีเหมาะกับการเดินเล่น", "th"},
		{"english sentence", "The weather is nice and this is a good day for a walk with you.", "en"},
		{"french sentence", "Nous sommes dans la ville avec les enfants mais vous avez une maison.", "fr"},
		{"german sentence", "Der Hund und die Katze sind mit dem Kind für das Haus, aber nicht auch heute.", "de"},
		{"short latin fragment defaults to english", "Bonjour", "en"},
		{"digits only", "12345 67890", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNameAndSupported(t *testing.T) {
	if !Supported("zh") || Supported("xx") {
		t.Fatal("Supported misclassifies codes")
	}
	if got := Name("fr"); got != "French" {
		t.Errorf("Name(fr) = %q", got)
	}
	if got := Name("xx"); got != "xx" {
		t.Errorf("Name(xx) = %q, unknown codes pass through", got)
	}
	if len(All()) != 13 {
		t.Errorf("All() returned %d languages, want 13", len(All()))
	}
}
