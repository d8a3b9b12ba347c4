package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLang(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "GenerateQuiz"); got != "Generate quiz" {
		t.Errorf("T(GenerateQuiz) = %q, want 'Generate quiz'", got)
	}
	if got := T(ctx, "ConceptMapReady"); got != "Here is the concept map." {
		t.Errorf("T(ConceptMapReady) = %q", got)
	}
}

func TestTranslateItalian(t *testing.T) {
	ctx := initLang(t, "it")

	if got := T(ctx, "ConceptMapReady"); got != "Ecco la mappa concettuale." {
		t.Errorf("T(ConceptMapReady) = %q, want 'Ecco la mappa concettuale.'", got)
	}
	if got := T(ctx, "ErrorAsk"); got != "Errore server." {
		t.Errorf("T(ErrorAsk) = %q, want 'Errore server.'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuizReady", 1); got != "I generated a quiz with 1 question on the requested topic." {
		t.Errorf("Tp(QuizReady, 1) = %q", got)
	}
	if got := Tp(ctx, "QuizReady", 5); got != "I generated a quiz with 5 questions on the requested topic." {
		t.Errorf("Tp(QuizReady, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ScoreLine", map[string]any{"Score": 3, "Max": 5})
	if got != "Score: 3/5" {
		t.Errorf("Td(ScoreLine) = %q, want 'Score: 3/5'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMatch(t *testing.T) {
	initLang(t, "en")

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"it-IT,it;q=0.9,en;q=0.8", "it"},
		{"de-DE", "en"},
		{"en-GB", "en"},
	}
	for _, tt := range tests {
		if got := Match(tt.header); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
	if !Supported("it") || Supported("de") {
		t.Error("Supported should reflect the embedded locales")
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Send")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "it")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Invia" {
		t.Errorf("T(Send) with Accept-Language it = %q, want 'Invia'", got)
	}
}

func TestLocalesLoad(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "Translation"},
		{"it", "Traduzione"},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		if got := T(ctx, "TranslationLabel"); got != tt.want {
			t.Errorf("%s: T(TranslationLabel) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}
