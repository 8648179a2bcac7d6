package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCatalog(t *testing.T, lang string) *Catalog {
	t.Helper()
	c, err := New(lang)
	if err != nil {
		t.Fatalf("New(%q): %v", lang, err)
	}
	return c
}

func ctxFor(c *Catalog, lang string) context.Context {
	return WithLocalizer(context.Background(), c.Localizer(lang))
}

func TestTranslatePortuguese(t *testing.T) {
	c := newCatalog(t, "pt")
	ctx := ctxFor(c, "pt")

	if got := T(ctx, "AppTitle"); got != "Banco de Questões" {
		t.Errorf("T(AppTitle) = %q, want 'Banco de Questões'", got)
	}
	if got := T(ctx, "QuestionCreated"); got != "Questão cadastrada com sucesso!" {
		t.Errorf("T(QuestionCreated) = %q", got)
	}
}

func TestTranslateEnglish(t *testing.T) {
	c := newCatalog(t, "pt")
	ctx := ctxFor(c, "en")

	if got := T(ctx, "AppTitle"); got != "Question Bank" {
		t.Errorf("T(AppTitle) = %q, want 'Question Bank'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	c := newCatalog(t, "en")
	ctx := ctxFor(c, "en")

	if got := Tp(ctx, "QuestionsCount", 1); got != "1 question" {
		t.Errorf("Tp(QuestionsCount, 1) = %q, want '1 question'", got)
	}
	if got := Tp(ctx, "QuestionsCount", 5); got != "5 questions" {
		t.Errorf("Tp(QuestionsCount, 5) = %q, want '5 questions'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	c := newCatalog(t, "en")
	ctx := ctxFor(c, "en")

	got := Td(ctx, "ImportResult", map[string]any{"Inserted": 3, "Skipped": 1, "Rejected": 0})
	want := "3 questions inserted, 1 duplicates skipped, 0 rows without a statement."
	if got != want {
		t.Errorf("Td(ImportResult) = %q, want %q", got, want)
	}
}

func TestMissingKey(t *testing.T) {
	c := newCatalog(t, "en")

	if got := T(ctxFor(c, "en"), "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
	if got := T(context.Background(), "AppTitle"); got != "AppTitle" {
		t.Errorf("T without localizer = %q, want 'AppTitle'", got)
	}
}

func TestMatch(t *testing.T) {
	c := newCatalog(t, "pt")

	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"no preference", nil, "pt"},
		{"english header", []string{"", "en-US,en;q=0.9"}, "en"},
		{"brazilian header", []string{"", "pt-BR,pt;q=0.9"}, "pt"},
		{"unsupported falls back", []string{"", "de-DE"}, "pt"},
		{"query overrides header", []string{"en", "pt-BR"}, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Match(tt.prefs...); got != tt.want {
				t.Errorf("Match(%v) = %q, want %q", tt.prefs, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	c := newCatalog(t, "pt")

	var got string
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "NavExams")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Exams" {
		t.Errorf("NavExams with Accept-Language en = %q, want 'Exams'", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Provas" {
		t.Errorf("NavExams without header = %q, want 'Provas'", got)
	}
}

func TestLanguages(t *testing.T) {
	c := newCatalog(t, "en")

	langs := c.Languages()
	if len(langs) != 2 || langs[0].String() != "en" || langs[1].String() != "pt" {
		t.Fatalf("Languages() = %v, want [en pt]", langs)
	}

	var got Languages
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LanguagesFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?lang=pt", nil))
	if got.Current != "pt" {
		t.Errorf("Current = %q, want pt", got.Current)
	}
	if len(got.Available) != 2 || got.Available[0] != "en" || got.Available[1] != "pt" {
		t.Errorf("Available = %v, want [en pt]", got.Available)
	}

	if l := LanguagesFromContext(context.Background()); l.Current != "" || l.Available != nil {
		t.Errorf("expected zero value outside a request, got %+v", l)
	}
}

func TestLanguageCookie(t *testing.T) {
	c := newCatalog(t, "pt")

	var got string
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LanguagesFromContext(r.Context()).Current
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/provas?lang=en", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != LanguageCookie || cookies[0].Value != "en" {
		t.Fatalf("expected lang=en cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/provas", nil)
	req.Header.Set("Accept-Language", "pt-BR")
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "en" {
		t.Errorf("cookie language = %q, want en", got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie without a lang parameter")
	}
}
