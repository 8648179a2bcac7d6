package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/provas/internal/i18n"
	"github.com/pavelanni/provas/internal/model"
	"github.com/pavelanni/provas/internal/store"
)

type testApp struct {
	store  *store.Store
	router http.Handler
}

func newTestApp(t *testing.T, basePath string) *testApp {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	catalog, err := appI18n.New("pt")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	h, err := New(s, model.AppConfig{BasePath: basePath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(catalog.Middleware)
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	return &testApp{store: s, router: r}
}

func (a *testApp) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) seed(t *testing.T, topic, difficulty string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := a.store.InsertQuestion(context.Background(), model.Question{
			Statement:  fmt.Sprintf("%s %s #%d", topic, difficulty, i+1),
			Topic:      topic,
			Type:       "objetiva",
			Difficulty: difficulty,
			AnswerKey:  "A",
			Source:     "test",
		})
		if err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("expected redirect to %q, got %q", want, got)
	}
}

func TestIndexShowsRecentQuestions(t *testing.T) {
	app := newTestApp(t, "")
	app.seed(t, "math", "easy", 7)

	rec := app.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "math easy #7") || !strings.Contains(body, "math easy #3") {
		t.Error("expected the five newest questions")
	}
	if strings.Contains(body, "math easy #2") {
		t.Error("expected older questions to be left out")
	}
}

func TestCreateQuestion(t *testing.T) {
	app := newTestApp(t, "")

	form := url.Values{
		"enunciado": {"Quanto é 2+2?"},
		"tema":      {"matemática"},
		"tipo":      {"dissertativa"},
		"nivel":     {"fácil"},
		"gabarito":  {"4"},
		"fonte":     {"autoral"},
	}
	rec := app.do(t, http.MethodPost, "/cadastrar", form)
	expectRedirect(t, rec, "/cadastrar?notice=QuestionCreated")

	count, _ := app.store.QuestionCount(context.Background())
	if count != 1 {
		t.Errorf("expected 1 question, got %d", count)
	}

	rec = app.do(t, http.MethodGet, "/cadastrar?notice=QuestionCreated", nil)
	if !strings.Contains(rec.Body.String(), "Questão cadastrada com sucesso!") {
		t.Error("expected success notice on the form page")
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(t, http.MethodPost, "/cadastrar", url.Values{"enunciado": {"Só o enunciado"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Campo obrigatório.") {
		t.Error("expected field errors in the form")
	}
	if !strings.Contains(rec.Body.String(), "Só o enunciado") {
		t.Error("expected the submitted statement to be refilled")
	}
	count, _ := app.store.QuestionCount(context.Background())
	if count != 0 {
		t.Errorf("expected nothing stored, got %d", count)
	}
}

func TestUnknownNoticeIgnored(t *testing.T) {
	app := newTestApp(t, "")
	rec := app.do(t, http.MethodGet, "/cadastrar?notice=AppTitle", nil)
	if strings.Contains(rec.Body.String(), `class="notice"`) {
		t.Error("expected unknown notice to be dropped")
	}
}

func TestGenerateAndViewExam(t *testing.T) {
	app := newTestApp(t, "")
	app.seed(t, "math", "easy", 3)
	app.seed(t, "history", "easy", 2)

	rec := app.do(t, http.MethodPost, "/gerar_prova", url.Values{
		"topics":     {"math"},
		"difficulty": {"easy"},
		"quantidade": {"5"},
	})
	expectRedirect(t, rec, "/prova/1")

	rec = app.do(t, http.MethodGet, "/prova/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Prova gerada (math)") {
		t.Error("expected exam title")
	}
	if strings.Count(body, "/trocar_questao/") != 3 {
		t.Errorf("expected 3 swap forms, got %d", strings.Count(body, "/trocar_questao/"))
	}
	if strings.Contains(body, "history") {
		t.Error("expected no history questions")
	}
}

func TestGenerateNotices(t *testing.T) {
	app := newTestApp(t, "")
	app.seed(t, "math", "easy", 1)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"no match", url.Values{"topics": {"art"}, "quantidade": {"2"}}, "/gerar_prova?notice=NoMatchingQuestions"},
		{"not a number", url.Values{"quantidade": {"abc"}}, "/gerar_prova?notice=InvalidCount"},
		{"zero", url.Values{"quantidade": {"0"}}, "/gerar_prova?notice=InvalidCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectRedirect(t, app.do(t, http.MethodPost, "/gerar_prova", tt.form), tt.want)
		})
	}
	n, _ := app.store.ExamCount(context.Background())
	if n != 0 {
		t.Errorf("expected no exams, got %d", n)
	}

	rec := app.do(t, http.MethodGet, "/gerar_prova?notice=NoMatchingQuestions", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "Nenhuma questão encontrada com esses filtros.") {
		t.Error("expected no-match notice")
	}
	if !strings.Contains(body, `value="math"`) || !strings.Contains(body, `value="easy"`) {
		t.Error("expected topic and difficulty choices")
	}
}

func TestExamNotFound(t *testing.T) {
	app := newTestApp(t, "")
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/prova/42"},
		{http.MethodGet, "/prova/abc"},
		{http.MethodPost, "/prova/42/excluir"},
		{http.MethodPost, "/prova/42/trocar_questao/1"},
	} {
		rec := app.do(t, tc.method, tc.path, url.Values{})
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSwapQuestion(t *testing.T) {
	app := newTestApp(t, "")
	ctx := context.Background()
	app.seed(t, "math", "easy", 2)

	expectRedirect(t, app.do(t, http.MethodPost, "/gerar_prova", url.Values{"quantidade": {"1"}}), "/prova/1")
	links, _ := app.store.GetExamQuestions(ctx, 1)
	before := links[0].Link.QuestionID

	rec := app.do(t, http.MethodPost, fmt.Sprintf("/prova/1/trocar_questao/%d", links[0].Link.ID), url.Values{})
	expectRedirect(t, rec, "/prova/1?notice=QuestionSwapped")
	links, _ = app.store.GetExamQuestions(ctx, 1)
	if links[0].Link.QuestionID == before {
		t.Error("expected the question to change")
	}

	// Fill the exam with both questions; no alternative remains.
	expectRedirect(t, app.do(t, http.MethodPost, "/gerar_prova", url.Values{"quantidade": {"2"}}), "/prova/2")
	links, _ = app.store.GetExamQuestions(ctx, 2)
	rec = app.do(t, http.MethodPost, fmt.Sprintf("/prova/2/trocar_questao/%d", links[0].Link.ID), url.Values{})
	expectRedirect(t, rec, "/prova/2?notice=NoAlternativeAvailable")

	rec = app.do(t, http.MethodGet, "/prova/2?notice=NoAlternativeAvailable", nil)
	if !strings.Contains(rec.Body.String(), "Não há outra questão disponível") {
		t.Error("expected no-alternative notice")
	}
}

func TestDeleteExam(t *testing.T) {
	app := newTestApp(t, "")
	app.seed(t, "math", "easy", 2)
	expectRedirect(t, app.do(t, http.MethodPost, "/gerar_prova", url.Values{"quantidade": {"2"}}), "/prova/1")

	expectRedirect(t, app.do(t, http.MethodPost, "/prova/1/excluir", url.Values{}), "/provas?notice=ExamDeleted")
	if rec := app.do(t, http.MethodGet, "/prova/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	links, _ := app.store.ExamQuestionCount(context.Background())
	if links != 0 {
		t.Errorf("expected links removed, got %d", links)
	}

	rec := app.do(t, http.MethodGet, "/provas?notice=ExamDeleted", nil)
	if !strings.Contains(rec.Body.String(), "Prova excluída.") {
		t.Error("expected deletion notice")
	}
}

func TestListPages(t *testing.T) {
	app := newTestApp(t, "")
	app.seed(t, "math", "easy", 2)
	app.do(t, http.MethodPost, "/gerar_prova", url.Values{"quantidade": {"1"}})
	app.do(t, http.MethodPost, "/gerar_prova", url.Values{"quantidade": {"2"}})

	rec := app.do(t, http.MethodGet, "/provas", nil)
	body := rec.Body.String()
	first := strings.Index(body, `href="/prova/2"`)
	second := strings.Index(body, `href="/prova/1"`)
	if first < 0 || second < 0 || first > second {
		t.Error("expected exams listed newest first")
	}

	rec = app.do(t, http.MethodGet, "/questoes", nil)
	if !strings.Contains(rec.Body.String(), "2 questões") {
		t.Error("expected question count on listing")
	}
}

func (a *testApp) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("arquivo", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fmt.Fprint(fw, content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/importar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestImportUpload(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.upload(t, "questoes.csv", "enunciado,tema,tipo,nivel,gabarito,fonte\nQ1,t,d,fácil,k,s\n q1 ,t,d,fácil,k,s\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "1 questões inseridas, 1 duplicadas ignoradas") {
		t.Errorf("expected import summary, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Importações anteriores") || !strings.Contains(rec.Body.String(), "questoes.csv") {
		t.Error("expected the upload in the import history")
	}
}

func TestImportUploadErrors(t *testing.T) {
	app := newTestApp(t, "")

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"missing columns", "q.csv", "enunciado,tema\nQ,t\n", http.StatusUnprocessableEntity},
		{"empty file", "q.csv", "", http.StatusUnprocessableEntity},
		{"unreadable xlsx", "q.xlsx", "not a spreadsheet", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.upload(t, tt.filename, tt.content)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Falha na importação") {
				t.Error("expected the failure message on the page")
			}
		})
	}
}

func TestImportUploadStoreFailure(t *testing.T) {
	app := newTestApp(t, "")
	app.store.Close()

	rec := app.upload(t, "q.csv", "enunciado,tema,tipo,nivel,gabarito,fonte\nQ1,t,d,fácil,k,s\n")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sql:") {
		t.Errorf("expected database error hidden from the page, got %q", rec.Body.String())
	}
}

func TestBasePath(t *testing.T) {
	app := newTestApp(t, "/banco")
	app.seed(t, "math", "easy", 1)

	rec := app.do(t, http.MethodPost, "/banco/gerar_prova", url.Values{"quantidade": {"1"}})
	expectRedirect(t, rec, "/banco/prova/1")

	rec = app.do(t, http.MethodGet, "/banco/prova/1", nil)
	if !strings.Contains(rec.Body.String(), `action="/banco/prova/1/excluir"`) {
		t.Error("expected links to carry the base path")
	}
}

func TestLanguageSwitch(t *testing.T) {
	app := newTestApp(t, "")

	rec := app.do(t, http.MethodGet, "/?lang=en", nil)
	if !strings.Contains(rec.Body.String(), `href="?lang=pt"`) {
		t.Error("expected a switcher link back to portuguese")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "en" {
		t.Fatalf("expected the language cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/provas", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "<strong>en</strong>") {
		t.Error("expected the cookie language on the next page")
	}
}
