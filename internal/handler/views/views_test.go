package views

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appI18n "github.com/pavelanni/provas/internal/i18n"
	"github.com/pavelanni/provas/internal/model"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"questão longa", 7, "questão..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestQuestionTextIsEscaped(t *testing.T) {
	var buf bytes.Buffer
	qs := []model.Question{{ID: 1, Statement: "<script>alert(1)</script>", Topic: "a&b"}}
	if err := QuestionListPage(qs).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Error("statement rendered unescaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") || !strings.Contains(out, "a&amp;b") {
		t.Error("expected escaped entities")
	}
}

func TestLinksUseBasePath(t *testing.T) {
	var buf bytes.Buffer
	ctx := model.ContextWithBasePath(context.Background(), "/app")
	if err := GeneratePage([]string{"math"}, nil, "").Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `action="/app/gerar_prova"`) {
		t.Error("form action missing base path")
	}
	if !strings.Contains(out, `href="/app/provas"`) {
		t.Error("nav link missing base path")
	}
}

func TestLanguageSwitcher(t *testing.T) {
	catalog, err := appI18n.New("pt")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	var buf bytes.Buffer
	h := catalog.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := HomePage(nil).Render(r.Context(), &buf); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?lang=en", nil))

	out := buf.String()
	if !strings.Contains(out, `<strong>en</strong>`) {
		t.Error("expected the current language to be marked")
	}
	if !strings.Contains(out, `href="?lang=pt"`) {
		t.Error("expected a link to the other language")
	}
	if strings.Contains(out, `href="?lang=en"`) {
		t.Error("current language should not be a link")
	}
	if !strings.Contains(out, "Latest questions") {
		t.Error("expected the page in english")
	}
}

func TestLanguageSwitcherNeedsRequest(t *testing.T) {
	var buf bytes.Buffer
	if err := NotFoundPage().Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), `class="languages"`) {
		t.Error("switcher rendered without request languages")
	}
}

func TestExamPage(t *testing.T) {
	var buf bytes.Buffer
	ctx := model.ContextWithBasePath(context.Background(), "/app")
	view := model.ExamView{
		Exam: model.Exam{ID: 7, Title: "Prova gerada (Geral)", CreatedAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)},
		Questions: []model.ExamQuestionView{
			{Link: model.ExamQuestion{ID: 31, Position: 1}, Question: model.Question{Statement: "Q1", Topic: "math", Difficulty: "easy", Type: "objetiva", AnswerKey: "4"}},
			{Link: model.ExamQuestion{ID: 32, Position: 2}, Question: model.Question{Statement: "Q2"}},
		},
	}
	if err := ExamPage(view, "").Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<li value="2">`,
		`action="/app/prova/7/trocar_questao/31"`,
		`action="/app/prova/7/excluir"`,
		`data-confirm="ConfirmDelete"`,
		"math · easy · objetiva",
		"10/03/2026 14:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in exam page", want)
		}
	}
}
