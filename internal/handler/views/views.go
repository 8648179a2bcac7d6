// Package views renders the HTML pages of the web interface. The pages are
// templ components; the *_templ.go files are produced by templ generate.
package views

//go:generate templ generate

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/provas/internal/i18n"
	"github.com/pavelanni/provas/internal/model"
)

// statementPreview is how many runes of a statement the listings show.
const statementPreview = 80

var navItems = []struct{ path, label string }{
	{"/", "NavHome"},
	{"/cadastrar", "NavCreate"},
	{"/questoes", "NavQuestions"},
	{"/importar", "NavImport"},
	{"/gerar_prova", "NavGenerate"},
	{"/provas", "NavExams"},
}

func t(ctx context.Context, msgID string) string { return appI18n.T(ctx, msgID) }

func pageTitle(ctx context.Context, title string) string {
	return t(ctx, title) + " · " + t(ctx, "AppTitle")
}

// link prefixes an application path with the deployment base path.
func link(ctx context.Context, path string) templ.SafeURL {
	return templ.URL(model.BasePathFromContext(ctx) + path)
}

func languageURL(lang string) templ.SafeURL {
	return templ.URL("?lang=" + url.QueryEscape(lang))
}

func examPath(id int64) string { return fmt.Sprintf("/prova/%d", id) }

func swapPath(examID, linkID int64) string {
	return fmt.Sprintf("/prova/%d/trocar_questao/%d", examID, linkID)
}

func questionCount(ctx context.Context, n int) string {
	return appI18n.Tp(ctx, "QuestionsCount", n)
}

func questionMeta(q model.Question) string {
	return q.Topic + " · " + q.Difficulty + " · " + q.Type
}

func formatTime(ts time.Time) string { return ts.Format("02/01/2006 15:04") }

func importFailed(ctx context.Context, msg string) string {
	return appI18n.Td(ctx, "ImportFailed", map[string]any{"Error": msg})
}

func importSummary(ctx context.Context, r model.ImportResult) string {
	if r.Unchanged {
		return t(ctx, "ImportUnchanged")
	}
	return appI18n.Td(ctx, "ImportResult", map[string]any{
		"Inserted": r.Inserted,
		"Skipped":  r.Skipped,
		"Rejected": r.Rejected,
	})
}

type formField struct {
	name, label, value string
	area               bool
}

// questionFields lists the question form inputs in display order.
func questionFields(in model.QuestionInput) []formField {
	return []formField{
		{"enunciado", "Statement", in.Statement, true},
		{"tema", "Topic", in.Topic, false},
		{"tipo", "Type", in.Type, false},
		{"nivel", "Difficulty", in.Difficulty, false},
		{"gabarito", "AnswerKey", in.AnswerKey, true},
		{"fonte", "Source", in.Source, false},
	}
}

// Truncate shortens text to length runes, appending "..." when cut.
func Truncate(text string, length int) string {
	r := []rune(text)
	if length <= 0 || len(r) <= length {
		return text
	}
	return string(r[:length]) + "..."
}
