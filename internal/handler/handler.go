package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/provas/internal/bank"
	"github.com/pavelanni/provas/internal/exam"
	"github.com/pavelanni/provas/internal/handler/views"
	"github.com/pavelanni/provas/internal/model"
	"github.com/pavelanni/provas/internal/store"
)

// Notice message IDs that may travel in a redirect's query string.
const (
	NoticeQuestionCreated        = "QuestionCreated"
	NoticeNoMatchingQuestions    = "NoMatchingQuestions"
	NoticeInvalidCount           = "InvalidCount"
	NoticeExamDeleted            = "ExamDeleted"
	NoticeQuestionSwapped        = "QuestionSwapped"
	NoticeNoAlternativeAvailable = "NoAlternativeAvailable"
)

var knownNotices = map[string]bool{
	NoticeQuestionCreated:        true,
	NoticeNoMatchingQuestions:    true,
	NoticeInvalidCount:           true,
	NoticeExamDeleted:            true,
	NoticeQuestionSwapped:        true,
	NoticeNoAlternativeAvailable: true,
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	exams  *exam.Service
	bank   *bank.Service
	config model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, cfg model.AppConfig) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: nil store")
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	return &Handler{
		store:  s,
		exams:  exam.New(s),
		bank:   bank.New(s),
		config: cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/cadastrar", h.handleCreateQuestionPage)
	r.Post("/cadastrar", h.handleCreateQuestion)
	r.Get("/questoes", h.handleListQuestions)
	r.Get("/importar", h.handleImportPage)
	r.Post("/importar", h.handleImport)
	r.Get("/gerar_prova", h.handleGeneratePage)
	r.Post("/gerar_prova", h.handleGenerate)
	r.Get("/provas", h.handleListExams)
	r.Get("/prova/{examID}", h.handleExamPage)
	r.Post("/prova/{examID}/excluir", h.handleDeleteExam)
	r.Post("/prova/{examID}/trocar_questao/{linkID}", h.handleSwapQuestion)
	r.NotFound(h.handleNotFound)
}

// BasePathMiddleware stores the configured URL prefix in the request context
// so views can build links.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes an application path with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// redirect sends a 303 to path, carrying notice when it is set.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path, notice string) {
	target := h.path(path)
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// noticeFrom returns the notice carried by the request, if it is a known one.
func noticeFrom(r *http.Request) string {
	n := r.URL.Query().Get("notice")
	if knownNotices[n] {
		return n
	}
	return ""
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, views.NotFoundPage())
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.RecentQuestions(r.Context(), h.config.RecentLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.HomePage(questions))
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestions(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.QuestionListPage(questions))
}

func (h *Handler) handleCreateQuestionPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.CreateQuestionPage(model.QuestionInput{}, nil, noticeFrom(r)))
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	in := model.QuestionInput{
		Statement:  r.FormValue("enunciado"),
		Topic:      r.FormValue("tema"),
		Type:       r.FormValue("tipo"),
		Difficulty: r.FormValue("nivel"),
		AnswerKey:  r.FormValue("gabarito"),
		Source:     r.FormValue("fonte"),
	}

	_, err := h.bank.Create(r.Context(), in)
	var verr *bank.ValidationError
	if errors.As(err, &verr) {
		h.render(w, r, http.StatusUnprocessableEntity, views.CreateQuestionPage(in, verr.Fields, ""))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirect(w, r, "/cadastrar", NoticeQuestionCreated)
}

func (h *Handler) handleGeneratePage(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListDistinctTopics(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	difficulties, err := h.store.ListDistinctDifficulties(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.GeneratePage(topics, difficulties, noticeFrom(r)))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("quantidade")))
	if err != nil {
		h.redirect(w, r, "/gerar_prova", NoticeInvalidCount)
		return
	}

	created, err := h.exams.Generate(r.Context(), model.GenerateRequest{
		Topics:     r.PostForm["topics"],
		Difficulty: strings.TrimSpace(r.PostForm.Get("difficulty")),
		Count:      count,
	})
	switch {
	case errors.Is(err, exam.ErrInvalidCount):
		h.redirect(w, r, "/gerar_prova", NoticeInvalidCount)
	case errors.Is(err, exam.ErrNoMatchingQuestions):
		h.redirect(w, r, "/gerar_prova", NoticeNoMatchingQuestions)
	case err != nil:
		h.serverError(w, r, err)
	default:
		h.redirect(w, r, fmt.Sprintf("/prova/%d", created.ID), "")
	}
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		h.handleNotFound(w, r)
		return
	}
	view, err := h.exams.Get(r.Context(), examID)
	if errors.Is(err, exam.ErrNotFound) {
		h.handleNotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.ExamPage(*view, noticeFrom(r)))
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.ExamListPage(exams, noticeFrom(r)))
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		h.handleNotFound(w, r)
		return
	}
	err := h.exams.Delete(r.Context(), examID)
	if errors.Is(err, exam.ErrNotFound) {
		h.handleNotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirect(w, r, "/provas", NoticeExamDeleted)
}

func (h *Handler) handleSwapQuestion(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(r, "examID")
	if !ok {
		h.handleNotFound(w, r)
		return
	}
	linkID, ok := idParam(r, "linkID")
	if !ok {
		h.handleNotFound(w, r)
		return
	}

	_, err := h.exams.Swap(r.Context(), examID, linkID)
	examPath := fmt.Sprintf("/prova/%d", examID)
	switch {
	case errors.Is(err, exam.ErrNotFound):
		h.handleNotFound(w, r)
	case errors.Is(err, exam.ErrNoAlternativeAvailable):
		h.redirect(w, r, examPath, NoticeNoAlternativeAvailable)
	case err != nil:
		h.serverError(w, r, err)
	default:
		h.redirect(w, r, examPath, NoticeQuestionSwapped)
	}
}
