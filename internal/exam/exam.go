// Package exam assembles randomized exams from the question bank
// and lets users swap individual questions afterwards.
package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pavelanni/provas/internal/model"
)

var (
	// ErrNotFound is returned when the referenced exam or link does not exist.
	ErrNotFound = errors.New("exam not found")
	// ErrNoMatchingQuestions is returned when no question satisfies the filters.
	ErrNoMatchingQuestions = errors.New("no questions match the filters")
	// ErrNoAlternativeAvailable is returned when a swap has no valid replacement.
	ErrNoAlternativeAvailable = errors.New("no alternative question available")
	// ErrInvalidCount is returned when the requested question count is not positive.
	ErrInvalidCount = errors.New("question count must be positive")
)

// DefaultTitleLabel names exams generated without a topic filter.
const DefaultTitleLabel = "Geral"

// Repository is the storage the service needs.
type Repository interface {
	ListQuestionsFiltered(ctx context.Context, topics []string, difficulty string) ([]model.Question, error)
	ListQuestionsByCategory(ctx context.Context, topic, difficulty string) ([]model.Question, error)
	GetQuestion(ctx context.Context, id int64) (model.Question, error)
	CreateExam(ctx context.Context, exam model.Exam, questionIDs []int64) (int64, error)
	GetExamView(ctx context.Context, examID int64) (*model.ExamView, error)
	GetExamQuestion(ctx context.Context, linkID int64) (model.ExamQuestion, error)
	GetExamQuestions(ctx context.Context, examID int64) ([]model.ExamQuestionView, error)
	GetExam(ctx context.Context, id int64) (model.Exam, error)
	ListExams(ctx context.Context) ([]model.ExamSummary, error)
	UpdateExamQuestion(ctx context.Context, linkID, questionID int64) error
	DeleteExam(ctx context.Context, examID int64) error
}

// Service implements exam generation, viewing, swapping and deletion.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a Service backed by repo.
func New(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Generate samples up to req.Count questions matching the filters, without
// replacement, and persists them as a new exam with positions 1..k.
func (s *Service) Generate(ctx context.Context, req model.GenerateRequest) (model.Exam, error) {
	if req.Count <= 0 {
		return model.Exam{}, ErrInvalidCount
	}
	topics := dedupTopics(req.Topics)

	candidates, err := s.repo.ListQuestionsFiltered(ctx, topics, req.Difficulty)
	if err != nil {
		return model.Exam{}, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return model.Exam{}, ErrNoMatchingQuestions
	}

	sampled := sample(candidates, req.Count)
	questionIDs := make([]int64, len(sampled))
	for i, q := range sampled {
		questionIDs[i] = q.ID
	}

	exam := model.Exam{
		Title:     Title(topics),
		CreatedAt: s.now(),
	}
	exam.ID, err = s.repo.CreateExam(ctx, exam, questionIDs)
	if err != nil {
		return model.Exam{}, fmt.Errorf("create exam: %w", err)
	}

	slog.Info("generated exam",
		"exam_id", exam.ID,
		"topics", topics,
		"difficulty", req.Difficulty,
		"requested", req.Count,
		"candidates", len(candidates),
		"selected", len(questionIDs),
	)
	return exam, nil
}

// Get returns an exam with its questions ordered by position.
func (s *Service) Get(ctx context.Context, examID int64) (*model.ExamView, error) {
	view, err := s.repo.GetExamView(ctx, examID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}
	return view, nil
}

// List returns all exams, newest first.
func (s *Service) List(ctx context.Context) ([]model.ExamSummary, error) {
	exams, err := s.repo.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Export returns the export form of one exam.
func (s *Service) Export(ctx context.Context, examID int64) (model.ExamExport, error) {
	view, err := s.Get(ctx, examID)
	if err != nil {
		return model.ExamExport{}, err
	}
	return model.NewExamExport(*view), nil
}

// Swap replaces the question of one link with a random question of the same
// topic and difficulty that is not yet part of the exam, and returns it.
// The link keeps its position; nothing else is modified.
func (s *Service) Swap(ctx context.Context, examID, linkID int64) (model.Question, error) {
	link, err := s.repo.GetExamQuestion(ctx, linkID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && link.ExamID != examID) {
		return model.Question{}, ErrNotFound
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("get link %d: %w", linkID, err)
	}
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Question{}, ErrNotFound
		}
		return model.Question{}, fmt.Errorf("get exam %d: %w", examID, err)
	}

	links, err := s.repo.GetExamQuestions(ctx, examID)
	if err != nil {
		return model.Question{}, fmt.Errorf("list exam questions: %w", err)
	}
	inExam := make(map[int64]bool, len(links))
	for _, l := range links {
		inExam[l.Link.QuestionID] = true
	}

	current, err := s.repo.GetQuestion(ctx, link.QuestionID)
	if err != nil {
		return model.Question{}, fmt.Errorf("get question %d: %w", link.QuestionID, err)
	}

	same, err := s.repo.ListQuestionsByCategory(ctx, current.Topic, current.Difficulty)
	if err != nil {
		return model.Question{}, fmt.Errorf("list alternatives: %w", err)
	}
	var pool []model.Question
	for _, q := range same {
		if !inExam[q.ID] {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return model.Question{}, ErrNoAlternativeAvailable
	}

	chosen := pool[rand.IntN(len(pool))]
	if err := s.repo.UpdateExamQuestion(ctx, linkID, chosen.ID); err != nil {
		return model.Question{}, fmt.Errorf("update link %d: %w", linkID, err)
	}

	slog.Info("swapped exam question",
		"exam_id", examID,
		"link_id", linkID,
		"position", link.Position,
		"old_question_id", current.ID,
		"new_question_id", chosen.ID,
		"pool", len(pool),
	)
	return chosen, nil
}

// Delete removes an exam and all of its links.
func (s *Service) Delete(ctx context.Context, examID int64) error {
	err := s.repo.DeleteExam(ctx, examID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete exam %d: %w", examID, err)
	}
	slog.Info("deleted exam", "exam_id", examID)
	return nil
}

// Title builds the display title of an exam generated with these topics.
func Title(topics []string) string {
	label := strings.Join(topics, ", ")
	if label == "" {
		label = DefaultTitleLabel
	}
	return fmt.Sprintf("Prova gerada (%s)", label)
}

// sample returns min(n, len(questions)) distinct questions chosen uniformly
// at random. The input slice is not modified.
func sample(questions []model.Question, n int) []model.Question {
	shuffled := make([]model.Question, len(questions))
	copy(shuffled, questions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}

// dedupTopics trims topics and drops blanks and repeats, keeping first-seen order.
func dedupTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	var out []string
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
