package model

import (
	"context"
	"time"
)

// Question is one entry of the question bank.
type Question struct {
	ID         int64     `json:"id"`
	Statement  string    `json:"enunciado"`
	Topic      string    `json:"tema"`
	Type       string    `json:"tipo"`
	Difficulty string    `json:"nivel"`
	AnswerKey  string    `json:"gabarito"`
	Source     string    `json:"fonte"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuestionInput carries the fields of a new question as submitted by a form
// or read from an import row. Form names double as validation field names.
type QuestionInput struct {
	Statement  string `form:"enunciado" validate:"required"`
	Topic      string `form:"tema" validate:"required"`
	Type       string `form:"tipo" validate:"required"`
	Difficulty string `form:"nivel" validate:"required"`
	AnswerKey  string `form:"gabarito" validate:"required"`
	Source     string `form:"fonte" validate:"required"`
}

// Question converts the input into a storable question.
func (in QuestionInput) Question() Question {
	return Question{
		Statement:  in.Statement,
		Topic:      in.Topic,
		Type:       in.Type,
		Difficulty: in.Difficulty,
		AnswerKey:  in.AnswerKey,
		Source:     in.Source,
	}
}

// Exam is a generated, ordered collection of questions.
type Exam struct {
	ID        int64     `json:"id"`
	Title     string    `json:"titulo"`
	CreatedAt time.Time `json:"data_criacao"`
}

// ExamQuestion is one slot of an exam. Position is 1-based and never
// changes once the exam is created; only QuestionID is replaced by a swap.
type ExamQuestion struct {
	ID         int64 `json:"id"`
	ExamID     int64 `json:"prova_id"`
	QuestionID int64 `json:"questao_id"`
	Position   int   `json:"ordem"`
}

// ExamQuestionView is a link with its question resolved.
type ExamQuestionView struct {
	Link     ExamQuestion
	Question Question
}

// ExamView is an exam with its links sorted by position.
type ExamView struct {
	Exam      Exam
	Questions []ExamQuestionView
}

// ExamSummary is a row of the exam listing.
type ExamSummary struct {
	Exam          Exam
	QuestionCount int
}

// GenerateRequest holds the filters and size of a new exam.
// Empty Topics or Difficulty match every question on that dimension.
type GenerateRequest struct {
	Topics     []string
	Difficulty string
	Count      int
}

// ImportResult reports what a bulk import did with each row.
type ImportResult struct {
	File      string `json:"file"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	Rejected  int    `json:"rejected"`
	Unchanged bool   `json:"unchanged"`
}

// ImportRecord is a previously imported file.
type ImportRecord struct {
	ID         int64
	File       string
	Hash       string
	Inserted   int
	Skipped    int
	ImportedAt time.Time
}

// AppConfig holds runtime web parameters set via CLI flags.
type AppConfig struct {
	BasePath    string // URL prefix for sub-path deployments (e.g. "/provas")
	RecentLimit int    // questions shown on the home page
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
