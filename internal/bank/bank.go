// Package bank handles entry of new questions into the question bank, one at
// a time from the web form or in bulk from CSV and XLSX files.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/provas/internal/model"
)

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s is required", e.Fields[0])
	}
	return fmt.Sprintf("validation failed: %s are required", strings.Join(e.Fields, ", "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Repository is the storage the bank needs.
type Repository interface {
	InsertQuestion(ctx context.Context, q model.Question) (int64, error)
	ListStatements(ctx context.Context) ([]string, error)
	FindImportByHash(ctx context.Context, hash string) (*model.ImportRecord, error)
	SaveImport(ctx context.Context, questions []model.Question, rec model.ImportRecord) (int64, error)
}

// Service creates questions after validating them.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// New creates a Service backed by repo.
func New(repo Repository) *Service {
	v := validator.New()
	// Report fields by their form names so errors map onto inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Service{repo: repo, validate: v}
}

// Validate trims every field of in and checks that all are present.
func (s *Service) Validate(in *model.QuestionInput) error {
	in.Statement = strings.TrimSpace(in.Statement)
	in.Topic = strings.TrimSpace(in.Topic)
	in.Type = strings.TrimSpace(in.Type)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	in.AnswerKey = strings.TrimSpace(in.AnswerKey)
	in.Source = strings.TrimSpace(in.Source)

	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}

// Create validates in and stores it as a new question.
func (s *Service) Create(ctx context.Context, in model.QuestionInput) (int64, error) {
	if err := s.Validate(&in); err != nil {
		return 0, err
	}
	id, err := s.repo.InsertQuestion(ctx, in.Question())
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	slog.Info("created question", "id", id, "topic", in.Topic, "difficulty", in.Difficulty)
	return id, nil
}

// NormalizeStatement lowercases s, trims it and collapses internal runs of
// whitespace to a single space. Two statements are duplicates when their
// normalized forms are equal.
func NormalizeStatement(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
