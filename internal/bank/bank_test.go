package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/provas/internal/model"
	"github.com/pavelanni/provas/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func validInput() model.QuestionInput {
	return model.QuestionInput{
		Statement:  "Quanto é 2 + 2?",
		Topic:      "matemática",
		Type:       "dissertativa",
		Difficulty: "fácil",
		AnswerKey:  "4",
		Source:     "autoral",
	}
}

func TestCreate(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.Topic = "  matemática  "
	id, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Topic != "matemática" {
		t.Errorf("expected trimmed topic, got %q", q.Topic)
	}
	if q.AnswerKey != "4" || q.Source != "autoral" {
		t.Errorf("unexpected question %+v", q)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *model.QuestionInput)
		fields []string
	}{
		{"missing statement", func(in *model.QuestionInput) { in.Statement = "" }, []string{"enunciado"}},
		{"blank topic", func(in *model.QuestionInput) { in.Topic = "   " }, []string{"tema"}},
		{"missing two", func(in *model.QuestionInput) { in.Type = ""; in.Source = "" }, []string{"tipo", "fonte"}},
		{"all missing", func(in *model.QuestionInput) { *in = model.QuestionInput{} },
			[]string{"enunciado", "tema", "tipo", "nivel", "gabarito", "fonte"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s := newTestService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Fatalf("expected fields %v, got %v", tt.fields, verr.Fields)
			}
			for _, f := range tt.fields {
				if !verr.Has(f) {
					t.Errorf("expected %q among %v", f, verr.Fields)
				}
			}
			count, _ := s.QuestionCount(context.Background())
			if count != 0 {
				t.Errorf("expected nothing stored, got %d questions", count)
			}
		})
	}
}

func TestNormalizeStatement(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" What Is X?  ", "what is x?"},
		{"what is x?", "what is x?"},
		{"What\tis \n\n X?", "what is x?"},
		{"   ", ""},
		{"Qual É a CAPITAL?", "qual é a capital?"},
	}
	for _, tt := range tests {
		if got := NormalizeStatement(tt.in); got != tt.want {
			t.Errorf("NormalizeStatement(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
