package model

import "time"

// ExamExport is the top-level JSON structure written by `provas export`.
type ExamExport struct {
	ID        int64            `json:"id"`
	Title     string           `json:"titulo"`
	CreatedAt time.Time        `json:"data_criacao"`
	Questions []QuestionExport `json:"questoes"`
}

// QuestionExport is one exam slot in an export.
type QuestionExport struct {
	Position   int    `json:"ordem"`
	QuestionID int64  `json:"questao_id"`
	Statement  string `json:"enunciado"`
	Topic      string `json:"tema"`
	Type       string `json:"tipo"`
	Difficulty string `json:"nivel"`
	AnswerKey  string `json:"gabarito"`
	Source     string `json:"fonte"`
}

// NewExamExport flattens an exam view into its export form.
func NewExamExport(v ExamView) ExamExport {
	out := ExamExport{
		ID:        v.Exam.ID,
		Title:     v.Exam.Title,
		CreatedAt: v.Exam.CreatedAt,
		Questions: make([]QuestionExport, 0, len(v.Questions)),
	}
	for _, qv := range v.Questions {
		out.Questions = append(out.Questions, QuestionExport{
			Position:   qv.Link.Position,
			QuestionID: qv.Question.ID,
			Statement:  qv.Question.Statement,
			Topic:      qv.Question.Topic,
			Type:       qv.Question.Type,
			Difficulty: qv.Question.Difficulty,
			AnswerKey:  qv.Question.AnswerKey,
			Source:     qv.Question.Source,
		})
	}
	return out
}
