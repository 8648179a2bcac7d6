package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/provas/internal/model"
)

// ExportAllExams builds export-ready records for every exam, newest first.
func (s *Store) ExportAllExams(ctx context.Context) ([]model.ExamExport, error) {
	exams, err := s.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	exports := make([]model.ExamExport, 0, len(exams))
	for _, es := range exams {
		view, err := s.GetExamView(ctx, es.Exam.ID)
		if err != nil {
			return nil, fmt.Errorf("get exam %d: %w", es.Exam.ID, err)
		}
		exports = append(exports, model.NewExamExport(*view))
	}
	return exports, nil
}
