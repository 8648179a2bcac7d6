package store

import (
	"context"
	"database/sql"

	"github.com/pavelanni/provas/internal/model"
)

// CreateExam inserts an exam and one link per question ID, numbering
// positions from 1 in the given order. Either everything is written or nothing is.
// A zero CreatedAt is replaced by the current time; others are stored in UTC.
func (s *Store) CreateExam(ctx context.Context, exam model.Exam, questionIDs []int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	createdAt := exam.CreatedAt.UTC()
	if exam.CreatedAt.IsZero() {
		createdAt = timestamp()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO exams (title, created_at) VALUES (?, ?)`,
		exam.Title, createdAt,
	)
	if err != nil {
		return 0, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, qID := range questionIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, position) VALUES (?, ?, ?)`,
			examID, qID, i+1,
		)
		if err != nil {
			return 0, err
		}
	}

	return examID, tx.Commit()
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.CreatedAt)
	return e, err
}

// ListExams returns all exams, newest first, with their question counts.
func (s *Store) ListExams(ctx context.Context) ([]model.ExamSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.title, e.created_at, COUNT(eq.id)
		 FROM exams e LEFT JOIN exam_questions eq ON eq.exam_id = e.id
		 GROUP BY e.id
		 ORDER BY e.created_at DESC, e.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.ExamSummary
	for rows.Next() {
		var es model.ExamSummary
		if err := rows.Scan(&es.Exam.ID, &es.Exam.Title, &es.Exam.CreatedAt, &es.QuestionCount); err != nil {
			return nil, err
		}
		exams = append(exams, es)
	}
	return exams, rows.Err()
}

// GetExamQuestions returns the links of an exam ordered by position, each
// joined with its question.
func (s *Store) GetExamQuestions(ctx context.Context, examID int64) ([]model.ExamQuestionView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT eq.id, eq.exam_id, eq.question_id, eq.position,
		        q.id, q.statement, q.topic, q.type, q.difficulty, q.answer_key, q.source, q.created_at
		 FROM exam_questions eq JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = ?
		 ORDER BY eq.position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var views []model.ExamQuestionView
	for rows.Next() {
		var v model.ExamQuestionView
		q := &v.Question
		if err := rows.Scan(
			&v.Link.ID, &v.Link.ExamID, &v.Link.QuestionID, &v.Link.Position,
			&q.ID, &q.Statement, &q.Topic, &q.Type, &q.Difficulty, &q.AnswerKey, &q.Source, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// GetExamQuestion returns a single link by ID.
func (s *Store) GetExamQuestion(ctx context.Context, linkID int64) (model.ExamQuestion, error) {
	var l model.ExamQuestion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, exam_id, question_id, position FROM exam_questions WHERE id = ?`, linkID,
	).Scan(&l.ID, &l.ExamID, &l.QuestionID, &l.Position)
	return l, err
}

// GetExamView builds the full view of an exam.
func (s *Store) GetExamView(ctx context.Context, examID int64) (*model.ExamView, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.GetExamQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	return &model.ExamView{Exam: exam, Questions: questions}, nil
}

// UpdateExamQuestion points a link at another question. Position is untouched.
func (s *Store) UpdateExamQuestion(ctx context.Context, linkID, questionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE exam_questions SET question_id = ? WHERE id = ?`, questionID, linkID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// DeleteExam removes an exam's links and then the exam itself in one
// transaction. It returns sql.ErrNoRows when the exam does not exist.
func (s *Store) DeleteExam(ctx context.Context, examID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM exams WHERE id = ?`, examID).Scan(&id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id = ?`, examID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, examID); err != nil {
		return err
	}
	return tx.Commit()
}

// ExamCount returns the number of exams in the database.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

// ExamQuestionCount returns the number of links across all exams.
func (s *Store) ExamQuestionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_questions`).Scan(&count)
	return count, err
}
