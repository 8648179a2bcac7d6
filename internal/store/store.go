package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/provas/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers the way SQLite wants them.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// timestamp is the time stored in created_at and imported_at columns. Values
// are kept in UTC so that ordering by the stored text follows time order.
func timestamp() time.Time {
	return time.Now().UTC()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		statement TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		answer_key TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_questions_topic_difficulty ON questions(topic, difficulty);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		UNIQUE (exam_id, position),
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file TEXT NOT NULL,
		hash TEXT NOT NULL,
		inserted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const questionColumns = `id, statement, topic, type, difficulty, answer_key, source, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner, q *model.Question) error {
	return row.Scan(&q.ID, &q.Statement, &q.Topic, &q.Type, &q.Difficulty, &q.AnswerKey, &q.Source, &q.CreatedAt)
}

func collectQuestions(rows *sql.Rows) ([]model.Question, error) {
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// InsertQuestion stores a question.
func (s *Store) InsertQuestion(ctx context.Context, q model.Question) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (statement, topic, type, difficulty, answer_key, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.Statement, q.Topic, q.Type, q.Difficulty, q.AnswerKey, q.Source, timestamp(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListQuestions returns all questions, newest first.
func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// RecentQuestions returns the limit most recently created questions.
func (s *Store) RecentQuestions(ctx context.Context, limit int) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListQuestionsFiltered returns questions whose topic is one of topics and
// whose difficulty equals difficulty, in store order.
// An empty topics slice or empty difficulty means no filtering on that field.
func (s *Store) ListQuestionsFiltered(ctx context.Context, topics []string, difficulty string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if len(topics) > 0 {
		query += ` AND topic IN (?` + strings.Repeat(`, ?`, len(topics)-1) + `)`
		for _, t := range topics {
			args = append(args, t)
		}
	}
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListQuestionsByCategory returns questions with exactly this topic and difficulty.
// Unlike ListQuestionsFiltered, empty values are matched literally.
func (s *Store) ListQuestionsByCategory(ctx context.Context, topic, difficulty string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE topic = ? AND difficulty = ? ORDER BY id`,
		topic, difficulty,
	)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	var q model.Question
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	err := scanQuestion(row, &q)
	return q, err
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListStatements returns the statement of every stored question.
func (s *Store) ListStatements(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT statement FROM questions ORDER BY id`)
}

// ListDistinctTopics returns every topic in use, alphabetically.
func (s *Store) ListDistinctTopics(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT DISTINCT topic FROM questions WHERE topic <> '' ORDER BY topic`)
}

// ListDistinctDifficulties returns every difficulty in use, alphabetically.
func (s *Store) ListDistinctDifficulties(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT DISTINCT difficulty FROM questions WHERE difficulty <> '' ORDER BY difficulty`)
}

func (s *Store) listStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
