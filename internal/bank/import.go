package bank

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/provas/internal/model"
)

// Column names an import file must carry in its header row.
var importColumns = []string{"enunciado", "tema", "tipo", "nivel", "gabarito", "fonte"}

var (
	// ErrEmptyFile is returned when an import file has no header row.
	ErrEmptyFile = errors.New("import file is empty")
	// ErrUnreadableFile wraps CSV and XLSX parse failures.
	ErrUnreadableFile = errors.New("unreadable import file")
)

// MissingColumnsError is returned when the header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// Import reads questions from a CSV or XLSX file (chosen by the extension of
// name) and inserts every row whose normalized statement is not already in the
// bank or earlier in the same file. The inserts and the record of the file's
// hash are committed together.
// A file whose content was imported before is left alone unless force is set.
func (s *Service) Import(ctx context.Context, name string, data []byte, force bool) (model.ImportResult, error) {
	result := model.ImportResult{File: name}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if !force {
		prev, err := s.repo.FindImportByHash(ctx, hash)
		if err != nil {
			return result, fmt.Errorf("check import status: %w", err)
		}
		if prev != nil {
			slog.Info("import file unchanged, skipping", "file", name, "previous", prev.File, "at", prev.ImportedAt)
			result.Unchanged = true
			return result, nil
		}
	}

	rows, err := readRows(name, data)
	if err != nil {
		return result, err
	}
	if len(rows) == 0 {
		return result, ErrEmptyFile
	}
	cols, err := headerIndex(rows[0])
	if err != nil {
		return result, err
	}

	statements, err := s.repo.ListStatements(ctx)
	if err != nil {
		return result, fmt.Errorf("list statements: %w", err)
	}
	seen := make(map[string]bool, len(statements))
	for _, st := range statements {
		seen[NormalizeStatement(st)] = true
	}

	var batch []model.Question
	for i, row := range rows[1:] {
		in := rowInput(row, cols)
		norm := NormalizeStatement(in.Statement)
		if norm == "" {
			slog.Warn("import row without statement rejected", "file", name, "row", i+2)
			result.Rejected++
			continue
		}
		if seen[norm] {
			slog.Debug("duplicate question skipped", "file", name, "row", i+2, "statement", truncate(in.Statement, 60))
			result.Skipped++
			continue
		}
		seen[norm] = true
		batch = append(batch, in.Question())
	}

	rec := model.ImportRecord{
		File:     name,
		Hash:     hash,
		Inserted: len(batch),
		Skipped:  result.Skipped,
	}
	if _, err := s.repo.SaveImport(ctx, batch, rec); err != nil {
		return result, fmt.Errorf("save import: %w", err)
	}
	result.Inserted = len(batch)

	slog.Info("imported questions",
		"file", name,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
	)
	return result, nil
}

func readRows(name string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	default:
		return readCSV(data)
	}
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse csv: %w", ErrUnreadableFile, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %w", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", ErrUnreadableFile, sheets[0], err)
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range importColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return cols, nil
}

func rowInput(row []string, cols map[string]int) model.QuestionInput {
	cell := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return model.QuestionInput{
		Statement:  cell("enunciado"),
		Topic:      cell("tema"),
		Type:       cell("tipo"),
		Difficulty: cell("nivel"),
		AnswerKey:  cell("gabarito"),
		Source:     cell("fonte"),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
