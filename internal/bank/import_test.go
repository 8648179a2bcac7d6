package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/provas/internal/model"
	"github.com/pavelanni/provas/internal/store"
)

const header = "enunciado,tema,tipo,nivel,gabarito,fonte\n"

func TestImportCSV(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, model.QuestionInput{
		Statement: "what is x?", Topic: "t", Type: "d", Difficulty: "fácil", AnswerKey: "k", Source: "s",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := []byte(header +
		"\" What Is X?  \",t,d,fácil,k,s\n" +
		"What is Y?,t,d,fácil,k,s\n" +
		"\"what   is y?\",t,d,fácil,k,s\n" +
		",t,d,fácil,k,s\n" +
		"\"Quanto é 2+2, afinal?\",mat,d,médio,4,livro\n")

	res, err := svc.Import(ctx, "questoes.csv", data, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 2 || res.Rejected != 1 {
		t.Errorf("expected 2 inserted, 2 skipped, 1 rejected; got %+v", res)
	}

	count, _ := s.QuestionCount(ctx)
	if count != 3 {
		t.Errorf("expected 3 questions, got %d", count)
	}
	qs, _ := s.ListQuestionsFiltered(ctx, []string{"mat"}, "médio")
	if len(qs) != 1 || qs[0].Statement != "Quanto é 2+2, afinal?" || qs[0].Source != "livro" {
		t.Errorf("unexpected imported question %+v", qs)
	}
}

func TestImportUnchangedFile(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	data := []byte(header + "Q1,t,d,fácil,k,s\n")

	if _, err := svc.Import(ctx, "a.csv", data, false); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	res, err := svc.Import(ctx, "b.csv", data, false)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if !res.Unchanged {
		t.Errorf("expected unchanged result, got %+v", res)
	}

	// Forcing re-reads the rows, which are now duplicates.
	res, err = svc.Import(ctx, "b.csv", data, true)
	if err != nil {
		t.Fatalf("forced Import: %v", err)
	}
	if res.Unchanged || res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("expected 1 skipped on forced import, got %+v", res)
	}
	count, _ := s.QuestionCount(ctx)
	if count != 1 {
		t.Errorf("expected 1 question, got %d", count)
	}
}

func TestImportHeaderErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, "x.csv", []byte("enunciado,tema\nQ,t\n"), false)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if len(missing.Columns) != 4 {
		t.Errorf("expected 4 missing columns, got %v", missing.Columns)
	}

	if _, err := svc.Import(ctx, "empty.csv", nil, false); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
}

func TestImportCSVWithBOMAndShortRows(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	data := []byte("\xef\xbb\xbfEnunciado,Tema,Tipo,Nivel,Gabarito,Fonte\nQ1,t,d\n")

	res, err := svc.Import(ctx, "bom.csv", data, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %+v", res)
	}
	qs, _ := s.ListQuestions(ctx)
	if len(qs) != 1 || qs[0].Type != "d" || qs[0].Source != "" {
		t.Errorf("unexpected question %+v", qs)
	}
}

func TestImportXLSX(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"enunciado", "tema", "tipo", "nivel", "gabarito", "fonte"},
		{"Capital da França?", "geografia", "objetiva", "fácil", "Paris", "atlas"},
		{"  capital da FRANÇA?", "geografia", "objetiva", "fácil", "Paris", "atlas"},
		{"Capital do Peru?", "geografia", "objetiva", "médio", "Lima", "atlas"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	res, err := svc.Import(ctx, "questoes.xlsx", buf.Bytes(), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 2 || res.Skipped != 1 {
		t.Errorf("expected 2 inserted and 1 skipped, got %+v", res)
	}
	topics, _ := s.ListDistinctTopics(ctx)
	if len(topics) != 1 || topics[0] != "geografia" {
		t.Errorf("unexpected topics %v", topics)
	}
}

func TestImportKeepsRowsWithEmptyOptionalFields(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, "q.csv", []byte(header+"Q sem tema,,d,fácil,k,s\n"), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 1 || res.Rejected != 0 {
		t.Errorf("expected the row inserted, got %+v", res)
	}
	qs, _ := s.ListQuestions(ctx)
	if len(qs) != 1 || qs[0].Topic != "" || qs[0].Type != "d" {
		t.Errorf("unexpected question %+v", qs)
	}
}

func TestImportUnreadableFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{"broken.xlsx", "not a zip archive"},
		{"broken.csv", header + "\"unterminated,t,d,n,k,s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.name, []byte(tt.data), false)
			if !errors.Is(err, ErrUnreadableFile) {
				t.Errorf("expected ErrUnreadableFile, got %v", err)
			}
		})
	}
}

// failingSave is a store whose SaveImport always fails.
type failingSave struct {
	*store.Store
}

func (f failingSave) SaveImport(context.Context, []model.Question, model.ImportRecord) (int64, error) {
	return 0, errors.New("disk full")
}

func TestImportSaveFailure(t *testing.T) {
	_, s := newTestService(t)
	svc := New(failingSave{s})
	ctx := context.Background()
	data := []byte(header + "Q1,t,d,fácil,k,s\n")

	res, err := svc.Import(ctx, "q.csv", data, false)
	if err == nil {
		t.Fatal("expected error when the import cannot be saved")
	}
	if res.Inserted != 0 {
		t.Errorf("expected nothing reported as inserted, got %+v", res)
	}

	// The file was not recorded, so a working store imports it afterwards.
	res, err = New(s).Import(ctx, "q.csv", data, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Unchanged || res.Inserted != 1 {
		t.Errorf("expected a fresh import, got %+v", res)
	}
}
