package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pavelanni/provas/internal/exam"
	"github.com/pavelanni/provas/internal/model"
	"github.com/pavelanni/provas/internal/store"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		debug, json   bool
	}{
		{"debug", "text", true, false},
		{"INFO", "json", false, true},
		{"bogus", "", false, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := newLogger(&buf, tt.level, tt.format)
		if got := l.Enabled(context.Background(), slog.LevelDebug); got != tt.debug {
			t.Errorf("level %q: debug enabled = %v, want %v", tt.level, got, tt.debug)
		}
		l.Warn("hello")
		if got := strings.HasPrefix(buf.String(), "{"); got != tt.json {
			t.Errorf("format %q: json output = %v, want %v", tt.format, got, tt.json)
		}
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("provas %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestImportAndExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "provas.db")
	csvPath := filepath.Join(dir, "questoes.csv")
	csvData := "enunciado,tema,tipo,nivel,gabarito,fonte\n" +
		"Quanto é 2+2?,matemática,objetiva,fácil,4,autoral\n" +
		"Quanto é 3+3?,matemática,objetiva,fácil,6,autoral\n" +
		"quanto é 2+2?,matemática,objetiva,fácil,4,autoral\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, "import", "--db", dbPath, "--log-level", "error", csvPath)
	if !strings.Contains(out, "2 inserted, 1 duplicates skipped, 0 rejected") {
		t.Errorf("unexpected import output: %q", out)
	}
	out = run(t, "import", "--db", dbPath, "--log-level", "error", csvPath)
	if !strings.Contains(out, "unchanged") {
		t.Errorf("expected second import to be skipped: %q", out)
	}

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	created, err := exam.New(s).Generate(context.Background(), model.GenerateRequest{Count: 2})
	s.Close()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	outPath := filepath.Join(dir, "provas.json")
	run(t, "export", "--db", dbPath, "--log-level", "error", "-o", outPath)
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var exports []model.ExamExport
	if err := json.Unmarshal(data, &exports); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(exports) != 1 || exports[0].ID != created.ID || len(exports[0].Questions) != 2 {
		t.Fatalf("unexpected export: %+v", exports)
	}

	out = run(t, "export", "--db", dbPath, "--log-level", "error", "--exam-id", "1")
	if !strings.Contains(out, `"titulo": "Prova gerada (Geral)"`) {
		t.Errorf("unexpected single export: %s", out)
	}
}
