package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/store"
	"github.com/vidyavistaar/portal/internal/store/seed"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "report"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	if root.Flags().Lookup("addr") == nil {
		t.Error("serve flags not registered on root")
	}
}

func TestLoadFixturesBuiltIn(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)

	if err := loadFixtures(ctx, db, ""); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	hash, err := db.GetImportedFileHash(ctx, seed.Path)
	if err != nil {
		t.Fatal(err)
	}
	if hash != sha256sum(seed.Fixtures) {
		t.Errorf("recorded hash = %q", hash)
	}
	if _, err := db.GetQuiz(ctx, "pq1"); err != nil {
		t.Errorf("seeded quiz missing: %v", err)
	}

	// Second run is a no-op.
	if err := loadFixtures(ctx, db, ""); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestLoadFixturesFromFile(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	path := filepath.Join(t.TempDir(), "extra.yaml")
	doc := "quizzes:\n  - id: fq1\n    title: {en: File Quiz}\n    questions:\n      - {id: fq1a, text: {en: \"One?\"}, type: mcq, options: [a, b], correct_answer: 1}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := loadFixtures(ctx, db, path); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if _, err := db.GetQuiz(ctx, "fq1"); err != nil {
		t.Errorf("quiz from file missing: %v", err)
	}

	if err := loadFixtures(ctx, db, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteReport(t *testing.T) {
	rep := model.MonthlyReport{
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Language:    model.LanguageEnglish,
		Summary:     "Student: Pranav",
		Analysis:    "Focus on <algebra>",
	}

	var buf bytes.Buffer
	if err := writeReport(context.Background(), &buf, rep, "json"); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Errorf("json output lacks trailing newline: %q", buf.String())
	}
	var decoded model.MonthlyReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Summary != rep.Summary {
		t.Errorf("summary = %q", decoded.Summary)
	}

	buf.Reset()
	if err := writeReport(context.Background(), &buf, rep, "html"); err != nil {
		t.Fatalf("html: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Focus on &lt;algebra&gt;") {
		t.Errorf("analysis not escaped: %s", out)
	}
	if !strings.Contains(out, `<html lang="en">`) {
		t.Errorf("missing language tag: %s", out)
	}
}

type countingPruner struct{ calls chan struct{} }

func (p *countingPruner) Prune(context.Context) (int, int) {
	p.calls <- struct{}{}
	return 1, 0
}

func TestPruneLoopStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPruner{calls: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		pruneLoop(ctx, p, time.Millisecond)
		close(done)
	}()

	select {
	case <-p.calls:
	case <-time.After(time.Second):
		t.Fatal("Prune was never called")
	}
	cancel()
	// Drain a tick that may race with cancellation.
	go func() {
		for range p.calls {
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruneLoop did not return after cancel")
	}
}
