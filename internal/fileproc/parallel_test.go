package fileproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/panbanda/pqinspect/internal/testutil"
	"github.com/panbanda/pqinspect/pkg/parser"
)

func createTestFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	files := make([]string, len(contents))
	for i, content := range contents {
		files[i] = filepath.Join(dir, "q"+string(rune('a'+i))+".pq")
		testutil.WriteFile(t, files[i], content)
	}
	return files
}

func parseLen(p *parser.Parser, path string) (int, error) {
	res, err := p.ParseFile(path)
	if err != nil {
		return 0, err
	}
	return res.Graph.Len(), nil
}

func TestMapFiles(t *testing.T) {
	files := createTestFiles(t, "1", "1 + 2", "let a = 1 in a")

	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string) (string, error) {
		return filepath.Base(path), nil
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	want := []string{"qa.pq", "qb.pq", "qc.pq"}
	if strings.Join(results, ",") != strings.Join(want, ",") {
		t.Errorf("MapFiles() = %v, want %v in input order", results, want)
	}
}

func TestMapFiles_EmptyFileList(t *testing.T) {
	results, errs := MapFiles(context.Background(), []string{}, parseLen)

	if results != nil {
		t.Errorf("Expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("Expected nil errors for empty file list, got %v", errs)
	}
}

func TestMapFiles_ParsesDocuments(t *testing.T) {
	files := createTestFiles(t, "1", "1 + 2")

	results, errs := MapFiles(context.Background(), files, parseLen)
	if errs != nil {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0] >= results[1] {
		t.Errorf("binary expression should have more nodes than a literal: %v", results)
	}
}

func TestMapFiles_WithErrors(t *testing.T) {
	files := createTestFiles(t, "1", "2")
	files = append(files, filepath.Join(t.TempDir(), "missing.pq"))

	results, errs := MapFiles(context.Background(), files, parseLen)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
	if errs == nil || len(errs.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
	if errs.Errors[0].Path != files[2] {
		t.Errorf("error path = %s, want %s", errs.Errors[0].Path, files[2])
	}
	if !errors.Is(errs, os.ErrNotExist) {
		t.Error("ProcessingErrors should unwrap to the file error")
	}
}

func TestMapFilesN_Progress(t *testing.T) {
	files := createTestFiles(t, "1", "2", "3", "4", "5")
	files = append(files, filepath.Join(t.TempDir(), "missing.pq"))

	var count atomic.Int32
	_, _ = MapFilesN(context.Background(), files, 2, parseLen, func() {
		count.Add(1)
	})

	if got := int(count.Load()); got != len(files) {
		t.Errorf("progress called %d times, want %d", got, len(files))
	}
}

func TestMapFilesN_Cancelled(t *testing.T) {
	files := createTestFiles(t, "1", "2", "3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results, errs := MapFilesN(ctx, files, 1, func(p *parser.Parser, path string) (int, error) {
		calls.Add(1)
		return 1, nil
	}, nil)

	if len(results) != 0 {
		t.Errorf("Expected no results after cancellation, got %v", results)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	if errs == nil || !errors.Is(errs, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", errs)
	}
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("empty collection should have no errors")
	}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.pq", errors.New("boom"))
	if errs.Error() != "a.pq: boom" {
		t.Errorf("Error() = %q, want %q", errs.Error(), "a.pq: boom")
	}

	errs.Add("b.pq", errors.New("bang"))
	if !strings.HasPrefix(errs.Error(), "2 files failed") {
		t.Errorf("Error() = %q, want a count prefix", errs.Error())
	}
}
