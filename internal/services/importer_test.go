package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizarena-backend/internal/models"
)

const openTDBBatch = `{
  "response_code": 0,
  "results": [
    {
      "category": "Science &amp; Nature",
      "type": "multiple",
      "difficulty": "easy",
      "question": "What is the chemical symbol for &quot;gold&quot;?",
      "correct_answer": "Au",
      "incorrect_answers": ["Ag", "Gd", "Go"]
    },
    {
      "category": "Science &amp; Nature",
      "type": "boolean",
      "difficulty": "easy",
      "question": "The sun is a star.",
      "correct_answer": "True",
      "incorrect_answers": ["False"]
    }
  ]
}`

func newTriviaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openTDBBatch))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code": 1, "results": []}`))
	})
	mux.HandleFunc("/token-error", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code": 3, "results": []}`))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenTDBSource_DecodesAndUnescapes(t *testing.T) {
	srv := newTriviaServer(t)
	src := NewOpenTDBSource(models.ImportSource{Name: "ok", URL: srv.URL + "/ok"}, srv.Client())

	raw, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(raw))
	}
	if raw[0].Category != "Science & Nature" {
		t.Errorf("Expected unescaped category, got %q", raw[0].Category)
	}
	if raw[0].Question != `What is the chemical symbol for "gold"?` {
		t.Errorf("Expected unescaped question, got %q", raw[0].Question)
	}
}

func TestOpenTDBSource_ResponseCodes(t *testing.T) {
	srv := newTriviaServer(t)

	empty := NewOpenTDBSource(models.ImportSource{Name: "empty", URL: srv.URL + "/empty"}, srv.Client())
	raw, err := empty.Fetch(context.Background())
	if err != nil || len(raw) != 0 {
		t.Errorf("Expected empty batch without error, got %d records (%v)", len(raw), err)
	}

	for _, path := range []string{"/token-error", "/down"} {
		src := NewOpenTDBSource(models.ImportSource{Name: path, URL: srv.URL + path}, srv.Client())
		_, err := src.Fetch(context.Background())
		var serr *SourceError
		if !errors.As(err, &serr) {
			t.Errorf("%s: expected SourceError, got %v", path, err)
		}
	}
}

func TestImporter_SkipsBadRecordsAndContinuesPastFailures(t *testing.T) {
	srv := newTriviaServer(t)
	_, rdb := newTestRedis(t)
	store := newFakeQuestions()
	im := NewImporter(store, nil, rdb, time.Minute, discardLogger())
	im.shuffle = func([]string) {}

	sources := SourcesFrom([]models.ImportSource{
		{Name: "down", URL: srv.URL + "/down"},
		{Name: "ok", URL: srv.URL + "/ok"},
	}, srv.Client())

	reports, err := im.Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected a report per source, got %d", len(reports))
	}
	if reports[0].Err == "" {
		t.Error("Expected the failing source to be reported")
	}
	if reports[1].Fetched != 2 || reports[1].Imported != 1 || reports[1].Skipped != 1 {
		t.Errorf("Unexpected report for ok source: %+v", reports[1])
	}

	if len(store.inserted) != 1 || len(store.inserted[0]) != 1 {
		t.Fatalf("Expected one batch with one question, got %v", store.inserted)
	}
	q := store.inserted[0][0]
	if q.AdminCreated {
		t.Error("Expected imported question to not be admin-created")
	}
	if q.OptionA != "Au" || q.CorrectOption != "Au" {
		t.Errorf("Expected identity shuffle to keep Au first, got %+v", q)
	}

	imported, skipped, failed := Totals(reports)
	if imported != 1 || skipped != 1 || failed != 1 {
		t.Errorf("Unexpected totals %d/%d/%d", imported, skipped, failed)
	}
}

func TestImporter_RerunOnlyAdds(t *testing.T) {
	srv := newTriviaServer(t)
	_, rdb := newTestRedis(t)
	store := newFakeQuestions()
	im := NewImporter(store, nil, rdb, time.Minute, discardLogger())
	sources := SourcesFrom([]models.ImportSource{{Name: "ok", URL: srv.URL + "/ok"}}, srv.Client())

	if _, err := im.Run(context.Background(), sources); err != nil {
		t.Fatalf("first run: %v", err)
	}
	reports, err := im.Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if reports[0].Imported != 0 {
		t.Errorf("Expected re-run to add nothing, got %d", reports[0].Imported)
	}
}

func TestImporter_ShuffleKeepsCorrectText(t *testing.T) {
	srv := newTriviaServer(t)
	_, rdb := newTestRedis(t)
	store := newFakeQuestions()
	im := NewImporter(store, nil, rdb, time.Minute, discardLogger())
	im.shuffle = func(opts []string) { opts[0], opts[3] = opts[3], opts[0] }

	sources := SourcesFrom([]models.ImportSource{{Name: "ok", URL: srv.URL + "/ok"}}, srv.Client())
	if _, err := im.Run(context.Background(), sources); err != nil {
		t.Fatalf("run: %v", err)
	}
	q := store.inserted[0][0]
	if q.OptionD != "Au" || q.CorrectOption != "Au" || !q.IsCorrect(q.OptionD) {
		t.Errorf("Expected correct text to follow its option, got %+v", q)
	}
}

func TestImporter_LockExcludesConcurrentRun(t *testing.T) {
	mr, rdb := newTestRedis(t)
	im := NewImporter(newFakeQuestions(), nil, rdb, time.Minute, discardLogger())

	mr.Set(importLockKey, "someone-else")

	_, err := im.Run(context.Background(), nil)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError while locked, got %v", err)
	}

	mr.Del(importLockKey)
	if _, err := im.Run(context.Background(), nil); err != nil {
		t.Fatalf("run after unlock: %v", err)
	}
	if mr.Exists(importLockKey) {
		t.Error("Expected lock to be released after run")
	}
}
