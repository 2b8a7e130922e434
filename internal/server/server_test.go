package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
)

type testApp struct {
	app        *app.App
	camera     *capture.MockCamera
	classifier *classifier.Mock
	clock      *translate.ManualClock
}

// newTestApp creates an initialized App over mocks and an in-memory store.
func newTestApp(t *testing.T, camera *capture.MockCamera) *testApp {
	t.Helper()

	vocab, _ := gesture.NewVocabulary(gesture.DefaultLabels...)

	s, err := store.New(store.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if camera == nil {
		camera = capture.NewMockCamera(nil, false)
	}

	ta := &testApp{
		camera:     camera,
		classifier: classifier.NewMock(vocab.Len()),
		clock:      translate.NewManualClock(),
	}

	a, err := app.New(app.Config{
		Vocabulary: vocab,
		Source:     ta.camera,
		Classifier: ta.classifier,
		Store:      s,
		Clock:      ta.clock,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	ta.app = a
	return ta
}

func get(s http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := get(s, "/api/health")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthDegraded(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.classifier.SetLoadError(errors.New("no model"))
	ta.app.Init(context.Background())

	rec := get(New(Config{App: ta.app}), "/api/health")

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "degraded" || response["ready"] != false {
		t.Errorf("unexpected health %v", response)
	}
	if response["state"] != "idle" {
		t.Errorf("expected state idle, got %v", response["state"])
	}
}

func TestServer_Routes(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.app.Init(context.Background())
	s := New(Config{App: ta.app, Hub: NewHub(nil, nil)})

	for _, target := range []string{"/api/classes", "/api/translation", "/api/translations"} {
		if rec := get(s, target); rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected status %d, got %d", target, http.StatusOK, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/classes/0/examples", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("POST examples: expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	// Not a websocket handshake
	if rec := get(s, "/api/events"); rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/events: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, target := range []string{"/api/nonexistent", "/api/classes", "/"} {
		if rec := get(s, target); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status %d, got %d", target, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	tests := []struct {
		target     string
		wantStatus int
		wantBody   string
	}{
		{target: "/", wantStatus: http.StatusOK, wantBody: testContent},
		{target: "/style.css", wantStatus: http.StatusOK, wantBody: cssContent},
		{target: "/nonexistent.html", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := get(s, tt.target)
		if rec.Code != tt.wantStatus {
			t.Errorf("GET %s: expected status %d, got %d", tt.target, tt.wantStatus, rec.Code)
		}
		if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
			t.Errorf("GET %s: expected body %q, got %q", tt.target, tt.wantBody, rec.Body.String())
		}
	}
}

func TestServer_ShutdownWithoutListen(t *testing.T) {
	s := New(Config{Hub: NewHub(nil, nil)})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
