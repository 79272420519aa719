package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
)

func newTestRouter() chi.Router {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Use(Recoverer())
	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	router.Get("/panic-error", func(http.ResponseWriter, *http.Request) {
		panic(errors.New("typed boom"))
	})
	router.Get("/partial", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("after write")
	})
	return router
}

func decodeJSONProblem(t *testing.T, rec *httptest.ResponseRecorder) huma.ErrorModel {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != contentTypeProblemJSON {
		t.Fatalf("expected %s, got %q", contentTypeProblemJSON, ct)
	}
	var problem huma.ErrorModel
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	return problem
}

func TestNotFoundHandlerReturnsProblemDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	problem := decodeJSONProblem(t, rec)
	if problem.Status != http.StatusNotFound || problem.Title != "Not Found" || problem.Detail != msgNotFound {
		t.Fatalf("unexpected problem: %+v", problem)
	}
}

func TestMethodNotAllowedHandlerReturnsProblemDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Fatalf("expected Allow GET, got %q", allow)
	}
	problem := decodeJSONProblem(t, rec)
	if problem.Status != http.StatusMethodNotAllowed || problem.Title != "Method Not Allowed" {
		t.Fatalf("unexpected problem: %+v", problem)
	}
	if problem.Detail != "method POST not allowed" {
		t.Fatalf("unexpected detail: %s", problem.Detail)
	}
}

func TestRecovererReturnsProblemDetails(t *testing.T) {
	for _, path := range []string{"/panic", "/panic-error"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			problem := decodeJSONProblem(t, rec)
			if problem.Detail != msgInternalServerErr {
				t.Fatalf("unexpected detail: %s", problem.Detail)
			}
			if strings.Contains(rec.Body.String(), "boom") {
				t.Fatalf("panic value leaked into response: %s", rec.Body.String())
			}
		})
	}
}

func TestRecovererKeepsStartedResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected original 200 to be preserved, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "partial" {
		t.Fatalf("expected original body, got %q", body)
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	h := Recoverer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to propagate, got %v", rec)
		}
	}()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate")
}

func TestWriteProblemNegotiatesCBOR(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	req.Header.Set("Accept", "application/cbor")
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != contentTypeProblemCBOR {
		t.Fatalf("expected %s, got %q", contentTypeProblemCBOR, ct)
	}
	var problem huma.ErrorModel
	if err := cbor.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if problem.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", problem.Status)
	}
}

func TestWriteProblemVaryNotDuplicated(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Add("Vary", "Origin, Accept")
	WriteProblem(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTooManyRequests, "slow down", nil)

	count := 0
	for _, v := range rec.Header().Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			if strings.TrimSpace(part) == "Accept" {
				count++
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected Accept once in Vary, got %v", rec.Header().Values("Vary"))
	}
}

func TestWriteProblemDoesNotEscapeHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, "<bad> & worse", nil)

	if body := rec.Body.String(); !strings.Contains(body, "<bad> & worse") {
		t.Fatalf("expected unescaped detail, got %s", body)
	}
}

func TestAllowedMethodsWithoutRouteContext(t *testing.T) {
	if got := allowedMethods(httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("expected nil without chi route context, got %v", got)
	}
}

func TestPrefersCBOR(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/*", false},
		{"text/plain", false},
		{"application/json", false},
		{"application/cbor", true},
		{"application/problem+cbor", true},
		{"application/json, application/cbor", false},
		{"application/cbor, application/json", false},
		{"application/json;q=0.5, application/cbor", true},
		{"application/cbor;q=0.9, application/json;q=0.8", true},
		{"application/cbor;q=0.4, application/json;q=0.8", false},
		{"text/html, application/cbor;q=0.1", true},
	}

	for _, tt := range tests {
		if got := prefersCBOR(tt.accept); got != tt.want {
			t.Errorf("prefersCBOR(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}
