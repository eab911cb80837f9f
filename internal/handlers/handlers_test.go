package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmtsu/supablog/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errorBody(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestEnqueueTaskWithoutQueue(t *testing.T) {
	api := NewAPI(config.DefaultConfig().API, nil, nil, testLogger())

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/tasks",
		strings.NewReader(`{"name":"tasks.example_task"}`))
	api.EnqueueTask(recorder, request)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	if got := errorBody(t, recorder); got != "Task queue not configured" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestEnqueueTaskValidation(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"malformed json": {body: `{`, want: "Invalid request body"},
		"missing name":   {body: `{"payload":{}}`, want: "Task name required"},
	}
	api := NewAPI(config.DefaultConfig().API, nil, nil, testLogger())

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest("POST", "/api/v1/tasks", strings.NewReader(tc.body))
			api.EnqueueTask(recorder, request)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", recorder.Code)
			}
			if got := errorBody(t, recorder); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAuthRoutesWithoutProvider(t *testing.T) {
	handler := NewAuth(nil, testLogger())

	recorder := httptest.NewRecorder()
	handler.Logout(recorder, httptest.NewRequest("POST", "/auth/logout", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	if got := errorBody(t, recorder); got != "Internal server error" {
		t.Fatalf("unexpected body %q", got)
	}

	// Input validation still runs before the provider is consulted.
	recorder = httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/auth/login",
		strings.NewReader(`{"email":"ada@example.com"}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if got := errorBody(t, recorder); got != "Email and password required" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestBlogRoutesWithoutDatabase(t *testing.T) {
	handler := NewBlog(nil, testLogger())

	recorder := httptest.NewRecorder()
	handler.ListPosts(recorder, httptest.NewRequest("GET", "/blog/api/posts", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	if got := errorBody(t, recorder); got != "Failed to fetch posts" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestQueryIntDefaults(t *testing.T) {
	cases := map[string]struct {
		url  string
		want int
	}{
		"absent":   {url: "/blog/api/posts", want: 10},
		"valid":    {url: "/blog/api/posts?limit=3", want: 3},
		"negative": {url: "/blog/api/posts?limit=-5", want: 10},
		"garbage":  {url: "/blog/api/posts?limit=abc", want: 10},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			request := httptest.NewRequest("GET", tc.url, nil)
			if got := queryInt(request, "limit", 10); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
