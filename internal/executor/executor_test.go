package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// --- Классификация ошибок ---

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"transient wrapper", Transient(errors.New("boom")), ClassTransient},
		{"validation wrapper", Validation(errors.New("bad")), ClassValidation},
		{"aborted wrapper", Aborted(context.Canceled), ClassAborted},
		{"bare context.Canceled", context.Canceled, ClassAborted},
		{"wrapped context.Canceled", fmt.Errorf("attempt: %w", context.Canceled), ClassAborted},
		{"deadline is transient", context.DeadlineExceeded, ClassTransient},
		{"unrecognized shape", errors.New("???"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Transient(errors.New("x"))) {
		t.Error("transient should be retryable")
	}
	if !IsRetryable(errors.New("unknown shape")) {
		t.Error("unknown should be conservatively retryable")
	}
	if IsRetryable(Validation(errors.New("x"))) {
		t.Error("validation should not be retryable")
	}
	if IsRetryable(Aborted(context.Canceled)) {
		t.Error("abort should not be retryable")
	}
}

// --- Registry ---

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()

	task := &domain.Task{ID: uuid.New(), Type: "ftp"}
	_, err := r.Execute(context.Background(), task, nil)

	if !errors.Is(err, ErrUnknownTaskType) {
		t.Fatalf("expected ErrUnknownTaskType, got %v", err)
	}
	// Неизвестный тип — терминальная ошибка, retry не поможет
	if ClassOf(err) != ClassValidation {
		t.Errorf("unknown type should classify as validation, got %s", ClassOf(err))
	}
}

// --- HTTPExecutor ---

func uploadTask(payload map[string]any) *domain.Task {
	return &domain.Task{ID: uuid.New(), Type: "http", Payload: payload}
}

func TestHTTPExecutor_Upload_Success(t *testing.T) {
	var receivedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "42"})
	}))
	defer server.Close()

	var lastPercent int
	executor := NewHTTPExecutor()
	task := uploadTask(map[string]any{
		"url":  server.URL,
		"body": map[string]any{"name": "doc.pdf"},
	})

	result, err := executor.Execute(context.Background(), task, func(p int) { lastPercent = p })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedBody["name"] != "doc.pdf" {
		t.Errorf("server should receive body, got %v", receivedBody)
	}
	if result.Outputs["status_code"] != http.StatusCreated {
		t.Errorf("expected 201, got %v", result.Outputs["status_code"])
	}
	if lastPercent != 100 {
		t.Errorf("progress should reach 100 after full upload, got %d", lastPercent)
	}

	resp, ok := result.Outputs["response"].(map[string]any)
	if !ok {
		t.Fatalf("response should be parsed JSON, got %T", result.Outputs["response"])
	}
	if resp["id"] != "42" {
		t.Errorf("expected id=42, got %v", resp["id"])
	}
}

func TestHTTPExecutor_ServerError_Transient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := NewHTTPExecutor()
	_, err := executor.Execute(context.Background(), uploadTask(map[string]any{"url": server.URL}), nil)

	if err == nil {
		t.Fatal("expected error for 503")
	}
	if ClassOf(err) != ClassTransient {
		t.Errorf("5xx should be transient, got %s", ClassOf(err))
	}
}

func TestHTTPExecutor_TooManyRequests_Transient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	executor := NewHTTPExecutor()
	_, err := executor.Execute(context.Background(), uploadTask(map[string]any{"url": server.URL}), nil)

	if ClassOf(err) != ClassTransient {
		t.Errorf("429 should be transient, got %s", ClassOf(err))
	}
}

func TestHTTPExecutor_Rejected_Validation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "payload rejected"}`))
	}))
	defer server.Close()

	executor := NewHTTPExecutor()
	_, err := executor.Execute(context.Background(), uploadTask(map[string]any{"url": server.URL}), nil)

	if err == nil {
		t.Fatal("expected error for 422")
	}
	if ClassOf(err) != ClassValidation {
		t.Errorf("422 should be validation, got %s", ClassOf(err))
	}
}

func TestHTTPExecutor_MissingURL_Validation(t *testing.T) {
	executor := NewHTTPExecutor()
	_, err := executor.Execute(context.Background(), uploadTask(map[string]any{}), nil)

	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if ClassOf(err) != ClassValidation {
		t.Errorf("missing url should be validation, got %s", ClassOf(err))
	}
}

func TestHTTPExecutor_Abort(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	executor := NewHTTPExecutor()
	go func() {
		_, err := executor.Execute(ctx, uploadTask(map[string]any{"url": server.URL}), nil)
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if ClassOf(err) != ClassAborted {
			t.Errorf("cancelled upload should classify as aborted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("executor did not observe cancellation in time")
	}
}

func TestHTTPExecutor_AttemptTimeout_Transient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	executor := NewHTTPExecutor()
	task := uploadTask(map[string]any{
		"url":         server.URL,
		"timeout_sec": 0.05,
	})

	// Контекст вызывающей стороны живой: истекает только собственный
	// дедлайн попытки. Это таймаут, а не отмена — retry имеет смысл.
	_, err := executor.Execute(context.Background(), task, nil)
	if err == nil {
		t.Fatal("expected error when attempt timeout expires")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ClassOf(err) != ClassTransient {
		t.Errorf("attempt timeout should be transient, got %s", ClassOf(err))
	}
	if IsAbort(err) {
		t.Error("attempt timeout must not look like cancellation")
	}
}

// --- DelayExecutor ---

func TestDelayExecutor_ReportsProgress(t *testing.T) {
	executor := &DelayExecutor{}
	task := &domain.Task{ID: uuid.New(), Type: "delay", Payload: map[string]any{"duration_ms": 50}}

	var percents []int
	result, err := executor.Execute(context.Background(), task, func(p int) {
		percents = append(percents, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outputs["delayed_ms"] != 50.0 {
		t.Errorf("expected delayed_ms=50, got %v", result.Outputs["delayed_ms"])
	}

	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("progress should end at 100, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress should be monotonic, got %v", percents)
		}
	}
}

func TestDelayExecutor_Abort(t *testing.T) {
	executor := &DelayExecutor{}
	task := &domain.Task{ID: uuid.New(), Type: "delay", Payload: map[string]any{"duration_ms": 10000}}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := executor.Execute(ctx, task, nil)

	if ClassOf(err) != ClassAborted {
		t.Fatalf("expected aborted, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("abort should be observed promptly")
	}
}
