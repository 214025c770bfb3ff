package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

const defaultUploadTimeout = 30 * time.Second

// HTTPExecutor — executor для task типа "http": выгрузка payload
// на HTTP endpoint (bulk upload, bulk API call).
//
// Config (из task.Payload):
//   - url (string): endpoint выгрузки (обязательно)
//   - method (string): HTTP-метод. Default: POST
//   - content (string): тело запроса как есть
//   - body (any): тело запроса, сериализуется в JSON (если нет content)
//   - headers (map[string]any): HTTP-заголовки
//   - timeout_sec (number): таймаут попытки. Default: 30
//
// Outputs:
//   - status_code (int): HTTP-код ответа
//   - bytes_sent (int): размер выгруженного тела
//   - response (any): тело ответа (JSON или строка, до 64 KiB)
//
// Классификация ошибок:
//   - невалидный config — validation (терминально, без retry)
//   - транспортная ошибка, таймаут, 408/429/5xx — transient
//   - остальные 4xx — validation: сервер отверг payload
type HTTPExecutor struct {
	client *http.Client
}

// NewHTTPExecutor создаёт HTTPExecutor с общим http.Client.
func NewHTTPExecutor() *HTTPExecutor {
	return &HTTPExecutor{client: &http.Client{}}
}

const maxResponseBytes = 64 * 1024

// Execute выполняет выгрузку.
func (e *HTTPExecutor) Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) (*Result, error) {
	url := getString(task.Payload, "url", "")
	if url == "" {
		return nil, Validation(fmt.Errorf("%w: url is required", ErrBadPayload))
	}
	method := getString(task.Payload, "method", http.MethodPost)

	body, err := requestBody(task.Payload)
	if err != nil {
		return nil, Validation(fmt.Errorf("%w: %v", ErrBadPayload, err))
	}

	ctx, cancel := context.WithTimeout(ctx, getTimeout(task.Payload))
	defer cancel()

	// Прогресс считаем по выгруженным байтам тела
	var reader io.Reader
	if len(body) > 0 {
		reader = &countingReader{
			r:        bytes.NewReader(body),
			total:    len(body),
			progress: progress,
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, Validation(fmt.Errorf("%w: create request: %v", ErrBadPayload, err))
	}
	req.ContentLength = int64(len(body))

	setHeaders(req, task.Payload)
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, attemptErr(ctx, fmt.Errorf("upload %s: %w", url, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, attemptErr(ctx, fmt.Errorf("read response: %w", err))
	}

	outputs := map[string]any{
		"status_code": resp.StatusCode,
		"bytes_sent":  len(body),
		"response":    parseBody(respBody),
	}

	switch {
	case resp.StatusCode < 400:
		return &Result{Outputs: outputs}, nil
	case retryableStatus(resp.StatusCode):
		return nil, Transient(fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	default:
		return nil, Validation(fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}
}

// attemptErr классифицирует транспортную ошибку попытки.
// Отмена batch'а приходит как context.Canceled — abort; собственный
// дедлайн попытки (timeout_sec) — transient, как любой другой таймаут.
func attemptErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return Aborted(ctx.Err())
	}
	return Transient(err)
}

// retryableStatus — HTTP-коды, при которых retry имеет смысл.
func retryableStatus(code int) bool {
	return code >= 500 ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}

// countingReader считает выгруженные байты и репортит процент.
type countingReader struct {
	r        io.Reader
	total    int
	sent     int
	progress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.total > 0 && c.progress != nil {
		c.sent += n
		c.progress(c.sent * 100 / c.total)
	}
	return n, err
}

// requestBody извлекает тело запроса из payload.
func requestBody(payload map[string]any) ([]byte, error) {
	if content, ok := payload["content"]; ok {
		s, ok := content.(string)
		if !ok {
			return nil, fmt.Errorf("content must be a string")
		}
		return []byte(s), nil
	}

	if body, ok := payload["body"]; ok && body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %v", err)
		}
		return data, nil
	}

	return nil, nil
}

// parseBody парсит тело ответа: пробуем JSON, иначе строка.
func parseBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	return parsed
}

// getString извлекает строку из map с default значением.
func getString(m map[string]any, key, defaultVal string) string {
	if val, ok := m[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// getTimeout извлекает таймаут попытки из payload.
func getTimeout(payload map[string]any) time.Duration {
	if val, ok := payload["timeout_sec"]; ok {
		switch v := val.(type) {
		case float64:
			if v > 0 {
				return time.Duration(v * float64(time.Second))
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Second
			}
		}
	}
	return defaultUploadTimeout
}

// setHeaders устанавливает заголовки из payload.
func setHeaders(req *http.Request, payload map[string]any) {
	headers, ok := payload["headers"]
	if !ok || headers == nil {
		return
	}

	switch h := headers.(type) {
	case map[string]any:
		for key, val := range h {
			if s, ok := val.(string); ok {
				req.Header.Set(key, s)
			}
		}
	case map[string]string:
		for key, val := range h {
			req.Header.Set(key, val)
		}
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
