package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// SchedulerConfig — параметры планировщика из API.
type SchedulerConfig struct {
	MaxConcurrency     int   `json:"max_concurrency,omitempty"`
	MinStartIntervalMS int64 `json:"min_start_interval_ms,omitempty"`
	MaxAttempts        int   `json:"max_attempts,omitempty"`
	BackoffBaseMS      int64 `json:"backoff_base_ms,omitempty"`
	BackoffCapMS       int64 `json:"backoff_cap_ms,omitempty"`
}

// BatchResponse — batch из API.
type BatchResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Config    SchedulerConfig `json:"config"`
	TaskCount int             `json:"task_count"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
	SettledAt string          `json:"settled_at,omitempty"`
}

// BatchSummary — счётчики терминальных статусов.
type BatchSummary struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// BatchDetailResponse — batch вместе с итогами.
type BatchDetailResponse struct {
	BatchResponse
	Summary BatchSummary `json:"summary"`
}

// TaskSnapshot — срез состояния task из API.
type TaskSnapshot struct {
	TaskID    string `json:"task_id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Attempt   int    `json:"attempt"`
	LastError string `json:"last_error,omitempty"`
}

// BatchRecordResponse — архивная запись batch'а.
type BatchRecordResponse struct {
	BatchResponse
	Summary BatchSummary   `json:"summary"`
	Tasks   []TaskSnapshot `json:"tasks,omitempty"`
}

// --- Request types ---

// SubmitBatchRequest — запуск batch'а.
type SubmitBatchRequest struct {
	Name   string            `json:"name,omitempty"`
	Config *SchedulerConfig  `json:"config,omitempty"`
	Tasks  []SubmitTaskEntry `json:"tasks"`
}

// SubmitTaskEntry — одна задача в запросе.
type SubmitTaskEntry struct {
	Name    string         `json:"name,omitempty"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для batchd API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Batches ---

// SubmitBatch отправляет новый batch.
func (c *Client) SubmitBatch(req SubmitBatchRequest) (*BatchResponse, error) {
	var batch BatchResponse
	err := c.post("/api/v1/batches", req, &batch)
	return &batch, err
}

// ListBatches возвращает все batch'и в реестре.
func (c *Client) ListBatches() ([]BatchResponse, error) {
	var batches []BatchResponse
	err := c.list("/api/v1/batches", nil, &batches)
	return batches, err
}

// GetBatch возвращает batch с итогами.
func (c *Client) GetBatch(id string) (*BatchDetailResponse, error) {
	var batch BatchDetailResponse
	err := c.get("/api/v1/batches/"+id, &batch)
	return &batch, err
}

// ListTasks возвращает срез tasks batch'а.
func (c *Client) ListTasks(batchID string) ([]TaskSnapshot, error) {
	var tasks []TaskSnapshot
	err := c.list("/api/v1/batches/"+batchID+"/tasks", nil, &tasks)
	return tasks, err
}

// CancelBatch запрашивает отмену batch'а.
func (c *Client) CancelBatch(id string) error {
	return c.post("/api/v1/batches/"+id+"/cancel", nil, nil)
}

// DismissBatch удаляет урегулированный batch из реестра.
func (c *Client) DismissBatch(id string) error {
	return c.delete("/api/v1/batches/" + id)
}

// --- History ---

// ListHistory возвращает последние записи архива.
func (c *Client) ListHistory(limit int) ([]BatchRecordResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var records []BatchRecordResponse
	err := c.list("/api/v1/history", params, &records)
	return records, err
}

// GetHistory возвращает архивную запись batch'а с tasks.
func (c *Client) GetHistory(id string) (*BatchRecordResponse, error) {
	var record BatchRecordResponse
	err := c.get("/api/v1/history/"+id, &record)
	return &record, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(lr.Data) == 0 || string(lr.Data) == "null" {
		return nil
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
