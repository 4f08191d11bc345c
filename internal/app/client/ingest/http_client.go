package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"spratt/internal/app/client/staging"
)

const (
	defaultTimeout = 60 * time.Second
	userAgent      = "Spratt-Client/1.0"

	HeaderClientRecordingID = "X-Client-Recording-ID"
	HeaderCapturedAt        = "X-Captured-At"
	HeaderMetadata          = "X-Recording-Metadata"
)

var (
	ErrRemoteIngest = errors.New("remote ingest failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
)

// Receipt подтверждение сервера о приеме записи
type Receipt struct {
	ID                  string `json:"id"`
	ClientRecordingID   string `json:"client_recording_id"`
	StorageKey          string `json:"storage_key"`
	TranscriptionStatus string `json:"transcription_status"`
}

// RemoteRecording запись на сервере
type RemoteRecording struct {
	ID                  string            `json:"id"`
	ClientRecordingID   string            `json:"client_recording_id"`
	MimeType            string            `json:"mime_type"`
	SizeBytes           int64             `json:"size_bytes"`
	CapturedAt          time.Time         `json:"captured_at"`
	TranscriptionStatus string            `json:"transcription_status"`
	Transcription       string            `json:"transcription,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// RemoteAction действие, извлеченное из расшифровки
type RemoteAction struct {
	ID          string            `json:"id"`
	RecordingID string            `json:"recording_id"`
	ActionType  string            `json:"action_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Client HTTP клиент сервера приема записей
type Client struct {
	client  *http.Client
	log     *slog.Logger
	baseURL string

	mu    sync.RWMutex
	token string
}

func New(baseURL string, log *slog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:     log.With("component", "ingest_client"),
		baseURL: baseURL,
	}
}

// SetToken устанавливает токен аутентификации
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) authToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HealthCheck проверяет доступность сервера
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrServer, resp.StatusCode)
	}

	return nil
}

// Ingest отправляет запись на сервер. Любая ошибка оборачивает ErrRemoteIngest.
func (c *Client) Ingest(ctx context.Context, rec staging.StagedRecording) (Receipt, error) {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: marshal metadata: %v", ErrRemoteIngest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/recordings", rec.Audio.Reader())
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: create request: %v", ErrRemoteIngest, err)
	}
	req.ContentLength = rec.Audio.Size()
	req.Header.Set("Content-Type", rec.MimeType())
	req.Header.Set(HeaderClientRecordingID, rec.ID)
	req.Header.Set(HeaderCapturedAt, strconv.FormatInt(rec.CapturedAtMs, 10))
	req.Header.Set(HeaderMetadata, string(metaJSON))
	c.decorate(req)

	c.log.Debug("uploading recording", "id", rec.ID, "bytes", rec.Audio.Size())

	resp, err := c.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrRemoteIngest, err)
	}

	var body struct {
		envelope
		Data Receipt `json:"data"`
	}
	if err := c.parseResponse(resp, &body); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrRemoteIngest, err)
	}
	if err := body.err(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrRemoteIngest, err)
	}

	return body.Data, nil
}

func (c *Client) Register(ctx context.Context, login, password string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", credentials{Login: login, Password: password})
	if err != nil {
		return err
	}

	var body envelope
	if err := c.parseResponse(resp, &body); err != nil {
		return err
	}
	return body.err()
}

// Login возвращает токен сессии и запоминает его в клиенте
func (c *Client) Login(ctx context.Context, login, password string) (string, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", credentials{Login: login, Password: password})
	if err != nil {
		return "", err
	}

	var body struct {
		envelope
		Token string `json:"token"`
	}
	if err := c.parseResponse(resp, &body); err != nil {
		return "", err
	}
	if err := body.err(); err != nil {
		return "", err
	}

	c.SetToken(body.Token)
	return body.Token, nil
}

func (c *Client) ListRecordings(ctx context.Context) ([]RemoteRecording, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/v1/recordings", nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		envelope
		Data []RemoteRecording `json:"data"`
	}
	if err := c.parseResponse(resp, &body); err != nil {
		return nil, err
	}
	if err := body.err(); err != nil {
		return nil, err
	}

	return body.Data, nil
}

func (c *Client) ListActions(ctx context.Context, status string) ([]RemoteAction, error) {
	path := "/api/v1/actions"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	resp, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		envelope
		Data []RemoteAction `json:"data"`
	}
	if err := c.parseResponse(resp, &body); err != nil {
		return nil, err
	}
	if err := body.err(); err != nil {
		return nil, err
	}

	return body.Data, nil
}

// DecideAction одобряет или отклоняет действие (decision: approved|rejected)
func (c *Client) DecideAction(ctx context.Context, id, decision string) error {
	req := struct {
		Decision string `json:"decision"`
	}{Decision: decision}

	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/actions/"+url.PathEscape(id)+"/decision", req)
	if err != nil {
		return err
	}

	var body envelope
	if err := c.parseResponse(resp, &body); err != nil {
		return err
	}
	return body.err()
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// envelope общий формат ответа сервера
type envelope struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (e envelope) err() error {
	if e.Status == "Error" {
		return fmt.Errorf("%w: %s", ErrServer, e.Error)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if token := c.authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	c.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("response received", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Error != "" {
				return fmt.Errorf("%w: %s", ErrServer, errResp.Error)
			}
			if errResp.Detail != "" {
				return fmt.Errorf("%w: %s", ErrServer, errResp.Detail)
			}
		}
		return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
