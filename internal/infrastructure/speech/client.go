package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

const (
	recognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"
	keyHeader       = "Ocp-Apim-Subscription-Key"

	DefaultLanguage = "en-AU"

	statusSuccess = "Success"
	statusNoMatch = "NoMatch"
)

var (
	ErrRecognition  = errors.New("speech recognition failed")
	ErrUnauthorized = errors.New("speech service rejected credentials")
)

type Config struct {
	Endpoint string
	Key      string
	Language string
	Timeout  time.Duration
}

// Client клиент REST распознавания коротких аудио
type Client struct {
	http     *http.Client
	endpoint string
	key      string
	language string
	log      *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		key:      cfg.Key,
		language: cfg.Language,
		log:      log.With("component", "speech_client"),
	}
}

type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

// Transcribe отправляет аудио на распознавание. Тишина дает пустую строку без ошибки.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, mimeType string) (string, error) {
	q := url.Values{}
	q.Set("language", c.language)
	q.Set("format", "simple")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+recognitionPath+"?"+q.Encode(), audio)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(keyHeader, c.key)
	req.Header.Set("Content-Type", contentType(mimeType))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d: %s", ErrRecognition, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result recognitionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	c.log.Debug("recognition finished", "status", result.RecognitionStatus, "chars", len(result.DisplayText))

	switch result.RecognitionStatus {
	case statusSuccess:
		return result.DisplayText, nil
	case statusNoMatch:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrRecognition, result.RecognitionStatus)
	}
}

// contentType приводит тип записи к форматам, которые принимает сервис
func contentType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/ogg", "audio/webm":
		return "audio/ogg; codecs=opus"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio/wav; codecs=audio/pcm; samplerate=16000"
	case "":
		return "application/octet-stream"
	default:
		return base
	}
}
