package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient calls the native Ollama chat API (/api/chat).
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Format   string    `json:"format,omitempty"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// NewOllamaClient создает клиент локального Ollama с заданными параметрами.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &OllamaClient{
		baseURL: trimmedURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat отправляет сообщения в Ollama и возвращает текст ответа и сырой ответ API.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Format:   "json",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, err
	}

	endpoint := fmt.Sprintf("%s/api/chat", c.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", body, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, strings.TrimSpace(string(body)))
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", body, err
	}

	if parsed.Error != "" {
		return "", body, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, parsed.Error)
	}

	return parsed.Message.Content, body, nil
}
