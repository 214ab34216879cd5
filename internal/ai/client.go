package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to the OpenAI HTTP API for the three enrichment stages:
// speech-to-text, summarization and caller-name extraction.
//
// All three are fail-soft in the pipeline, so requests stay on short timeouts
// and a small retry budget; a degraded model must never block voicemail capture.
type Client struct {
	apiKey          string
	chatModel       string
	transcribeModel string
	baseURL         string

	http *http.Client
}

func NewClient(apiKey, chatModel, transcribeModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:          apiKey,
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
		baseURL:         "https://api.openai.com",
		http:            &http.Client{Timeout: timeout},
	}
}

const summarizeInstruction = "You summarize voicemail transcripts for a small business owner. " +
	"Write one or two short sentences. Stay strictly faithful to what the caller said; " +
	"never invent details, names, or commitments that are not in the transcript."

const extractInstruction = "You extract the caller's own name from a voicemail transcript. " +
	"Only report a name when the caller explicitly introduces themselves " +
	"(for example \"my name is ...\" or \"this is ...\"). " +
	"Respond with JSON: {\"name\": string or null, \"confidence\": number between 0 and 1, " +
	"\"self_introduction\": boolean}. Use null when no self-introduction is present."

// Transcribe submits audio bytes to speech-to-text. Language is forced to
// English; the transcription model otherwise guesses badly on short clips.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "voicemail.mp3")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	_ = w.WriteField("model", c.transcribeModel)
	_ = w.WriteField("language", "en")
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/audio/transcriptions", bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var parsed struct {
		Text string `json:"text"`
	}
	if err := c.decodeJSON(req, &parsed); err != nil {
		return "", err
	}
	return strings.TrimSpace(parsed.Text), nil
}

// Summarize produces a short faithful summary of a transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	out, err := c.chatComplete(ctx, summarizeInstruction, transcript, false)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("ai: empty summary")
	}
	return out, nil
}

// NameExtraction is the structured extraction result.
type NameExtraction struct {
	Name             *string `json:"name"`
	Confidence       float64 `json:"confidence"`
	SelfIntroduction bool    `json:"self_introduction"`
}

// ExtractCallerName asks the model for a structured name extraction.
// Acceptance rules are applied by the caller via AcceptCallerName.
func (c *Client) ExtractCallerName(ctx context.Context, transcript string) (NameExtraction, error) {
	out, err := c.chatComplete(ctx, extractInstruction, transcript, true)
	if err != nil {
		return NameExtraction{}, err
	}
	var x NameExtraction
	if err := json.Unmarshal([]byte(out), &x); err != nil {
		return NameExtraction{}, fmt.Errorf("ai: decode extraction: %w", err)
	}
	return x, nil
}

func (c *Client) chatComplete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	reqBody := map[string]any{
		"model": c.chatModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.0,
	}
	if jsonMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err = c.retry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/chat/completions", bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return c.decodeJSONOnce(req, &parsed)
	})
	if err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai: no choices in response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) decodeJSON(req *http.Request, target any) error {
	// Transcription uploads are not retried; the multipart body is large and
	// the stage is fail-soft anyway.
	return c.decodeJSONOnce(req, target)
}

func (c *Client) decodeJSONOnce(req *http.Request, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("ai: server error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return backoff.Permanent(fmt.Errorf("ai: request failed %d: %s", resp.StatusCode, b))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return backoff.Permanent(fmt.Errorf("ai: decode response: %w", err))
	}
	return nil
}

func (c *Client) retry(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second

	return backoff.Retry(func() error {
		return op(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
}
