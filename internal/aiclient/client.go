package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tksa/ai-receptionist/internal/resilience"
)

// Client is a stateless wrapper over the AI provider's chat/TTS/STT
// endpoints. It is safe for concurrent use: all mutable state lives in the
// per-upstream circuit breakers, mirroring the teacher's
// stateless-client-plus-breaker shape.
type Client struct {
	raw *openai.Client

	chatModel   string
	ttsModel    string
	ttsVoice    string
	sttModel    string
	sttLanguage string

	chatBreaker *resilience.CircuitBreaker
	ttsBreaker  *resilience.CircuitBreaker
	sttBreaker  *resilience.CircuitBreaker

	retryConfig *resilience.RetryConfig
}

// Config configures a new Client.
type Config struct {
	APIKey      string
	ChatModel   string
	TTSModel    string
	TTSVoice    string
	STTModel    string
	STTLanguage string

	CircuitBreakerMaxFailures  int
	CircuitBreakerResetTimeout time.Duration
	RetryMaxAttempts           int
	RetryInitialBackoff        time.Duration
}

// New builds a Client from Config.
func New(cfg Config) *Client {
	maxFailures := cfg.CircuitBreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.CircuitBreakerResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return &Client{
		raw:         openai.NewClient(cfg.APIKey),
		chatModel:   cfg.ChatModel,
		ttsModel:    cfg.TTSModel,
		ttsVoice:    cfg.TTSVoice,
		sttModel:    cfg.STTModel,
		sttLanguage: cfg.STTLanguage,

		chatBreaker: resilience.NewCircuitBreaker("openai-chat", maxFailures, resetTimeout),
		ttsBreaker:  resilience.NewCircuitBreaker("openai-tts", maxFailures, resetTimeout),
		sttBreaker:  resilience.NewCircuitBreaker("openai-stt", maxFailures, resetTimeout),

		retryConfig: &resilience.RetryConfig{
			MaxAttempts:       maxAttempts(cfg.RetryMaxAttempts),
			InitialBackoff:    initialBackoff(cfg.RetryInitialBackoff),
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

func maxAttempts(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

func initialBackoff(d time.Duration) time.Duration {
	if d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Synthesize turns text into WAV audio bytes via the provider's speech
// endpoint. Callers are expected to go through ttscache rather than calling
// this directly for anything spoken more than once.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var audio []byte

	err := resilience.Retry(func() error {
		return c.chatBreakerCall(c.ttsBreaker, func() error {
			resp, err := c.raw.CreateSpeech(ctx, openai.CreateSpeechRequest{
				Model:          openai.SpeechModel(c.ttsModel),
				Input:          text,
				Voice:          openai.SpeechVoice(c.ttsVoice),
				ResponseFormat: openai.SpeechResponseFormatWav,
			})
			if err != nil {
				return classify("synthesize", statusCode(err), err)
			}
			defer resp.Close()

			data, err := io.ReadAll(resp)
			if err != nil {
				return classify("synthesize", 0, err)
			}
			audio = data
			return nil
		})
	}, c.retryConfig, IsTransient)

	if err != nil {
		return nil, err
	}
	return audio, nil
}

// Transcribe sends the audio file at path to the provider's transcription
// endpoint and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, path, language string) (string, error) {
	if language == "" {
		language = c.sttLanguage
	}

	var text string
	err := resilience.Retry(func() error {
		return c.chatBreakerCall(c.sttBreaker, func() error {
			f, err := os.Open(path)
			if err != nil {
				return classify("transcribe", 0, err)
			}
			defer f.Close()

			resp, err := c.raw.CreateTranscription(ctx, openai.AudioRequest{
				Model:    c.sttModel,
				FilePath: path,
				Reader:   f,
				Language: language,
			})
			if err != nil {
				return classify("transcribe", statusCode(err), err)
			}
			text = resp.Text
			return nil
		})
	}, c.retryConfig, IsTransient)

	if err != nil {
		return "", err
	}
	return text, nil
}

// Classify asks the chat model a plain-text question: systemPrompt sets the
// task, userText is the caller's utterance, and the model's free-text reply
// is returned unparsed.
func (c *Client) Classify(ctx context.Context, systemPrompt, userText string, temperature float32) (string, error) {
	var reply string

	err := resilience.Retry(func() error {
		return c.chatBreakerCall(c.chatBreaker, func() error {
			resp, err := c.raw.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: c.chatModel,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: userText},
				},
				Temperature: temperature,
			})
			if err != nil {
				return classify("classify", statusCode(err), err)
			}
			if len(resp.Choices) == 0 {
				return classify("classify", 0, errors.New("no choices returned"))
			}
			reply = resp.Choices[0].Message.Content
			return nil
		})
	}, c.retryConfig, IsTransient)

	if err != nil {
		return "", err
	}
	return reply, nil
}

// ClassifyJSON asks the chat model to reply in JSON-only mode and unmarshals
// the first choice's content into a generic map.
func (c *Client) ClassifyJSON(ctx context.Context, messages []Message, temperature float32) (map[string]any, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	var raw string
	err := resilience.Retry(func() error {
		return c.chatBreakerCall(c.chatBreaker, func() error {
			resp, err := c.raw.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.chatModel,
				Messages:    chatMessages,
				Temperature: temperature,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return classify("classify_json", statusCode(err), err)
			}
			if len(resp.Choices) == 0 {
				return classify("classify_json", 0, errors.New("no choices returned"))
			}
			raw = resp.Choices[0].Message.Content
			return nil
		})
	}, c.retryConfig, IsTransient)

	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("aiclient: unparseable JSON reply: %w", err)
	}
	return parsed, nil
}

// chatBreakerCall routes a call through the given breaker. It records no
// metrics of its own.
func (c *Client) chatBreakerCall(breaker *resilience.CircuitBreaker, fn func() error) error {
	return breaker.Call(fn)
}

// statusCode extracts the HTTP status code from a go-openai error, if any.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
