package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/audiobrief/internal/config"
	"github.com/phrazzld/audiobrief/internal/generation"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models used by the summarizer.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Summarizer implements generation.Summarizer with the Gemini API.
type Summarizer struct {
	logger     *slog.Logger
	config     config.LLMConfig
	prompt     *generation.PromptRenderer
	models     contentGenerator
	maxRetries int
	baseDelay  time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ generation.Summarizer = (*Summarizer)(nil)

// NewSummarizer creates a Gemini client from the LLM configuration.
func NewSummarizer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Summarizer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newSummarizer(logger, cfg, client.Models)
}

func newSummarizer(logger *slog.Logger, cfg config.LLMConfig, models contentGenerator) (*Summarizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompt, err := generation.NewPromptRenderer(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	baseDelaySeconds := cfg.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		logger.Warn("invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	return &Summarizer{
		logger:     logger.With("component", "gemini_summarizer", "model", cfg.ModelName),
		config:     cfg,
		prompt:     prompt,
		models:     models,
		maxRetries: maxRetries,
		baseDelay:  time.Duration(baseDelaySeconds) * time.Second,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Summarize implements generation.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, instructions, query string) (string, error) {
	userPrompt, err := s.prompt.Render(query)
	if err != nil {
		return "", err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(s.config.Temperature),
		MaxOutputTokens: s.config.MaxOutputTokens,
	}
	if instructions != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		}
	}

	return s.callWithRetry(ctx, genai.Text(userPrompt), genConfig)
}

// callWithRetry makes the API call with exponential backoff for transient
// errors. Permanent errors are returned immediately.
func (s *Summarizer) callWithRetry(
	ctx context.Context,
	contents []*genai.Content,
	genConfig *genai.GenerateContentConfig,
) (string, error) {
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		s.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", s.maxRetries+1)

		resp, err := s.models.GenerateContent(ctx, s.config.ModelName, contents, genConfig)
		text, err := s.interpret(ctx, resp, err)
		if err == nil {
			s.logger.InfoContext(ctx, "Gemini API call successful",
				"attempt", attemptNum,
				"response_length", len(text))
			return text, nil
		}

		if !errors.Is(err, generation.ErrTransientFailure) {
			s.logger.WarnContext(ctx, "permanent error from Gemini API, not retrying",
				"attempt", attemptNum,
				"error", err)
			return "", err
		}

		if attempt >= s.maxRetries {
			s.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", s.maxRetries,
				"error", err)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, s.maxRetries, err)
		}

		delay := s.backoff(attempt)
		s.logger.InfoContext(ctx, "retrying Gemini API call after delay",
			"attempt", attemptNum,
			"delay", delay.String(),
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", contextError(ctx.Err())
		}
	}
}

// interpret classifies one API round trip. Transient failures are wrapped
// with generation.ErrTransientFailure.
func (s *Summarizer) interpret(
	ctx context.Context,
	resp *genai.GenerateContentResponse,
	err error,
) (string, error) {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", contextError(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", contextError(err)
		}
		return "", classifyAPIError(err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s",
				generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: response contains no text", generation.ErrInvalidResponse)
	}

	return text.String(), nil
}

// classifyAPIError treats rate limiting, server errors and transport
// failures as transient. Other HTTP status codes are permanent.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
		default:
			return fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", generation.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("summarize cancelled: %w", err)
}

// backoff returns baseDelay * 2^attempt scaled by a jitter factor in [0.5, 1.0).
func (s *Summarizer) backoff(attempt int) time.Duration {
	s.rngMu.Lock()
	jitter := 0.5 + s.rng.Float64()*0.5
	s.rngMu.Unlock()

	return time.Duration(float64(s.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}
