// Package generation implements the HTTP client for the three remote
// generation endpoints. Each stage is an independent request/response webhook
// accepting a JSON payload of named string fields and returning a single text
// field. Timeout and retry policy live in the pipeline service; this client
// only performs one exchange and classifies its failure.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/postpilot/content-system/internal/api/metrics"
	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// postGoal describes the reaction the generated post should provoke; it is
// part of the generation endpoint's contract.
const postGoal = "make the reader feel something and want to react"

// Endpoints carries the three stage webhook URLs.
type Endpoints struct {
	Niche string
	Topic string
	Post  string
}

// Client is the HTTP implementation of ports.StageClient.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	language  string
	logger    zerolog.Logger
}

// NewClient builds a stage client. The http.Client carries no timeout of its
// own: callers bound each exchange through ctx.
func NewClient(endpoints Endpoints, language string, logger zerolog.Logger) *Client {
	if language == "" {
		language = "en"
	}
	return &Client{
		http:      &http.Client{},
		endpoints: endpoints,
		language:  language,
		logger:    logger,
	}
}

type nicheRequest struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type topicRequest struct {
	Action   string `json:"action"`
	Topic    string `json:"topic"`
	Niche    string `json:"niche"`
	Language string `json:"language"`
}

type postRequest struct {
	Action     string `json:"action"`
	Niche      string `json:"niche"`
	Topic      string `json:"topic"`
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
	PostGoal   string `json:"post_goal"`
	Language   string `json:"language"`
}

type stageResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

func (c *Client) DetectNiche(ctx context.Context, description string) (string, error) {
	return c.call(ctx, domain.StageNiche, c.endpoints.Niche, nicheRequest{
		Action:      "detect_niche",
		Description: description,
		Language:    c.language,
	})
}

func (c *Client) AdaptTopic(ctx context.Context, topic, niche string) (string, error) {
	return c.call(ctx, domain.StageTopic, c.endpoints.Topic, topicRequest{
		Action:   "adapt_topic",
		Topic:    topic,
		Niche:    niche,
		Language: c.language,
	})
}

func (c *Client) GeneratePost(ctx context.Context, prompt ports.PostPrompt) (string, error) {
	return c.call(ctx, domain.StagePost, c.endpoints.Post, postRequest{
		Action:     "generate_post",
		Niche:      prompt.Niche,
		Topic:      prompt.Topic,
		Question:   prompt.Question,
		UserAnswer: prompt.Answer,
		PostGoal:   postGoal,
		Language:   c.language,
	})
}

// call performs one JSON exchange with a stage endpoint and classifies any
// failure into a *domain.StageError so the pipeline can apply its policy.
func (c *Client) call(ctx context.Context, stage domain.Stage, url string, payload any) (string, error) {
	start := time.Now()
	text, err := c.exchange(ctx, stage, url, payload)
	outcome := "ok"
	if err != nil {
		var se *domain.StageError
		if errors.As(err, &se) {
			outcome = string(se.Kind)
		} else {
			outcome = "error"
		}
	}
	metrics.StageCallDuration.WithLabelValues(string(stage), outcome).Observe(time.Since(start).Seconds())
	return text, err
}

func (c *Client) exchange(ctx context.Context, stage domain.Stage, url string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", domain.NewStageError(stage, domain.StageFatal, fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.NewStageError(stage, domain.StageFatal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", domain.NewStageError(stage, domain.StageTimeout, err)
		}
		// Connection-level failures are worth one more attempt.
		return "", domain.NewStageError(stage, domain.StageTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.NewStageError(stage, domain.StageTransient, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 500:
		return "", domain.NewStageError(stage, domain.StageTransient,
			fmt.Errorf("endpoint returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", domain.NewStageError(stage, domain.StageFatal,
			fmt.Errorf("endpoint returned %d", resp.StatusCode))
	}

	var sr stageResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", domain.NewStageError(stage, domain.StageFatal, fmt.Errorf("decode response: %w", err))
	}
	if !sr.Success || sr.Text == "" {
		return "", domain.NewStageError(stage, domain.StageFatal, errors.New("endpoint returned empty result"))
	}

	c.logger.Debug().Str("stage", string(stage)).Int("chars", len(sr.Text)).Msg("stage call completed")
	return sr.Text, nil
}
