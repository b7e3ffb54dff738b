// internal/classifier/classifier.go

// Package classifier turns a clinic's page text into a structured
// patient-acceptance judgment through an external generative model. All
// failures of the call or of parsing are recorded as an ERROR result; the
// surrounding pipeline never sees them as errors.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

type Classifier struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func New(config *Config, log logger.Logger) *Classifier {
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	return &Classifier{
		config: config,
		// No client-level timeout; the per-call context carries the budget.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "classifier"}),
	}
}

// Classify submits the text blob to the model and returns the coerced
// judgment. The returned Result always has a valid status; on any failure
// it is ERROR with a diagnostic reason.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	raw, err := c.generate(ctx, buildPrompt(text))
	if err != nil {
		c.logger.WithError(scouterrors.NewClassificationFailedError(err)).
			Warn("classification call failed", nil)
		return errorResult(fmt.Sprintf("Analysis failed: %v", err))
	}

	result, err := parseResult(raw)
	if err != nil {
		c.logger.WithError(scouterrors.NewClassificationFailedError(err)).
			Warn("classification parse failed", nil)
		return errorResult(fmt.Sprintf("Analysis failed: %v", err))
	}

	return result
}

// generate POSTs the prompt to the model endpoint with bounded retries and
// exponential backoff.
func (c *Classifier) generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"temperature": 0.0,
	}
	body, _ := json.Marshal(requestBody)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/ai/generate", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		var apiResponse struct {
			Text string `json:"text"`
		}
		err = json.NewDecoder(resp.Body).Decode(&apiResponse)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decode error: %w", err)
			continue
		}

		return apiResponse.Text, nil
	}

	return "", fmt.Errorf("no successful response after retries: %w", lastErr)
}
