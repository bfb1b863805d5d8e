// Package evaluation provides the HTTP client for the external
// code-evaluation service, composed from middleware for timeouts,
// retries, and rate limiting.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// EvaluationRequest is the payload posted to the evaluation service:
// the candidate submission plus the opposing field.
type EvaluationRequest struct {
	CandidateSubmission domain.Submission   `json:"candidateSubmission"`
	OtherSubmissions    []domain.Submission `json:"otherSubmissions"`
}

// CoreEvaluator is the minimal request executor the middleware wraps.
type CoreEvaluator interface {
	DoRequest(ctx context.Context, request EvaluationRequest) (*ports.EvaluationResults, error)
}

// Middleware wraps a CoreEvaluator with additional behavior.
type Middleware func(CoreEvaluator) CoreEvaluator

// Client implements ports.EvaluationClient over a middleware-wrapped
// HTTP evaluator.
type Client struct {
	core CoreEvaluator
}

// Config holds the settings for the evaluation-service client.
type Config struct {
	// Host is the evaluation service host:port.
	Host string

	// AuthToken is presented as a bearer token on every request.
	AuthToken string
}

// NewClient creates a Client for the given service, applying the
// middlewares outermost-first around the HTTP core.
func NewClient(cfg Config, middlewares ...Middleware) *Client {
	var core CoreEvaluator = &httpEvaluator{
		url:       fmt.Sprintf("http://%s/api/v1/evaluate-submission", cfg.Host),
		authToken: cfg.AuthToken,
		client:    http.DefaultClient,
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		core = middlewares[i](core)
	}
	return &Client{core: core}
}

// EvaluateSubmission implements ports.EvaluationClient.
func (c *Client) EvaluateSubmission(
	ctx context.Context,
	candidate domain.Submission,
	others []domain.Submission,
) (*ports.EvaluationResults, error) {
	results, err := c.core.DoRequest(ctx, EvaluationRequest{
		CandidateSubmission: candidate,
		OtherSubmissions:    others,
	})
	if err != nil {
		return nil, ports.NewEvaluationError(candidate.ID, "evaluate_submission", err)
	}
	return results, nil
}

// httpEvaluator is the HTTP core that actually talks to the service.
type httpEvaluator struct {
	url       string
	authToken string
	client    *http.Client
}

func (h *httpEvaluator) DoRequest(ctx context.Context, request EvaluationRequest) (*ports.EvaluationResults, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.authToken)

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ports.ErrAuthenticationFailed
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ports.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ports.ErrInvalidResponse, resp.StatusCode)
	}

	var results ports.EvaluationResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err)
	}
	return &results, nil
}
