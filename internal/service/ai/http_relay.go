package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// HTTPRelay posts prompts to a remote generate endpoint.
type HTTPRelay struct {
	client *resty.Client
	url    string
}

// NewHTTPRelay creates a relay for url. A non-positive timeout selects DefaultTimeout.
func NewHTTPRelay(url string, timeout time.Duration) *HTTPRelay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPRelay{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// Reply makes exactly one attempt; there is no retry.
func (r *HTTPRelay) Reply(ctx context.Context, prompt string) Result {
	res, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(generateRequest{Prompt: prompt}).
		Post(r.url)
	if err != nil {
		return r.fail(fmt.Errorf("request failed: %w", err))
	}

	if !res.IsSuccess() {
		return r.fail(fmt.Errorf("unexpected status %d: %s", res.StatusCode(), res.String()))
	}

	var payload generateResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return r.fail(fmt.Errorf("malformed response body: %w", err))
	}

	if payload.Response == nil {
		return answered(EmptyReply)
	}
	return Result{Reply: *payload.Response, Outcome: OutcomeOK}
}

func (r *HTTPRelay) fail(err error) Result {
	log.Printf("[relay] error contacting LLM API at %s: %v", r.url, err)
	return degraded(err)
}
