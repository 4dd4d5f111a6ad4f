package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AdhubOrg/rebase-bot/internal/errors"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
	"github.com/AdhubOrg/rebase-bot/internal/resilience"
)

// RESTClient implements Messenger against the chat platform's REST API.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

// NewRESTClient creates a chat REST client with a circuit breaker around
// every call.
func NewRESTClient(baseURL, token string, timeout time.Duration, logger *monitoring.Logger, metrics *monitoring.Metrics) *RESTClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 2,
		}),
		logger:  logger,
		metrics: metrics,
	}
}

type sendRequest struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
	Nonce   string  `json:"nonce"`
}

// Send posts a message to the channel. Transient failures are retried with
// backoff before the error is surfaced.
func (c *RESTClient) Send(ctx context.Context, channelID, content string, embeds []Embed) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)

	body, err := json.Marshal(sendRequest{
		Content: content,
		Embeds:  embeds,
		Nonce:   uuid.NewString(),
	})
	if err != nil {
		return errors.WrapError(err, "failed to encode message")
	}

	return resilience.Retry(ctx, func() error {
		return c.breaker.Execute(func() error {
			start := time.Now()
			err := c.post(ctx, endpoint, body)
			success := err == nil

			c.metrics.RecordExternalAPICall("chat", success)
			status := http.StatusOK
			if !success {
				status = 0
			}
			c.logger.ExternalAPILogger("chat", http.MethodPost, endpoint, status, time.Since(start), success)

			return err
		})
	})
}

// History returns bot and user messages posted after the given time, oldest
// first. A failed fetch yields an empty slice and a SourceUnavailable error;
// the caller degrades to a no-op.
func (c *RESTClient) History(ctx context.Context, channelID string, after time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages?%s", c.baseURL, channelID, url.Values{
		"after": []string{after.UTC().Format(time.RFC3339)},
		"limit": []string{strconv.Itoa(limit)},
	}.Encode())

	var messages []Message
	err := c.breaker.Execute(func() error {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		c.metrics.RecordExternalAPICall("chat", err == nil)
		if err != nil {
			c.logger.ExternalAPILogger("chat", http.MethodGet, endpoint, 0, time.Since(start), false)
			return err
		}
		defer resp.Body.Close()

		c.logger.ExternalAPILogger("chat", http.MethodGet, endpoint, resp.StatusCode, time.Since(start), resp.StatusCode == http.StatusOK)

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(payload))
		}

		return json.NewDecoder(resp.Body).Decode(&messages)
	})
	if err != nil {
		return nil, errors.NewSourceUnavailableError("chat history", err)
	}

	return messages, nil
}

func (c *RESTClient) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewSourceUnavailableError("chat delivery", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewSourceUnavailableError("chat delivery",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(payload)))
	}

	return nil
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}
}
