package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/DanielPopoola/donation-gateway/internal/config"
	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
)

// maxErrorBody caps how much of a rejection body is read and logged.
const maxErrorBody = 64 << 10

var ErrAbsolutePath = errors.New("provider path must be relative")

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient binds the client to the environment selected in cfg.
func NewClient(cfg config.ProviderConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse provider base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}, nil
}

func (c *Client) CreatePayment(ctx context.Context, cred *domain.Credential, req domain.CreatePaymentRequest) (*domain.CreatedPayment, error) {
	created, err := postJSON[domain.CreatePaymentRequest, domain.CreatedPayment](c, ctx, cred, "payments/payment", req)
	if err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, domain.NewPaymentProviderError("provider returned a payment without an id", nil)
	}
	return created, nil
}

func (c *Client) ExecutePayment(ctx context.Context, cred *domain.Credential, paymentID, payerID string) (*domain.CapturePayload, error) {
	path := fmt.Sprintf("payments/payment/%s/execute", url.PathEscape(paymentID))
	req := domain.ExecutePaymentRequest{PayerID: payerID}

	raw, err := postJSON[domain.ExecutePaymentRequest, json.RawMessage](c, ctx, cred, path, req)
	if err != nil {
		return nil, err
	}

	payload, err := domain.ParseCapturePayload(*raw)
	if err != nil {
		return nil, domain.NewUpstreamOutcomeUnknownError("execute payment "+paymentID, err)
	}
	return payload, nil
}

// buildURL resolves path under the environment root.
func (c *Client) buildURL(path string) (string, error) {
	if strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, path)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid provider path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, path)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// postJSON is a generic helper for bearer-authenticated POST requests to the provider
func postJSON[Req any, Resp any](c *Client, ctx context.Context, cred *domain.Credential, path string, req Req) (*Resp, error) {
	fullURL, err := c.buildURL(path)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	token, err := c.accessToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	var sent atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				sent.Store(true)
			}
		},
	}

	httpReq, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodPost, fullURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		switch {
		case isTimeout(err):
			c.logger.Warn("provider request timed out", "path", path, "error", err)
			return nil, domain.NewUpstreamTimeoutError(path, err)
		case sent.Load():
			c.logger.Error("provider connection lost after request was sent", "path", path, "error", err)
			return nil, domain.NewUpstreamOutcomeUnknownError(path, err)
		}
		c.logger.Error("provider request failed", "path", path, "error", err)
		return nil, domain.NewPaymentProviderError("payment provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseAPIError(resp.StatusCode, body)
		if readErr != nil {
			apiErr.Message = fmt.Sprintf("%s (error body truncated: %v)", apiErr.Message, readErr)
		}
		c.logger.Error("provider rejected request",
			"path", path,
			"status", resp.StatusCode,
			"response", string(body),
			"parsed_error", apiErr.Message,
			"debug_id", apiErr.DebugID,
		)
		return nil, domain.NewPaymentProviderError(apiErr.Message, apiErr)
	}

	// accepted upstream: a body we cannot read leaves the outcome unknown
	var providerResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		if isTimeout(err) {
			return nil, domain.NewUpstreamTimeoutError(path, err)
		}
		c.logger.Error("unreadable provider response", "path", path, "status", resp.StatusCode, "error", err)
		return nil, domain.NewUpstreamOutcomeUnknownError(path, fmt.Errorf("error decoding json response: %w", err))
	}

	return &providerResp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
