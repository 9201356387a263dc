// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS & ERRORS
// =============================================================================

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds response bodies read into memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// confirmRatePerMinute throttles action confirmations client-side.
	// The backend enforces its own limit; staying under it avoids 429s
	// on a keyboard held down.
	confirmRatePerMinute = 10
)

var (
	// ErrUnauthorized indicates the session token was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the session, message, or action does not exist.
	ErrNotFound = errors.New("not found")

	// ErrActionExpired indicates the staged action's confirmation window
	// has passed.
	ErrActionExpired = errors.New("action expired")

	// ErrActionResolved indicates the action was already confirmed or
	// cancelled.
	ErrActionResolved = errors.New("action already resolved")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError carries an unmapped backend error response.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// RemoteSession is the backend's summary of one conversation.
// LastUpdated is epoch milliseconds on the wire.
type RemoteSession struct {
	SessionID    string `json:"sessionId"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	LastUpdated  int64  `json:"lastUpdated"`
}

// LastUpdatedTime converts the epoch-millisecond stamp to a time.Time.
func (s RemoteSession) LastUpdatedTime() time.Time {
	return time.UnixMilli(s.LastUpdated)
}

// HistoryMessage is one replayed message. Type is USER, AI, or SYSTEM.
type HistoryMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SessionHistory is the replayed transcript of one session.
type SessionHistory struct {
	SessionID    string           `json:"sessionId"`
	MessageCount int              `json:"messageCount"`
	Messages     []HistoryMessage `json:"messages"`
}

// confirmRequest is the body of an action confirmation.
type confirmRequest struct {
	SessionID string `json:"sessionId"`
	ActionID  string `json:"actionId"`
}

// ActionResult is the backend's response to a confirmation.
type ActionResult struct {
	Success             bool   `json:"success"`
	ActionID            string `json:"actionId,omitempty"`
	ActionType          string `json:"actionType,omitempty"`
	Message             string `json:"message"`
	CreatedRecordID     string `json:"createdRecordId,omitempty"`
	CreatedRecordNumber string `json:"createdRecordNumber,omitempty"`
}

// cancelResponse acknowledges a cancellation.
type cancelResponse struct {
	Message string `json:"message"`
}

// StagedAction is one unresolved backend action awaiting confirmation.
type StagedAction struct {
	ActionID           string    `json:"actionId"`
	ActionType         string    `json:"actionType"`
	SessionID          string    `json:"sessionId"`
	UserID             string    `json:"userId"`
	Preview            string    `json:"preview"`
	ConfirmationPrompt string    `json:"confirmationPrompt"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// RateLimitInfo reports the backend's hourly action-creation quota.
type RateLimitInfo struct {
	MaxPerHour int  `json:"maxPerHour"`
	Remaining  int  `json:"remaining"`
	IsLimited  bool `json:"isLimited"`
}

// FeedbackRequest rates one assistant response. FeedbackType is
// "positive" or "negative".
type FeedbackRequest struct {
	MessageID    string `json:"messageId"`
	SessionID    string `json:"sessionId"`
	FeedbackType string `json:"feedbackType"`
	FeedbackText string `json:"feedbackText,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// apiErrorResponse is the backend's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	authToken  string
	userID     string
	httpClient *http.Client
	maxRetries int

	// confirmLimiter throttles ConfirmAction calls.
	confirmLimiter *rate.Limiter
}

// NewClient creates a client for the given base URL and user.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		userID:         userID,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		maxRetries:     DefaultMaxRetries,
		confirmLimiter: rate.NewLimiter(rate.Every(time.Minute/confirmRatePerMinute), confirmRatePerMinute),
	}
}

// WithAuthToken sets the bearer token sent with every request.
func (c *Client) WithAuthToken(token string) *Client {
	c.authToken = strings.TrimSpace(token)
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithMaxRetries sets the retry budget.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// =============================================================================
// OPERATIONS
// =============================================================================

// ListSessions returns the backend's conversations, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]RemoteSession, error) {
	var sessions []RemoteSession
	url := c.baseURL + "/api/v1/chat/sessions"
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes one conversation from the backend.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	url := c.baseURL + "/api/v1/chat/sessions/" + neturl.PathEscape(sessionID)
	return c.doJSON(ctx, http.MethodDelete, url, nil, nil)
}

// History returns the replayed transcript of one session, oldest first.
func (c *Client) History(ctx context.Context, sessionID string) (*SessionHistory, error) {
	var history SessionHistory
	url := c.baseURL + "/api/v1/chat/sessions/" + neturl.PathEscape(sessionID) + "/history"
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// ConfirmAction executes a staged action. Expired and already-resolved
// actions map to ErrActionExpired and ErrActionResolved.
func (c *Client) ConfirmAction(ctx context.Context, sessionID, actionID string) (*ActionResult, error) {
	if err := c.confirmLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	var result ActionResult
	url := c.baseURL + "/api/v1/actions/confirm"
	body := confirmRequest{SessionID: sessionID, ActionID: actionID}
	if err := c.doJSON(ctx, http.MethodPost, url, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelAction discards a staged action and returns the backend's
// acknowledgement message.
func (c *Client) CancelAction(ctx context.Context, sessionID, actionID string) (string, error) {
	query := neturl.Values{"sessionId": {sessionID}, "actionId": {actionID}}
	url := c.baseURL + "/api/v1/actions/cancel?" + query.Encode()
	var ack cancelResponse
	if err := c.doJSON(ctx, http.MethodDelete, url, nil, &ack); err != nil {
		return "", err
	}
	return ack.Message, nil
}

// PendingActions lists the unresolved staged actions of one session.
func (c *Client) PendingActions(ctx context.Context, sessionID string) ([]StagedAction, error) {
	var actions []StagedAction
	url := c.baseURL + "/api/v1/actions/pending?sessionId=" + neturl.QueryEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// RateLimitStatus returns the user's remaining action-creation budget
// on the backend.
func (c *Client) RateLimitStatus(ctx context.Context) (*RateLimitInfo, error) {
	var info RateLimitInfo
	url := c.baseURL + "/api/v1/actions/rate-limit?userId=" + neturl.QueryEscape(c.userID)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendFeedback submits a rating for one assistant response. The user id
// and timestamp are stamped from the client when the caller left them
// empty.
func (c *Client) SendFeedback(ctx context.Context, feedback FeedbackRequest) error {
	if feedback.UserID == "" {
		feedback.UserID = c.userID
	}
	if feedback.Timestamp == "" {
		feedback.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	url := c.baseURL + "/api/v1/feedback"
	return c.doJSON(ctx, http.MethodPost, url, feedback, nil)
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON performs one JSON request with retries for transient failures.
// Retries cover 5xx and rate limiting; everything else fails fast.
func (c *Client) doJSON(ctx context.Context, method, url string, reqBody, respBody any) error {
	var payload []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			log.Printf("api: retrying %s %s in %s (attempt %d/%d)", method, url, delay, attempt+1, c.maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.doOnce(ctx, method, url, payload, respBody)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, respBody any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "deskchat/0.1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusNoContent {
		return mapErrorResponse(resp.StatusCode, data)
	}

	if respBody == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponse reads the body with a size bound.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// mapErrorResponse converts HTTP error responses to the error taxonomy.
func mapErrorResponse(statusCode int, body []byte) error {
	message := string(body)
	code := ""

	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		code = envelope.Error.Code
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrActionResolved, message)
	case http.StatusGone:
		return fmt.Errorf("%w: %s", ErrActionExpired, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	default:
		return &APIError{Code: code, Message: message, Status: statusCode}
	}
}

// isRetryable reports whether an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return false
}

// calculateBackoff returns the delay before the next retry.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
