// Package sync implements the reading-progress synchronization protocol:
// a JSON-over-HTTP client, timestamp-gated conflict resolution, and a
// periodic scheduler for background sync passes.
package sync

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authPath       = "/users/auth"
	devicePath     = "/users/device"
	progressPath   = "/syncs/progress"
	statisticsPath = "/users/statistics"

	defaultTimeout = 30 * time.Second
)

// Client talks to a reading-progress server. Every request carries Basic
// auth; timestamps on the wire are numeric seconds since the epoch.
type Client struct {
	baseURL    string
	username   string
	password   string
	device     string
	deviceID   string
	httpClient *http.Client
}

// ClientConfig identifies the server, the account, and this device.
type ClientConfig struct {
	ServerURL string
	Username  string
	Password  string
	Device    string
	DeviceID  string
}

// NewClient creates a sync protocol client
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(cfg.ServerURL, "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid sync server URL %q: %w", cfg.ServerURL, err)
	}

	return &Client{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		device:   cfg.Device,
		deviceID: cfg.DeviceID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// ProgressDetail is the position payload exchanged with the server. It is
// JSON-encoded into the opaque progress field of the envelope.
type ProgressDetail struct {
	Chapter       int     `json:"chapter"`
	Position      float64 `json:"position"`
	TotalChapters int     `json:"total_chapters"`
	LastRead      int64   `json:"last_read"`
	Duration      int64   `json:"duration"`
}

// Progress is server-side progress for one document, decoded.
type Progress struct {
	Detail     ProgressDetail
	Percentage float64
	Device     string
	DeviceID   string
	Timestamp  time.Time
}

// Statistics summarizes the account as reported by the server.
type Statistics struct {
	TotalBooks     int   `json:"total_books"`
	BooksFinished  int   `json:"books_finished"`
	ReadingSeconds int64 `json:"reading_seconds"`
}

// progressEnvelope is the wire form of a progress record.
type progressEnvelope struct {
	Document   string  `json:"document"`
	Progress   string  `json:"progress"`
	Percentage float64 `json:"percentage"`
	Device     string  `json:"device"`
	DeviceID   string  `json:"device_id"`
	Timestamp  int64   `json:"timestamp"`
}

// DocumentID derives the stable identifier a book is filed under on the
// server. Both sides derive it from the filename, so it survives re-downloads.
func DocumentID(filename string) string {
	sum := md5.Sum([]byte(filename))
	return hex.EncodeToString(sum[:])
}

// TestConnection verifies the server is reachable and the credentials are
// accepted.
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+authPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthenticationFailed
	case resp.StatusCode == http.StatusNotFound:
		return &ServerError{StatusCode: resp.StatusCode, Message: "auth endpoint not found"}
	default:
		return serverError(resp)
	}
}

// UploadProgress pushes the current position for a document to the server.
func (c *Client) UploadProgress(ctx context.Context, documentID string, detail ProgressDetail, percentage float64) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	envelope := progressEnvelope{
		Document:   documentID,
		Progress:   string(detailJSON),
		Percentage: percentage,
		Device:     c.device,
		DeviceID:   c.deviceID,
		Timestamp:  time.Now().Unix(),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.baseURL+progressPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized:
		return ErrAuthenticationFailed
	case http.StatusNotFound:
		return ErrBookNotFound
	default:
		return serverError(resp)
	}
}

// DownloadProgress fetches server-side progress for a document. A 404 means
// the server has never seen the document and returns (nil, nil).
func (c *Client) DownloadProgress(ctx context.Context, documentID string) (*Progress, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+progressPath+"/"+url.PathEscape(documentID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized:
		return nil, ErrAuthenticationFailed
	default:
		return nil, serverError(resp)
	}

	var envelope progressEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode progress response: %w", err)
	}

	progress := &Progress{
		Percentage: envelope.Percentage,
		Device:     envelope.Device,
		DeviceID:   envelope.DeviceID,
		Timestamp:  time.Unix(envelope.Timestamp, 0),
	}
	if envelope.Progress != "" {
		if err := json.Unmarshal([]byte(envelope.Progress), &progress.Detail); err != nil {
			return nil, fmt.Errorf("failed to decode progress detail: %w", err)
		}
	}
	return progress, nil
}

// RegisterDevice announces this device to the server so its progress
// records can be attributed.
func (c *Client) RegisterDevice(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"device":    c.device,
		"device_id": c.deviceID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode device registration: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+devicePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized:
		return ErrAuthenticationFailed
	default:
		return serverError(resp)
	}
}

// FetchStatistics retrieves account-level reading statistics.
func (c *Client) FetchStatistics(ctx context.Context) (*Statistics, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+statisticsPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusUnauthorized:
		return nil, ErrAuthenticationFailed
	default:
		return nil, serverError(resp)
	}

	var stats Statistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return resp, nil
}

// serverError extracts an error message from a failed response body if one
// is present.
func serverError(resp *http.Response) *ServerError {
	serr := &ServerError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(data) == 0 {
		return serr
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		serr.Message = payload.Message
	} else {
		serr.Message = strings.TrimSpace(string(data))
	}
	return serr
}
