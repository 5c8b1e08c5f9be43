// Package persist sends the slot list to the save endpoint.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slot-editor/internal/slots"
)

// ErrEmptyLotID is reported when a save is attempted without a lot.
var ErrEmptyLotID = errors.New("lot id is empty")

// maxReasonBytes bounds how much of an error body is kept as the reason.
const maxReasonBytes = 512

// Result is the outcome of a save. OK is true only for a 2xx response.
type Result struct {
	OK       bool
	Status   int
	Reason   string
	Redirect string
	Err      error
}

// Endpoints locates the backend.
type Endpoints struct {
	// Save receives POSTed payloads.
	Save string
	// Slots is the prefix that a lot id is appended to when reading back
	// saved slots. Optional.
	Slots string
	// Dashboard is where the user goes after a successful save.
	Dashboard string
}

// Client posts slot payloads to a save endpoint.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a client. A zero timeout disables the client timeout;
// callers may still bound requests with a context.
func NewClient(endpoints Endpoints, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// SaveSlots submits the full slot list for lotID. Failures are reported in
// the Result rather than as a separate error so callers handle one value.
func (c *Client) SaveSlots(ctx context.Context, lotID string, polys []slots.Polygon) Result {
	if strings.TrimSpace(lotID) == "" {
		return failure(0, ErrEmptyLotID)
	}
	if polys == nil {
		polys = []slots.Polygon{}
	}

	body, err := json.Marshal(slots.Payload{LotID: slots.LotID(lotID), Rects: polys})
	if err != nil {
		return failure(0, fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Save, bytes.NewReader(body))
	if err != nil {
		return failure(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("save request failed", "lot", lotID, slog.Any("err", err))
		return failure(0, fmt.Errorf("post %s: %w", c.endpoints.Save, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := readReason(resp.Body)
		c.logger.Warn("save rejected", "lot", lotID, "status", resp.StatusCode, "reason", reason)
		return Result{
			Status: resp.StatusCode,
			Reason: reason,
			Err:    fmt.Errorf("save slots: unexpected status %d", resp.StatusCode),
		}
	}

	c.logger.Info("slots saved", "lot", lotID, "count", len(polys))
	return Result{OK: true, Status: resp.StatusCode, Redirect: c.endpoints.Dashboard}
}

// LoadSlots fetches the saved slots of lotID in label order.
func (c *Client) LoadSlots(ctx context.Context, lotID string) ([]slots.Polygon, error) {
	if strings.TrimSpace(lotID) == "" {
		return nil, ErrEmptyLotID
	}
	if c.endpoints.Slots == "" {
		return nil, errors.New("no slots endpoint configured")
	}

	target := strings.TrimRight(c.endpoints.Slots, "/") + "/" + url.PathEscape(lotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []slots.Polygon{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load slots: status %d: %s", resp.StatusCode, readReason(resp.Body))
	}

	var body struct {
		Slots []slots.Labeled `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	out := make([]slots.Polygon, len(body.Slots))
	for i, s := range body.Slots {
		out[i] = s.Points
	}
	c.logger.Debug("slots loaded", "lot", lotID, "count", len(out))
	return out, nil
}

func failure(status int, err error) Result {
	return Result{Status: status, Reason: err.Error(), Err: err}
}

// readReason extracts a short failure reason, preferring the "error" field
// of a JSON body.
func readReason(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxReasonBytes))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}
