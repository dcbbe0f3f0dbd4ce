package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

const (
	maxBackpressureRetries = 5
	backpressureDelay      = 50 * time.Millisecond
)

var errStatus = errors.New("unexpected status")

// client talks to the service's HTTP API.
type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string, timeout time.Duration) *client {
	return &client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// getData fetches a {success, data, meta} envelope into data and meta.
func (c *client) getData(ctx context.Context, path string, data, meta any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %w %d", path, errStatus, resp.StatusCode)
	}
	env := struct {
		Data any `json:"data"`
		Meta any `json:"meta"`
	}{Data: data, Meta: meta}
	return json.NewDecoder(resp.Body).Decode(&env)
}

// health returns nil when GET /health reports ok.
func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// submit posts one snapshot, retrying briefly on backpressure.
func (c *client) submit(ctx context.Context, snap model.Snapshot) string {
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, http.MethodPost, "/snapshots", snap)
		if err != nil {
			return outcomeFailed
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted:
			return outcomeAccepted
		case http.StatusOK:
			return outcomeDuplicate
		case http.StatusTooManyRequests:
			if attempt >= maxBackpressureRetries {
				return outcomeFailed
			}
			select {
			case <-ctx.Done():
				return outcomeFailed
			case <-time.After(backpressureDelay << attempt):
			}
		default:
			return outcomeFailed
		}
	}
}

func playerPath(tag, suffix string) string {
	return "/players/" + url.PathEscape(strings.TrimPrefix(tag, "#")) + "/" + suffix
}

type historyMeta struct {
	SnapshotsFound int `json:"snapshotsFound"`
}

// storedDays reports how many snapshots the service has for tag in the last days.
func (c *client) storedDays(ctx context.Context, tag string, days int) (int, error) {
	var meta historyMeta
	err := c.getData(ctx, playerPath(tag, "history?days="+strconv.Itoa(days)), nil, &meta)
	return meta.SnapshotsFound, err
}

func (c *client) timeline(ctx context.Context, tag string) ([]model.TimelineItem, error) {
	var items []model.TimelineItem
	return items, c.getData(ctx, playerPath(tag, "timeline"), &items, nil)
}

func (c *client) milestones(ctx context.Context, tag string) ([]model.MilestoneHighlight, error) {
	var out []model.MilestoneHighlight
	return out, c.getData(ctx, playerPath(tag, "milestones"), &out, nil)
}
