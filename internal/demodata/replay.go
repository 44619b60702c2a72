package demodata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

// Replay defaults.
const (
	DefaultWorkers = 4
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrUnhealthy is returned when the server does not answer its health check.
var ErrUnhealthy = errors.New("service is not healthy")

// ReplayConfig controls where and how a dataset is replayed.
type ReplayConfig struct {
	BaseURL    string        // server root, e.g. http://localhost:8080
	AdminEmail string        // when set, the actual result is entered and winners fetched
	Workers    int           // concurrent submissions
	Timeout    time.Duration // per request
}

// Stats summarizes a replay.
type Stats struct {
	Submitted   int           `json:"submitted"`
	Created     int           `json:"created"`
	Updated     int           `json:"updated"`
	Rejected    int           `json:"rejected"`
	RateLimited int           `json:"rate_limited"`
	Failed      int           `json:"failed"`
	Winners     int           `json:"winners"`
	BestScore   int           `json:"best_score"`
	Duration    time.Duration `json:"duration"`
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeRejected
	outcomeRateLimited
	outcomeFailed
)

// Replay submits every prediction of ds to a running server. Rejections are
// counted, not returned.
func Replay(ctx context.Context, cfg ReplayConfig, ds Dataset) (Stats, error) {
	start := time.Now()
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := &http.Client{Timeout: cfg.Timeout}
	log := logger.Get().Named("demodata")

	log.Info(ctx, "replaying dataset",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("predictions", len(ds.Predictions)),
		logger.Int("workers", cfg.Workers))

	if err := checkHealth(ctx, client, cfg.BaseURL); err != nil {
		return Stats{}, err
	}

	var counts [outcomeFailed + 1]atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, in := range ds.Predictions {
		g.Go(func() error {
			o := submit(gctx, client, cfg.BaseURL, in)
			counts[o].Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{
		Created:     int(counts[outcomeCreated].Load()),
		Updated:     int(counts[outcomeUpdated].Load()),
		Rejected:    int(counts[outcomeRejected].Load()),
		RateLimited: int(counts[outcomeRateLimited].Load()),
		Failed:      int(counts[outcomeFailed].Load()),
	}
	stats.Submitted = stats.Created + stats.Updated + stats.Rejected + stats.RateLimited + stats.Failed
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("replay cancelled: %w", err)
	}

	if cfg.AdminEmail != "" {
		if err := saveActual(ctx, client, cfg.BaseURL, cfg.AdminEmail, ds.Actual); err != nil {
			return stats, err
		}
		n, best, err := fetchWinners(ctx, client, cfg.BaseURL)
		if err != nil {
			return stats, err
		}
		stats.Winners, stats.BestScore = n, best
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "replay completed",
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("rejected", stats.Rejected),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Int("winners", stats.Winners),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	resp, err := do(ctx, client, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func submit(ctx context.Context, client *http.Client, baseURL string, in model.PredictionInput) outcome {
	resp, err := do(ctx, client, http.MethodPost, baseURL+"/predictions", in)
	if err != nil {
		return outcomeFailed
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusCreated:
		return outcomeCreated
	case resp.StatusCode == http.StatusOK:
		return outcomeUpdated
	case resp.StatusCode == http.StatusTooManyRequests:
		return outcomeRateLimited
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func saveActual(ctx context.Context, client *http.Client, baseURL, adminEmail string, actual model.ActualResultInput) error {
	body := struct {
		AdminEmail string `json:"admin_email"`
		model.ActualResultInput
	}{adminEmail, actual}

	resp, err := do(ctx, client, http.MethodPost, baseURL+"/admin/actual-results", body)
	if err != nil {
		return fmt.Errorf("save actual result: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("save actual result: status %d", resp.StatusCode)
	}
	return nil
}

func fetchWinners(ctx context.Context, client *http.Client, baseURL string) (int, int, error) {
	resp, err := do(ctx, client, http.MethodGet, baseURL+"/admin/winners", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch winners: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("fetch winners: status %d", resp.StatusCode)
	}

	var out struct {
		Winners []struct {
			Score int `json:"score"`
		} `json:"winners"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("decode winners: %w", err)
	}
	if len(out.Winners) == 0 {
		return 0, 0, nil
	}
	return len(out.Winners), out.Winners[0].Score, nil
}

func do(ctx context.Context, client *http.Client, method, url string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}
