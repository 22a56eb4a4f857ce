package examine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// Remote calls a statistics worker over HTTP.
type Remote struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	log              *zap.Logger
}

// wireRequest is the JSON body of POST /examine. Missing values and weights
// travel as null.
type wireRequest struct {
	Variable dataset.Variable `json:"variable"`
	Values   []*float64       `json:"values"`
	Weights  []*float64       `json:"weights,omitempty"`
	Options  Options          `json:"options"`
}

type wireResponse struct {
	Result *Result `json:"result"`
	Error  string  `json:"error"`
}

// NewRemote returns a client for the worker at baseURL with the given HTTP
// timeout and retry/backoff behavior. Zero values select defaults.
func NewRemote(baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, log *zap.Logger) *Remote {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Remote{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          strings.TrimRight(baseURL, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		log:              log,
	}
}

// Examine implements Service.
func (c *Remote) Examine(ctx context.Context, req Request) (*Result, error) {
	if c.baseURL == "" {
		return nil, errors.New("examine service URL is not configured")
	}
	if req.Weights != nil && len(req.Weights) != len(req.Values) {
		return nil, &ServiceError{Message: fmt.Sprintf("weights length %d does not match values length %d", len(req.Weights), len(req.Values))}
	}
	payload, err := json.Marshal(wireRequest{
		Variable: req.Variable,
		Values:   nullable(req.Values),
		Weights:  nullable(req.Weights),
		Options:  req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/examine"
	backoff := c.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res, retry, err := c.post(ctx, endpoint, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		if wait > c.retryMaxDelay {
			wait = c.retryMaxDelay
		}
		var se *ServiceError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			wait = se.RetryAfter
		}
		c.log.Debug("retrying examine request",
			zap.String("variable", req.Variable.Name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

// post performs one attempt. retry reports whether the failure is transient.
func (c *Remote) post(ctx context.Context, endpoint string, payload []byte) (res *Result, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "statloom-cli")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, isRetryableNetErr(err), fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		se := &ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		transient := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
		if transient {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
					se.RetryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return nil, transient, se
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, false, &ServiceError{Message: out.Error}
	}
	if out.Result == nil {
		return nil, false, errors.New("decode response: missing result")
	}
	return out.Result, false, nil
}

func errorMessage(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch v := raw["error"].(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := raw["message"].(string); ok {
		return msg
	}
	return ""
}

func nullable(xs []float64) []*float64 {
	if xs == nil {
		return nil
	}
	out := make([]*float64, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) {
			continue
		}
		x := xs[i]
		out[i] = &x
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfterSeconds interprets a Retry-After value as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 200 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
