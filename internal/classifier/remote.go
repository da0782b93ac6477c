package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/drug-reco-engine/internal/domain"
)

// RemoteClassifier calls an HTTP inference service. Requests are rate
// limited and guarded by a circuit breaker. The label universe is fetched
// on first use and kept once a fetch succeeds.
type RemoteClassifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger

	mu     sync.Mutex
	labels []string
}

type predictRequest struct {
	Features domain.ClinicalFeatures `json:"features"`
}

type predictResponse struct {
	Predictions []domain.LabelProbability `json:"predictions"`
}

type labelsResponse struct {
	Labels []string `json:"labels"`
}

// NewRemoteClassifier builds a client from configuration. Unset limits
// fall back to conservative defaults.
func NewRemoteClassifier(cfg domain.RemoteAPIConfig, logger *logrus.Logger) (*RemoteClassifier, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote classifier base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 5
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = 30 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}
	if cfg.MinRequestsToTrip == 0 {
		cfg.MinRequestsToTrip = 3
	}

	c := &RemoteClassifier{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		rateLimit:  rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequestsToTrip && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return c, nil
}

// Labels returns the service's label universe, or nil when the service
// could not be reached or reported no labels. Only a non-empty universe is
// cached.
func (c *RemoteClassifier) Labels() []string {
	labels, err := c.fetchLabels(context.Background())
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch classifier labels")
		return nil
	}
	return labels
}

func (c *RemoteClassifier) fetchLabels(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.labels != nil {
		return c.labels, nil
	}

	var resp labelsResponse
	if err := c.call(ctx, http.MethodGet, "/labels", nil, &resp); err != nil {
		return nil, err
	}
	labels := uniqueLabels(resp.Labels)
	if len(labels) == 0 {
		return nil, errors.New("classifier returned no labels")
	}
	c.labels = labels
	return c.labels, nil
}

// PredictProbabilities posts the features to the service. The response is
// re-normalised and reordered to the label universe; labels missing from
// the response get probability zero.
func (c *RemoteClassifier) PredictProbabilities(ctx context.Context, features domain.ClinicalFeatures) ([]domain.LabelProbability, error) {
	labels, err := c.fetchLabels(ctx)
	if err != nil {
		return nil, &domain.ClassifierError{Err: err}
	}

	var resp predictResponse
	if err := c.call(ctx, http.MethodPost, "/predict", predictRequest{Features: features}, &resp); err != nil {
		return nil, &domain.ClassifierError{Err: err}
	}

	byLabel := make(map[string]float64, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if _, seen := byLabel[p.Label]; !seen {
			byLabel[p.Label] = p.Probability
		}
	}
	scores := make([]float64, len(labels))
	for i, l := range labels {
		scores[i] = byLabel[l]
	}
	return distribution(labels, scores)
}

// call performs one request through the limiter and breaker.
func (c *RemoteClassifier) call(ctx context.Context, method, path string, body, out any) error {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("classifier service unavailable (circuit breaker open): %w", err)
	}
	return err
}

func (c *RemoteClassifier) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// BreakerState reports the circuit breaker state.
func (c *RemoteClassifier) BreakerState() gobreaker.State {
	return c.breaker.State()
}
