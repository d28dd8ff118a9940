package clients

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

type HealthProbe struct {
	Name   string
	Client *Client
	Path   string
}

// HealthResult describes one upstream as seen from this client. Breaker is
// the circuit state of the probed client ("closed", "half-open", "open"),
// empty when the client runs without a breaker.
type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	LatencyMS  int64  `json:"latencyMs"`
	Breaker    string `json:"breaker,omitempty"`
	Error      string `json:"error,omitempty"`
}

const probeTimeout = 2 * time.Second

// CheckHealth bypasses the breaker so a probe can see a recovered upstream
// while the breaker is still open.
func CheckHealth(ctx context.Context, probe HealthProbe) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res := HealthResult{Name: probe.Name, Breaker: probe.Client.BreakerState()}

	start := time.Now()
	resp, err := probe.Client.Do(ctx, http.MethodGet, probe.Path, "", nil, nil)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	return res
}

// CheckAll probes concurrently; results keep the order of probes.
func CheckAll(ctx context.Context, probes []HealthProbe) []HealthResult {
	results := make([]HealthResult, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			results[i] = CheckHealth(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
