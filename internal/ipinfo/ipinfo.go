// Package ipinfo resolves the caller's public IP, recorded on comments.
package ipinfo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const unknown = "unknown"

// Services tried in order until one answers.
var services = []string{
	"https://api.ipify.org?format=json",
	"https://ipapi.co/json/",
	"https://api.ip.sb/jsonip",
}

// Resolver looks up the public IP with a short deadline per service.
type Resolver struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResolver creates a new public-IP resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Lookup returns the public IP, or "unknown" when every service fails.
// Failure here is never an error for the caller: the IP is advisory.
func (r *Resolver) Lookup(ctx context.Context) string {
	for _, service := range services {
		ip, err := r.query(ctx, service)
		if err != nil {
			r.logger.Debug("ip service failed", "service", service, "error", err)
			continue
		}
		if ip != "" {
			return ip
		}
	}
	return unknown
}

func (r *Resolver) query(ctx context.Context, serviceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var payload struct {
		IP    string `json:"ip"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if payload.IP != "" {
		return payload.IP, nil
	}
	return payload.Query, nil
}
