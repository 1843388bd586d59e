// Package responses defines API response types used by the pageboot HTTP
// handlers.
package responses

import "time"

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Store     string    `json:"store,omitempty"`
}

// ContentResponse represents the content query API response.
type ContentResponse struct {
	Env  string `json:"env"`
	Data any    `json:"data"`
}
