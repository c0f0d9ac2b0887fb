package models

import "time"

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// GenerateStringRequest is the payload of POST /generate_random_string.
type GenerateStringRequest struct {
	UseDigits    bool `json:"use_digits"`
	UseLowercase bool `json:"use_lowercase"`
	UseUppercase bool `json:"use_uppercase"`
	UseSpec      bool `json:"use_spec"`
	Length       *int `json:"length" binding:"required"`
}

// ChooseRequest is the payload of POST /generate_random_choose.
type ChooseRequest struct {
	Items []string `json:"items" binding:"required"`
	Count *int     `json:"count" binding:"required"`
}

// Status is reported by GET /status.
type Status struct {
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	RSSBytes      uint64    `json:"rss_bytes"`
	CPUPercent    float64   `json:"cpu_percent"`
}

