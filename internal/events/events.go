// Package events publishes run-completed notifications so downstream
// consumers can invalidate anything derived from the output layer.
package events

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	Version    int       `json:"version"`
	Op         string    `json:"op"`
	Layer      string    `json:"layer"`
	Field      string    `json:"field"`
	Categories int       `json:"categories"`
	Features   int       `json:"features"`
	RunToken   string    `json:"run_token,omitempty"`
	TS         time.Time `json:"ts"`
}

const OpCategorized = "categorized"

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if e.Op != OpCategorized {
		return fmt.Errorf("op must be %q", OpCategorized)
	}
	if strings.TrimSpace(e.Layer) == "" {
		return fmt.Errorf("layer is required")
	}
	if strings.TrimSpace(e.Field) == "" {
		return fmt.Errorf("field is required")
	}
	if e.Categories < 0 || e.Features < 0 {
		return fmt.Errorf("counts must be non-negative")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
