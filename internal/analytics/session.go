// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"time"
)

// Event is one tracked action. Events are copied when appended and never
// modified afterwards.
type Event struct {
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Session is one visit.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	Page      string    `json:"page"`
	Referrer  string    `json:"referrer"`
	PageViews int       `json:"page_views"`
	Events    []Event   `json:"events"`

	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Language         string `json:"language"`
	Browser          string `json:"browser"`
	BrowserVersion   string `json:"browser_version"`
	OS               string `json:"os"`
	Device           string `json:"device"`
	IsMobile         bool   `json:"is_mobile"`

	Country   string  `json:"country"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsUSA     bool    `json:"is_usa"`

	// DurationMs is set once, when the session is hidden or ended.
	DurationMs   *int64    `json:"duration_ms,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	if s.Events != nil {
		out.Events = make([]Event, len(s.Events))
		for i, e := range s.Events {
			out.Events[i] = Event{
				Name:       e.Name,
				Timestamp:  e.Timestamp,
				Properties: copyProps(e.Properties),
			}
		}
	}
	if s.DurationMs != nil {
		d := *s.DurationMs
		out.DurationMs = &d
	}
	return out
}

// copyProps deep-copies nested maps and slices so that callers cannot
// mutate an appended event through a retained reference.
func copyProps(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyProps(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
