// Package normalizer turns loosely shaped client telemetry into canonical
// collector events. Normalization never fails: anything unparseable falls
// back to a best-effort value.
package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/addin-proxy/telemetry/pkg/hec"
)

// Defaults are the process-scoped metadata values applied when an event
// carries none of its own.
type Defaults struct {
	Index      string
	Host       string
	Source     string
	SourceType string
}

// maxDateMillis is the largest magnitude a client timestamp may have, in
// milliseconds from the epoch.
const maxDateMillis = 8.64e15

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

// NormalizePayload normalizes a decoded request body: an array yields one
// event per element in order, anything else yields a single event.
func NormalizePayload(payload any, defaults Defaults) []hec.Event {
	return normalizePayloadAt(payload, defaults, time.Now())
}

// Normalize converts one decoded value into a canonical event.
func Normalize(raw any, defaults Defaults) hec.Event {
	return normalizeAt(raw, defaults, time.Now())
}

func normalizePayloadAt(payload any, defaults Defaults, now time.Time) []hec.Event {
	items, ok := payload.([]any)
	if !ok {
		return []hec.Event{normalizeAt(payload, defaults, now)}
	}

	events := make([]hec.Event, 0, len(items))
	for _, item := range items {
		events = append(events, normalizeAt(item, defaults, now))
	}
	return events
}

func normalizeAt(raw any, defaults Defaults, now time.Time) hec.Event {
	obj, ok := raw.(map[string]any)
	if !ok {
		return hec.Event{
			Time:       epochSeconds(now),
			Host:       defaults.Host,
			Source:     defaults.Source,
			SourceType: defaults.SourceType,
			Index:      defaults.Index,
			Event:      raw,
		}
	}

	ev := hec.Event{
		Host:       metadata(obj, "host", defaults.Host),
		Source:     metadata(obj, "source", defaults.Source),
		SourceType: metadata(obj, "sourcetype", defaults.SourceType),
		Index:      metadata(obj, "index", defaults.Index),
	}

	if t, ok := canonicalTime(obj); ok {
		ev.Time = t
		ev.Event = obj["event"]
		if fields, ok := obj["fields"].(map[string]any); ok && len(fields) > 0 {
			ev.Fields = fields
		}
		return ev
	}

	if ts, ok := parseTimestamp(obj["timestamp"]); ok {
		ev.Time = epochSeconds(ts)
	} else {
		ev.Time = epochSeconds(now)
	}

	if data, ok := obj["data"]; ok && data != nil {
		ev.Event = data
	} else {
		ev.Event = obj
	}
	return ev
}

// canonicalTime reports whether obj already has the collector's shape and
// returns its time as whole epoch seconds. A time that is not numeric, or a
// numeric string, leaves the object non-canonical.
func canonicalTime(obj map[string]any) (int64, bool) {
	if _, hasEvent := obj["event"]; !hasEvent {
		return 0, false
	}

	var secs float64
	switch t := obj["time"].(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, math.Abs(float64(n)) <= maxDateMillis/1000
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		secs = f
	case float64:
		secs = t
	case int64:
		secs = float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}

	if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > maxDateMillis/1000 {
		return 0, false
	}
	return int64(math.Floor(secs)), true
}

// metadata resolves a metadata field: event value, then default, then omitted.
func metadata(obj map[string]any, key, fallback string) string {
	switch v := obj[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case json.Number:
		return v.String()
	}
	return fallback
}

func parseTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case json.Number:
		ms, err := ts.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(ms)
	case float64:
		return fromMillis(ts)
	case int64:
		return fromMillis(float64(ts))
	case string:
		s := strings.TrimSpace(ts)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxDateMillis {
		return time.Time{}, false
	}
	ms = math.Trunc(ms)
	return time.UnixMilli(int64(ms)), true
}

func epochSeconds(t time.Time) int64 {
	return int64(math.Floor(float64(t.UnixMilli()) / 1000))
}
