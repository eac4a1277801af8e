package normalizer

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/addin-proxy/telemetry/pkg/hec"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func encode(t *testing.T, ev hec.Event) string {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return string(data)
}

func TestNormalize_CanonicalFillsMissingMetadata(t *testing.T) {
	raw := decodeJSON(t, `{"time":1700000000,"event":{"action":"open"},"index":"custom"}`)
	defaults := Defaults{Index: "main", Host: "proxy", Source: "addin", SourceType: "_json"}

	ev := normalizeAt(raw, defaults, fixedNow)

	assert.JSONEq(t,
		`{"time":1700000000,"event":{"action":"open"},"index":"custom","host":"proxy","source":"addin","sourcetype":"_json"}`,
		encode(t, ev))
}

func TestNormalize_CanonicalTimeIsWholeSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"integer", `{"time":1700000000,"event":"x"}`, 1700000000},
		{"fraction floors", `{"time":1700000000.923,"event":"x"}`, 1700000000},
		{"negative fraction floors", `{"time":-1.5,"event":"x"}`, -2},
		{"numeric string", `{"time":"1700000000","event":"x"}`, 1700000000},
		{"padded fractional string", `{"time":" 1700000000.5 ","event":"x"}`, 1700000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := normalizeAt(decodeJSON(t, tt.in), Defaults{}, fixedNow)
			assert.Equal(t, tt.want, ev.Time)
			assert.Equal(t, "x", ev.Event)
		})
	}
}

func TestNormalize_NonNumericTimeIsNotCanonical(t *testing.T) {
	for _, in := range []string{
		`{"time":"yesterday","event":"x"}`,
		`{"time":true,"event":"x"}`,
		`{"time":{"s":1},"event":"x"}`,
		`{"time":1e300,"event":"x"}`,
	} {
		raw := decodeJSON(t, in)

		ev := normalizeAt(raw, Defaults{}, fixedNow)

		assert.Equal(t, fixedNow.Unix(), ev.Time, in)
		assert.Equal(t, raw, ev.Event, in)
	}
}

func TestNormalize_NullTimeIsNotCanonical(t *testing.T) {
	raw := decodeJSON(t, `{"time":null,"event":"x"}`)

	ev := normalizeAt(raw, Defaults{}, fixedNow)

	assert.Equal(t, fixedNow.Unix(), ev.Time)
	assert.Equal(t, raw, ev.Event)
}

func TestNormalize_CanonicalKeepsFields(t *testing.T) {
	raw := decodeJSON(t, `{"time":1,"event":"x","fields":{"tenant":"acme"}}`)

	ev := normalizeAt(raw, Defaults{}, fixedNow)

	assert.Equal(t, map[string]any{"tenant": "acme"}, ev.Fields)
}

func TestNormalize_Synthesized(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		defaults Defaults
		want     string
	}{
		{
			name: "data and numeric timestamp",
			raw:  `{"timestamp":1700000000999,"data":{"k":"v"}}`,
			want: `{"time":1700000000,"event":{"k":"v"}}`,
		},
		{
			name: "whole object when data missing",
			raw:  `{"timestamp":"2024-01-15T10:30:00Z","action":"send"}`,
			want: `{"time":1705314600,"event":{"timestamp":"2024-01-15T10:30:00Z","action":"send"}}`,
		},
		{
			name: "invalid timestamp falls back to now",
			raw:  `{"timestamp":"not a date","data":1}`,
			want: `{"time":1709294400,"event":1}`,
		},
		{
			name: "missing timestamp uses now",
			raw:  `{"data":"hello"}`,
			want: `{"time":1709294400,"event":"hello"}`,
		},
		{
			name: "out of range timestamp uses now",
			raw:  `{"timestamp":1e20,"data":"x"}`,
			want: `{"time":1709294400,"event":"x"}`,
		},
		{
			name:     "event metadata wins over defaults",
			raw:      `{"data":"x","host":"laptop","index":"addin"}`,
			defaults: Defaults{Index: "main", Host: "proxy", Source: "outlook"},
			want:     `{"time":1709294400,"event":"x","host":"laptop","index":"addin","source":"outlook"}`,
		},
		{
			name:     "empty event values count as absent",
			raw:      `{"data":"x","host":"","source":"  "}`,
			defaults: Defaults{Source: "outlook"},
			want:     `{"time":1709294400,"event":"x","source":"outlook"}`,
		},
		{
			name: "host omitted when absent everywhere",
			raw:  `{"data":"x"}`,
			want: `{"time":1709294400,"event":"x"}`,
		},
		{
			name: "null data uses whole object",
			raw:  `{"data":null,"a":1}`,
			want: `{"time":1709294400,"event":{"data":null,"a":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := normalizeAt(decodeJSON(t, tt.raw), tt.defaults, fixedNow)
			assert.JSONEq(t, tt.want, encode(t, ev))
		})
	}
}

func TestNormalize_NonObject(t *testing.T) {
	ev := normalizeAt("plain string", Defaults{Index: "main"}, fixedNow)

	assert.JSONEq(t, `{"time":1709294400,"event":"plain string","index":"main"}`, encode(t, ev))
}

func TestNormalizePayload_ArrayPreservesOrder(t *testing.T) {
	payload := decodeJSON(t, `[{"data":1},{"data":2},{"time":5,"event":3}]`)

	events := normalizePayloadAt(payload, Defaults{}, fixedNow)

	require.Len(t, events, 3)
	assert.Equal(t, json.Number("1"), events[0].Event)
	assert.Equal(t, json.Number("2"), events[1].Event)
	assert.Equal(t, json.Number("3"), events[2].Event)
	assert.Equal(t, int64(5), events[2].Time)
}

func TestNormalizePayload_Single(t *testing.T) {
	events := NormalizePayload(decodeJSON(t, `{"data":"x"}`), Defaults{})
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Event)
}

func TestNormalizePayload_EmptyArray(t *testing.T) {
	assert.Empty(t, NormalizePayload([]any{}, Defaults{}))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"millis number", json.Number("1700000000000"), 1700000000, true},
		{"float millis", 1700000000500.0, 1700000000, true},
		{"rfc3339 nano", "2024-01-15T10:30:00.123456789Z", 1705314600, true},
		{"date only", "2024-01-15", 1705276800, true},
		{"rfc1123", "Mon, 15 Jan 2024 10:30:00 GMT", 1705314600, true},
		{"negative millis floors", json.Number("-1500"), -2, true},
		{"garbage", "yesterday", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := parseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, epochSeconds(ts))
			}
		})
	}
}

func TestNormalize_IdempotentOnCanonical(t *testing.T) {
	faker := gofakeit.New(42)
	defaults := Defaults{Index: "main", Source: "addin"}

	for i := 0; i < 100; i++ {
		raw := map[string]any{
			"timestamp": faker.Date().Format(time.RFC3339),
			"data": map[string]any{
				"user":   faker.Email(),
				"action": faker.HackerVerb(),
			},
		}
		if faker.Bool() {
			raw["host"] = faker.DomainName()
		}
		if faker.Bool() {
			raw["sourcetype"] = faker.Word()
		}

		once := encode(t, normalizeAt(decodeJSON(t, mustJSON(t, raw)), defaults, fixedNow))
		twice := encode(t, normalizeAt(decodeJSON(t, once), defaults, fixedNow.Add(time.Hour)))

		assert.JSONEq(t, once, twice)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
