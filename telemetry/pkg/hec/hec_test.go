package hec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationHeader(t *testing.T) {
	assert.Equal(t, "Splunk tok", AuthorizationHeader("tok"))
}

func TestEventURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "bare host", base: "https://hec.example.com:8088", want: "https://hec.example.com:8088/services/collector/event"},
		{name: "trailing slash", base: "https://hec.example.com/", want: "https://hec.example.com/services/collector/event"},
		{name: "already full", base: "https://hec.example.com/services/collector/event", want: "https://hec.example.com/services/collector/event"},
		{name: "path prefix", base: "http://proxy.local/splunk", want: "http://proxy.local/splunk/services/collector/event"},
		{name: "no scheme", base: "hec.example.com", wantErr: true},
		{name: "ftp", base: "ftp://hec.example.com", wantErr: true},
		{name: "empty", base: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EventURL(tt.base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeBatch(t *testing.T) {
	events := []Event{
		{Time: 1700000000, Host: "h1", Event: map[string]any{"a": 1}},
		{Time: 1700000001, Index: "main", Event: "<b>text</b>"},
	}

	data, err := EncodeBatch(events)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"time":1700000000,"host":"h1","event":{"a":1}}`, lines[0])
	assert.JSONEq(t, `{"time":1700000001,"index":"main","event":"<b>text</b>"}`, lines[1])
	assert.Contains(t, lines[1], "<b>", "HTML must not be escaped")
}

func TestEncodeBatch_Empty(t *testing.T) {
	data, err := EncodeBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestParseResponse(t *testing.T) {
	resp, ok := ParseResponse([]byte(`{"text":"Success","code":0}`))
	assert.True(t, ok)
	assert.Equal(t, "Success", resp.Text)

	resp, ok = ParseResponse([]byte(`{"text":"Invalid authorization","code":4}`))
	assert.True(t, ok)
	assert.Equal(t, Response{Text: "Invalid authorization", Code: 4}, resp)

	_, ok = ParseResponse([]byte("<html>bad gateway</html>"))
	assert.False(t, ok)

	_, ok = ParseResponse([]byte(`{"other":1}`))
	assert.False(t, ok)
}

func TestValidateEvent(t *testing.T) {
	assert.NoError(t, ValidateEvent(Event{Time: 1, Event: "x"}))
	assert.NoError(t, ValidateEvent(Event{Time: 1, Event: map[string]any{}}))

	err := ValidateEvent(Event{Time: 1})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Equal(t, "Invalid data format", err.Error())
}
