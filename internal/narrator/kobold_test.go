package narrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKobold_Request(t *testing.T) {
	var got koboldRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, koboldGeneratePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[{"text":" alley, warehouse \n"}]}`))
	}))
	defer srv.Close()

	k := NewKobold(srv.URL+"/", 80)
	text, err := k.Request(context.Background(), "list places")
	require.NoError(t, err)
	assert.Equal(t, "alley, warehouse", text)
	assert.Equal(t, "Request:\nlist places\nResponse:\n", got.Prompt)
	assert.Equal(t, 80, got.MaxLength)
	assert.Equal(t, koboldStopSequences, got.StopSequence)
}

func TestKobold_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusServiceUnavailable, "busy", "status 503"},
		{"bad json", http.StatusOK, "{", "decoding"},
		{"no results", http.StatusOK, `{"results":[]}`, ErrEmptyResponse.Error()},
		{"blank text", http.StatusOK, `{"results":[{"text":"   "}]}`, ErrEmptyResponse.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewKobold(srv.URL, 10).Request(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should contain %q", err, tt.want)
		})
	}
}

func TestKobold_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewKobold(url, 10).Request(context.Background(), "p")
	assert.Error(t, err)
}
