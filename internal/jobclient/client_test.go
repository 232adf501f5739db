package jobclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

func TestClient_RoundTrip(t *testing.T) {
	var submitted types.JobRequest
	checks := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/optimize", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		_, _ = w.Write([]byte(`{"jobId":"abc","status":"processing","totalCandidates":1}`))
	})
	mux.HandleFunc("GET /api/optimize/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.PathValue("id"))
		checks++
		if checks < 2 {
			_, _ = w.Write([]byte(`{"status":"processing","processedCandidates":0,"totalCandidates":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","processedCandidates":1,"totalCandidates":1}`))
	})
	mux.HandleFunc("GET /api/optimize/results/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"original_bullets":["a"],"revised_bullets":["a+"],"scores":[{"score":0.9}]}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL+"/", "", 0)
	ctx := context.Background()

	sub, err := client.Submit(ctx, types.JobRequest{JobDescription: "jd", Bullets: []string{"a"}, Settings: types.JobSettings{Tone: "concise"}})
	require.NoError(t, err)
	assert.Equal(t, "abc", sub.JobID)
	assert.Equal(t, "concise", submitted.Settings.Tone)

	cfg := optimizer.PollConfig{Interval: time.Millisecond, MaxAttempts: 5}
	completed, err := optimizer.PollJob(ctx, client, sub.JobID, cfg)
	require.NoError(t, err)

	results := optimizer.FirstCandidateResults(sub.JobID, completed)
	require.Len(t, results.Bullets, 1)
	assert.Equal(t, []string{"a+"}, results.Bullets[0].Revised)
	require.NotNil(t, results.Bullets[0].Score)
	assert.InDelta(t, 0.9, *results.Bullets[0].Score, 1e-9)
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"job not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "", 0).Status(context.Background(), "missing")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "job not found", statusErr.Message)
}

func TestClient_SubmitMissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "", 0).Submit(context.Background(), types.JobRequest{})
	assert.Error(t, err)
}

func TestClient_SendsServiceKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "with key", key: "jobs-key", want: "Bearer jobs-key"},
		{name: "without key", key: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = append(got, r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{"jobId":"abc","status":"processing","totalCandidates":1}`))
			}))
			defer server.Close()

			client := New(server.URL, tt.key, 0)
			_, err := client.Submit(context.Background(), types.JobRequest{})
			require.NoError(t, err)
			_, err = client.Status(context.Background(), "abc")
			require.NoError(t, err)

			assert.Equal(t, []string{tt.want, tt.want}, got)
		})
	}
}
