package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"rpicovid/internal/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

const dashboardUrl = "https://covid19.rpi.edu/dashboard"

func TestCaptureContentLocation(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Location", "/web/20201019120000/https://covid19.rpi.edu/dashboard")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", &telemetry.RecorderAPI{})
	archived, err := client.Capture(context.Background(), dashboardUrl)
	require.NoError(t, err)
	require.Equal(t, "/save/"+dashboardUrl, requested)
	require.Equal(t, server.URL+"/web/20201019120000/https://covid19.rpi.edu/dashboard", archived)
}

func TestCaptureRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/save/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/web/20201019120000/dashboard", http.StatusFound)
	})
	mux.HandleFunc("/web/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, &telemetry.RecorderAPI{})
	archived, err := client.Capture(context.Background(), dashboardUrl)
	require.NoError(t, err)
	require.Equal(t, server.URL+"/web/20201019120000/dashboard", archived)
}

func TestCaptureFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tel := &telemetry.RecorderAPI{}
	client := NewClient(server.URL, tel)
	_, err := client.Capture(context.Background(), dashboardUrl)
	require.Error(t, err)
	require.NotEmpty(t, tel.Reports("broken"))
}
