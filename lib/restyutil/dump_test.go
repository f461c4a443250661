package restyutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpToDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-dashboard", "rpi")
		w.Write([]byte("<html>dashboard</html>"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewDirectoryOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	Dump(client, output, func(err error) {
		t.Errorf("unexpected write failure: %v", err)
	})

	_, err = client.R().SetHeader("user-agent", "covidtracker").Get(server.URL + "/dashboard")
	require.NoError(t, err)
	_, err = client.R().SetBody("ping").Post(server.URL)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	host := strings.ReplaceAll(server.Listener.Addr().String(), ":", "_")
	require.Equal(t, "001-"+host+".txt", entries[0].Name())
	require.Equal(t, "002-"+host+".txt", entries[1].Name())

	first, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(first), "GET "+server.URL+"/dashboard")
	require.Contains(t, string(first), "User-Agent: covidtracker")
	require.Contains(t, string(first), "X-Dashboard: rpi")
	require.Contains(t, string(first), "<html>dashboard</html>")

	second, err := os.ReadFile(filepath.Join(dir, entries[1].Name()))
	require.NoError(t, err)
	require.Contains(t, string(second), "ping")
}

func TestMessageId(t *testing.T) {
	require.Equal(t, "007-covid19.rpi.edu.txt", messageId(7, "https://covid19.rpi.edu/dashboard"))
	require.Equal(t, "001-127.0.0.1_8080.txt", messageId(1, "http://127.0.0.1:8080/"))
	require.Equal(t, "002-unknown.txt", messageId(2, "::"))
}

func TestFormatRequestBodyWithoutBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://covid19.rpi.edu/dashboard", nil)
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) {
		return nil, nil
	}
	require.Equal(t, "", formatRequestBody(req))

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("ping")), nil
	}
	require.Equal(t, "ping", formatRequestBody(req))
}
