package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"rpicovid/internal/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDiscord(webhooks ...string) (Discord, *telemetry.RecorderAPI) {
	tel := &telemetry.RecorderAPI{}
	d := NewDiscord(DiscordOptions{Webhooks: webhooks}, tel)
	d.pick = func(n int) int { return 0 }
	return d, tel
}

func TestDiscordEmbed(t *testing.T) {
	d, _ := newTestDiscord()
	update := testUpdate()

	embed := d.embed(update)
	require.Equal(t, colorRed, embed.Color)
	require.Equal(t, "Positive Tests (24 hours)", embed.Fields[0].Name)
	require.Equal(t, "3 (+3)", embed.Fields[0].Value)
	require.False(t, embed.Fields[0].Inline)
	require.Equal(t, "Updated October 19, 2020\nMade with ❤️", embed.Footer.Text)
	require.Equal(t, update.Url, embed.Author.Url)
	require.Nil(t, embed.Image)

	names := []string{}
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "Weekly Positivity Rate")
	require.Contains(t, names, "Positive Tests (14 days)")

	update.Current[0] = 0
	update.HasPositivityRate = false
	update.Chart = []byte{1}
	embed = d.embed(update)
	require.Equal(t, colorGreen, embed.Color)
	require.Equal(t, "attachment://chart.png", embed.Image.Url)
	for _, f := range embed.Fields {
		require.NotEqual(t, "Weekly Positivity Rate", f.Name)
	}
}

func TestDiscordSendJSON(t *testing.T) {
	var payload discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("content-type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d, _ := newTestDiscord(server.URL)
	require.NoError(t, d.Send(context.Background(), testUpdate()))
	require.Equal(t, "RPI Covid Dashboard", payload.Username)
	require.Len(t, payload.Embeds, 1)
}

func TestDiscordSendChart(t *testing.T) {
	chart := []byte("\x89PNG\r\n\x1a\nnot really a png")
	var payload discordPayload
	var file []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("payload_json")), &payload))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "chart.png", header.Filename)
		file, err = io.ReadAll(f)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	update := testUpdate()
	update.Chart = chart
	d, _ := newTestDiscord(server.URL)
	require.NoError(t, d.Send(context.Background(), update))
	require.Equal(t, chart, file)
	require.Equal(t, "attachment://chart.png", payload.Embeds[0].Image.Url)
}

func TestDiscordSendPartialFailure(t *testing.T) {
	hits := 0
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer broken.Close()

	d, tel := newTestDiscord(broken.URL, ok.URL)
	err := d.Send(context.Background(), testUpdate())
	require.ErrorContains(t, err, "webhook 0")
	require.Equal(t, 1, hits)
	require.NotEmpty(t, tel.Reports("broken"))
}

func TestDiscordSendRedactsWebhook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	webhook := server.URL + "/api/webhooks/1/secret-token"
	server.Close()

	d, tel := newTestDiscord(webhook)
	err := d.Send(context.Background(), testUpdate())
	require.Error(t, err)
	require.ErrorContains(t, err, "webhook 0")
	require.NotContains(t, err.Error(), "secret-token")

	reports := tel.Reports("broken")
	require.NotEmpty(t, reports)
	for _, report := range reports {
		require.NotContains(t, fmt.Sprint(report.Params...), "secret-token")
	}
}
