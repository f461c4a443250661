package archive

import (
	"context"
	"fmt"
	"net/url"
	"rpicovid/internal/telemetry"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_capture = "client.capture"
)

const DefaultEndpoint = "https://web.archive.org"

var tracer = otel.Tracer("rpicovid/internal/archive")

// Client asks the Wayback Machine to archive a page with its "save page now"
// endpoint.
type Client struct {
	endpoint string
	http     *resty.Client
	tel      telemetry.API
}

func NewClient(endpoint string, tel telemetry.API) Client {
	tel = telemetry.NewScopedAPI("archive", tel)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	endpoint = strings.TrimRight(endpoint, "/")

	httpClient := resty.New()
	// archiving a page regularly takes longer than the dashboard itself
	httpClient.SetTimeout(time.Minute * 2)
	telemetry.InstrumentResty(httpClient, "rpicovid/archive/http", tel)

	return Client{
		endpoint: endpoint,
		http:     httpClient,
		tel:      tel,
	}
}

// Capture archives target and returns the url of the archived copy. A recent
// capture of the same page may be returned instead of a new one.
func (c Client) Capture(ctx context.Context, target string) (string, error) {
	ctx, span := tracer.Start(ctx, "Capture")
	defer span.End()
	span.SetAttributes(attribute.String("target", target))

	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/save/%s", c.endpoint, target))
	if err != nil {
		c.tel.ReportBroken(report_client_capture, fmt.Errorf("get: %w", err), target)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request capture")
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status: %s", res.Status())
		c.tel.ReportBroken(report_client_capture, err, target)
		span.SetStatus(codes.Error, "unexpected status")
		return "", err
	}

	location := res.Header().Get("Content-Location")
	if location != "" {
		archived, err := c.resolve(location)
		if err != nil {
			c.tel.ReportBroken(report_client_capture, err, location)
			return "", err
		}
		return archived, nil
	}

	// without a Content-Location the save endpoint redirects to the capture
	final := res.RawResponse.Request.URL.String()
	if strings.Contains(final, "/save/") {
		err := fmt.Errorf("no archived location in response")
		c.tel.ReportBroken(report_client_capture, err, target)
		return "", err
	}
	return final, nil
}

func (c Client) resolve(location string) (string, error) {
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse content-location: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
