package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
	"rpicovid/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_fetch = "client.fetch"
	report_client_parse = "client.parse"
)

const DefaultUrl = "https://covid19.rpi.edu/dashboard"

var tracer = otel.Tracer("rpicovid/internal/scrapers/dashboard")

// ErrMalformedPage is returned when the dashboard does not contain the
// expected statistics.
var ErrMalformedPage = errors.New("malformed dashboard page")

type Options struct {
	Url       string
	UserAgent string
	Timeout   time.Duration
	Retries   int
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	Selectors        Selectors
	// DumpDir keeps a copy of every http exchange in the directory when set.
	DumpDir string
}

type Client struct {
	url       string
	http      *resty.Client
	selectors Selectors
	time      chrono.TimeAPI
	tel       telemetry.API
}

func NewClient(opts Options, clock chrono.TimeAPI, tel telemetry.API) (Client, error) {
	tel = telemetry.NewScopedAPI("dashboard_scraper", tel)

	if opts.Url == "" {
		opts.Url = DefaultUrl
	}
	parsedUrl, err := url.Parse(opts.Url)
	if err != nil {
		return Client{}, fmt.Errorf("parse dashboard url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	if opts.UserAgent != "" {
		httpClient.SetHeader("user-agent", opts.UserAgent)
	}
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRetryCount(opts.Retries)

	telemetry.InstrumentResty(httpClient, "rpicovid/dashboard/http", tel)
	if opts.DumpDir != "" {
		output, err := restyutil.NewDirectoryOutput(opts.DumpDir)
		if err != nil {
			return Client{}, fmt.Errorf("create dump directory: %w", err)
		}
		restyutil.Dump(httpClient, output, func(err error) {
			tel.ReportWarning(report_client_fetch, "failed to dump http exchange", err)
		})
	}

	return Client{
		url:       parsedUrl.String(),
		http:      httpClient,
		selectors: opts.Selectors.withDefaults(),
		time:      clock,
		tel:       tel,
	}, nil
}

// Url returns the dashboard url the client scrapes.
func (c Client) Url() string {
	return c.url
}

// Fetch downloads the dashboard and returns its statistics dated with the
// current day of the client's clock.
func (c Client) Fetch(ctx context.Context) (history.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("get: %w", err), c.url)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch dashboard")
		return history.Snapshot{}, err
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status: %s", res.Status())
		c.tel.ReportBroken(report_client_fetch, err, c.url)
		span.SetStatus(codes.Error, "unexpected status")
		return history.Snapshot{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_parse, fmt.Errorf("parse html: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return history.Snapshot{}, err
	}

	page, err := parsePage(doc, c.selectors)
	if err != nil {
		c.tel.ReportBroken(report_client_parse, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse dashboard")
		return history.Snapshot{}, err
	}
	if !page.labelled {
		c.tel.ReportWarning(report_client_parse, "stat captions did not match, using page order", page.captions)
	}

	c.tel.ReportDebug("fetched dashboard", page.counts, page.label)
	return history.Snapshot{
		Counts: page.counts,
		Date:   history.DateOf(c.time.Now()),
		Label:  page.label,
	}, nil
}
