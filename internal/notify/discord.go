package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"rpicovid/internal/change"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_discord_send = "discord.send"
)

var tracer = otel.Tracer("rpicovid/internal/notify")

const (
	colorRed   = 15158332
	colorGreen = 3066993

	chartFilename = "chart.png"
)

var DefaultEmojis = []string{"❤️", "✨", "🥓", "🦄", "🌯", "🍺", "🧻", "🐍", "🦀 unsafe 🦀"}

type DiscordOptions struct {
	Webhooks  []string
	Username  string
	AvatarUrl string
	// Content is the plain message posted above the embed.
	Content string
	// Emojis decorate the embed footer, one is picked at random per update.
	Emojis  []string
	Timeout time.Duration
}

// Discord posts updates as an embed to one or more Discord webhooks.
type Discord struct {
	options DiscordOptions
	http    *resty.Client
	tel     telemetry.API
	pick    func(n int) int
}

func NewDiscord(options DiscordOptions, tel telemetry.API) Discord {
	tel = telemetry.NewScopedAPI("discord", tel)
	if options.Username == "" {
		options.Username = "RPI Covid Dashboard"
	}
	if options.Content == "" {
		options.Content = "The RPI Covid Dashboard has been updated!"
	}
	if len(options.Emojis) == 0 {
		options.Emojis = DefaultEmojis
	}
	if options.Timeout <= 0 {
		options.Timeout = time.Second * 30
	}

	client := resty.New()
	client.SetTimeout(options.Timeout)
	telemetry.InstrumentResty(client, "rpicovid/discord/http", tel)

	return Discord{
		options: options,
		http:    client,
		tel:     tel,
		pick:    rand.IntN,
	}
}

func (d Discord) Name() string {
	return "discord"
}

type discordAuthor struct {
	Name    string `json:"name"`
	Url     string `json:"url,omitempty"`
	IconUrl string `json:"icon_url,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordImage struct {
	Url string `json:"url"`
}

type discordEmbed struct {
	Title  string         `json:"title,omitempty"`
	Color  int            `json:"color"`
	Author *discordAuthor `json:"author,omitempty"`
	Fields []discordField `json:"fields"`
	Footer *discordFooter `json:"footer,omitempty"`
	Image  *discordImage  `json:"image,omitempty"`
}

type discordPayload struct {
	Content   string         `json:"content,omitempty"`
	Username  string         `json:"username,omitempty"`
	AvatarUrl string         `json:"avatar_url,omitempty"`
	Embeds    []discordEmbed `json:"embeds"`
}

func (d Discord) embed(update Update) discordEmbed {
	color := colorGreen
	if update.Current[history.NewCases24h] > 0 {
		color = colorRed
	}

	deltas := map[history.Field]string{}
	for _, delta := range update.Deltas {
		deltas[delta.Field] = delta.Value
	}
	field := func(f history.Field, inline bool) discordField {
		value, ok := deltas[f]
		if !ok {
			value = change.FormatDelta(update.Current[f], update.Previous[f])
		}
		return discordField{Name: f.Label(), Value: value, Inline: inline}
	}

	fields := []discordField{
		field(history.NewCases24h, false),
		field(history.Positive7d, true),
		field(history.Tests7d, true),
	}
	if update.HasPositivityRate {
		fields = append(fields, discordField{
			Name:   "Weekly Positivity Rate",
			Value:  change.FormatRate(update.PositivityRate),
			Inline: true,
		})
	}
	fields = append(
		fields,
		discordField{
			Name:   fmt.Sprintf("Positive Tests (%d days)", history.WindowDays),
			Value:  update.RollingDelta(),
			Inline: true,
		},
		field(history.PositiveTotal, true),
		field(history.TestsTotal, true),
	)

	embed := discordEmbed{
		Color:  color,
		Fields: fields,
		Footer: &discordFooter{
			Text: fmt.Sprintf("%s\nMade with %s", update.Label, d.options.Emojis[d.pick(len(d.options.Emojis))]),
		},
	}
	if update.Url != "" {
		embed.Author = &discordAuthor{Name: "Click for dashboard", Url: update.Url}
	}
	if len(update.Chart) > 0 {
		embed.Image = &discordImage{Url: "attachment://" + chartFilename}
	}
	return embed
}

func (d Discord) payload(update Update) discordPayload {
	return discordPayload{
		Content:   d.options.Content,
		Username:  d.options.Username,
		AvatarUrl: d.options.AvatarUrl,
		Embeds:    []discordEmbed{d.embed(update)},
	}
}

// Send posts the update to every webhook, a failing webhook does not stop
// the others.
func (d Discord) Send(ctx context.Context, update Update) error {
	ctx, span := tracer.Start(ctx, "Discord.Send")
	defer span.End()
	span.SetAttributes(attribute.Int("webhooks", len(d.options.Webhooks)))

	payload, err := json.Marshal(d.payload(update))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode payload")
		return err
	}

	errlist := []error{}
	for i, webhook := range d.options.Webhooks {
		err := d.post(ctx, webhook, payload, update.Chart)
		if err != nil {
			// webhook urls carry their token, only the index is reported
			d.tel.ReportBroken(report_discord_send, fmt.Sprintf("webhook %d", i), err)
			errlist = append(errlist, fmt.Errorf("webhook %d: %w", i, err))
		}
	}
	err = errors.Join(errlist...)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post to some webhooks")
	}
	return err
}

func (d Discord) post(ctx context.Context, webhook string, payload, chart []byte) error {
	req := d.http.R().SetContext(ctx)
	if len(chart) > 0 {
		req.SetMultipartField("payload_json", "", "application/json", bytes.NewReader(payload)).
			SetMultipartField("file", chartFilename, "image/png", bytes.NewReader(chart))
	} else {
		req.SetHeader("content-type", "application/json").
			SetBody(payload)
	}

	res, err := req.Post(webhook)
	if err != nil {
		// the webhook url carries its token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
		}
		return err
	}
	if res.IsError() {
		return fmt.Errorf("unexpected status: %s: %s", res.Status(), res.String())
	}
	return nil
}
