// Package discord delivers notifications through a webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
)

const (
	embedTitleLimit       = 256
	embedDescriptionLimit = 4096
	embedColor            = 0x0099FF

	truncationMarker = "\n\n*(скраћено)*"
	unknownDateLabel = "Непознат датум"
	// Short bodies are usually image-only posts; show the image full size.
	thumbnailThreshold = 100
)

// Persona is the fixed display identity of the sending bot.
type Persona struct {
	Username   string
	AvatarURL  string
	AuthorName string
	AuthorURL  string
	FooterText string
}

// Notifier posts embed messages to a Discord webhook.
type Notifier struct {
	webhookURL string
	persona    Persona
	client     *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the webhook endpoint and bot persona.
func NewNotifier(webhookURL string, persona Persona, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{webhookURL: webhookURL, persona: persona, client: client}
}

type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Author      *embedAuthor `json:"author,omitempty"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Image       *embedMedia  `json:"image,omitempty"`
	Thumbnail   *embedMedia  `json:"thumbnail,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedAuthor struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedMedia struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Deliver posts one notification. A 429 response surfaces as
// *RateLimitedError so the pipeline can back off and retry; any other
// non-2xx response is a plain delivery failure.
func (n *Notifier) Deliver(ctx context.Context, notification domain.Notification) error {
	if n.webhookURL == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	payload := webhookPayload{
		Username:  n.persona.Username,
		AvatarURL: n.persona.AvatarURL,
		Embeds:    []embed{n.buildEmbed(notification)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ports.RateLimitedError{RetryAfter: parseRetryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error %s: %s", resp.Status, detail)
	}

	return nil
}

func (n *Notifier) buildEmbed(notification domain.Notification) embed {
	e := embed{
		Title: truncateRunes(notification.Title, embedTitleLimit),
		URL:   notification.Link,
		Color: embedColor,
	}

	if n.persona.AuthorName != "" {
		e.Author = &embedAuthor{Name: n.persona.AuthorName, URL: n.persona.AuthorURL}
	}
	if n.persona.FooterText != "" {
		e.Footer = &embedFooter{Text: n.persona.FooterText}
	}

	e.Description = notification.Body
	if len([]rune(e.Description)) > embedDescriptionLimit {
		cut := embedDescriptionLimit - len([]rune(truncationMarker))
		e.Description = string([]rune(e.Description)[:cut]) + truncationMarker
	}

	dateLabel := unknownDateLabel
	if !notification.PublishedAt.IsZero() {
		e.Timestamp = notification.PublishedAt.UTC().Format(time.RFC3339)
		dateLabel = notification.PublishedAt.UTC().Format("02.01.2006. 15:04")
	}
	e.Fields = append(e.Fields, embedField{Name: "📅 Објављено", Value: dateLabel, Inline: true})
	if notification.Category != "" {
		e.Fields = append(e.Fields, embedField{Name: "📂 Категорија", Value: notification.Category, Inline: true})
	}

	if notification.ImageURL != "" {
		if len([]rune(notification.Body)) < thumbnailThreshold {
			e.Image = &embedMedia{URL: notification.ImageURL}
		} else {
			e.Thumbnail = &embedMedia{URL: notification.ImageURL}
		}
	}

	return e
}

// parseRetryAfter reads the wait hint from the JSON body, falling back to
// the Retry-After header, then to a fixed pause.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	return 5 * time.Second
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
