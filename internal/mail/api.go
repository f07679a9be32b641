package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSendPause spaces per-recipient sends to stay under the provider's
// submission rate.
const DefaultSendPause = time.Second

// APIConfig configures the transactional-email transport.
type APIConfig struct {
	BaseURL      string
	SenderEmail  string
	ClientID     string
	ClientSecret string
	TemplateID   string
}

// APISender delivers mail through a transactional-email HTTP API using a
// bearer token obtained via a client-credential exchange.
type APISender struct {
	client *http.Client
	cfg    APIConfig
	token  string
	pause  time.Duration
	logger *slog.Logger
}

// NewAPISender performs the token exchange and returns a ready sender.
// A nil httpClient gets a 30 second timeout default.
func NewAPISender(ctx context.Context, cfg APIConfig, httpClient *http.Client, logger *slog.Logger) (*APISender, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &APISender{
		client: httpClient,
		cfg:    cfg,
		pause:  DefaultSendPause,
		logger: logger,
	}

	token, err := s.fetchAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain access token: %w", err)
	}
	s.token = token
	return s, nil
}

func (s *APISender) fetchAccessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.Data.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}
	return body.Data.AccessToken, nil
}

// Send posts one submission per recipient with a fixed pause between them.
// Plain-text bodies are wrapped into minimal HTML first.
func (s *APISender) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	body := htmlBody
	if !strings.HasPrefix(strings.TrimSpace(body), "<") {
		body = "<p>" + strings.ReplaceAll(body, "\n", "<br>") + "</p>"
	}

	var failed []string
	for i, recipient := range recipients {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pause):
			}
		}

		if err := s.sendOne(ctx, recipient, subject, body); err != nil {
			s.logger.Error("send failed", "recipient", recipient, "error", err)
			failed = append(failed, recipient)
			continue
		}
		s.logger.Info("mail submitted", "recipient", recipient)
	}

	if len(failed) > 0 {
		return fmt.Errorf("delivery failed for %d of %d recipients: %s",
			len(failed), len(recipients), strings.Join(failed, ", "))
	}
	return nil
}

func (s *APISender) sendOne(ctx context.Context, recipient, subject, body string) error {
	form := url.Values{}
	form.Add("emails", recipient)
	form.Set("prospect_id", "0")
	form.Set("template_id", s.cfg.TemplateID)
	form.Set("subject", subject)
	form.Set("content", body)
	form.Set("sender", s.cfg.SenderEmail)
	form.Set("reply_email", s.cfg.SenderEmail)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/send/email", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
