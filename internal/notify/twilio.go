package notify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTwilioBaseURL = "https://api.twilio.com"
	DefaultCountryPrefix = "+88"
)

// TwilioConfig holds the account credentials and sender number.
type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	FromPhone     string
	CountryPrefix string
	BaseURL       string
	Timeout       time.Duration
}

// Twilio sends SMS through the Twilio REST API.
type Twilio struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilio returns a Twilio gateway.
func NewTwilio(cfg TwilioConfig) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromPhone == "" {
		return nil, fmt.Errorf("twilio: account_sid, auth_token and from_phone are required")
	}
	if cfg.CountryPrefix == "" {
		cfg.CountryPrefix = DefaultCountryPrefix
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Twilio{
		cfg:    cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
	}, nil
}

// Send posts one message. Any status other than 200 or 201 is an error.
func (t *Twilio) Send(ctx context.Context, phone, message string) error {
	phone, message, err := normalize(phone, message)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("From", t.cfg.FromPhone)
	form.Set("To", t.cfg.CountryPrefix+phone)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		t.cfg.BaseURL, url.PathEscape(t.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("twilio: returned status code was: %d", resp.StatusCode)
	}
	return nil
}
