package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is a thin Twilio REST adapter: line-type lookup, SMS send and
// authenticated recording download. No SDK; the three endpoints the core
// needs are plain HTTP.
//
// Every method is bounded by the HTTP client timeout. Callers treat failures
// as soft per the pipeline's fail-soft design; the retry budget here stays
// small so a slow provider cannot stall webhook handling.
type Client struct {
	accountSID string
	authToken  string

	apiBaseURL    string
	lookupBaseURL string

	http *http.Client
}

func NewClient(accountSID, authToken string) *Client {
	return &Client{
		accountSID:    accountSID,
		authToken:     authToken,
		apiBaseURL:    "https://api.twilio.com",
		lookupBaseURL: "https://lookups.twilio.com",
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// LookupLineType classifies a caller number via Lookups v2 line type intelligence.
// Returns values like "mobile", "landline", "nonFixedVoip".
func (c *Client) LookupLineType(ctx context.Context, number string) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/PhoneNumbers/%s?Fields=line_type_intelligence",
		c.lookupBaseURL, url.PathEscape(number))

	var parsed struct {
		LineTypeIntelligence struct {
			Type string `json:"type"`
		} `json:"line_type_intelligence"`
	}
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		return c.decodeJSON(req, &parsed)
	})
	if err != nil {
		return "", err
	}
	if parsed.LineTypeIntelligence.Type == "" {
		return "", fmt.Errorf("telephony: lookup returned no line type for %s", number)
	}
	return parsed.LineTypeIntelligence.Type, nil
}

// SendSMS sends one outbound message through the Messages endpoint.
func (c *Client) SendSMS(ctx context.Context, from, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		c.apiBaseURL, url.PathEscape(c.accountSID))

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)
	encoded := form.Encode()

	return c.doWithRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("telephony: sms send server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return backoff.Permanent(fmt.Errorf("telephony: sms send failed %d: %s", resp.StatusCode, b))
		}
		return nil
	})
}

// DownloadRecording fetches the recorded audio with account credentials.
// The recording URL should already be normalized to the audio file convention.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telephony: recording download failed %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) decodeJSON(req *http.Request, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("telephony: server error %d from %s", resp.StatusCode, req.URL.Host)
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return backoff.Permanent(fmt.Errorf("telephony: request failed %d: %s", resp.StatusCode, b))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return backoff.Permanent(fmt.Errorf("telephony: decode response: %w", err))
	}
	return nil
}

// doWithRetry retries transient failures (transport errors, 5xx) a couple of
// times with exponential backoff, bounded by ctx.
func (c *Client) doWithRetry(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 8 * time.Second

	return backoff.Retry(func() error {
		return op(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
}
