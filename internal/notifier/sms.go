package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient sends SMS through the Twilio messages API.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
	configured bool
}

func NewTwilioClient(accountSID, authToken, fromNumber string) *TwilioClient {
	c := &TwilioClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	if accountSID != "" && authToken != "" && fromNumber != "" {
		c.accountSID = accountSID
		c.authToken = authToken
		c.fromNumber = fromNumber
		c.configured = true
	}
	return c
}

func (c *TwilioClient) IsConfigured() bool {
	return c.configured
}

// SendSMS posts a single message to the Twilio REST API.
func (c *TwilioClient) SendSMS(ctx context.Context, toPhoneNumber, message string) error {
	if !c.configured {
		return fmt.Errorf("twilio client not configured, sms to %s skipped", toPhoneNumber)
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", c.accountSID)

	data := url.Values{}
	data.Set("To", toPhoneNumber)
	data.Set("From", c.fromNumber)
	data.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Twilio request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		return fmt.Errorf("twilio API returned status %d: %s", resp.StatusCode, buf.String())
	}
	return nil
}
