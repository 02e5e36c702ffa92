package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	userAgent       = "Campus-Guardian/1.0"
	signatureHeader = "X-Signature-256"
	deliveryHeader  = "X-Campus-Delivery"
)

// endpoint is an HTTP destination that accepts JSON notifications.
type endpoint struct {
	channel string
	url     string
	client  *http.Client
	// accepts reports whether a response status counts as delivered.
	accepts func(status int) bool
}

func newEndpoint(channel, url string, accepts func(int) bool) endpoint {
	return endpoint{
		channel: channel,
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		accepts: accepts,
	}
}

func any2xx(status int) bool { return status >= 200 && status < 300 }

func only200(status int) bool { return status == http.StatusOK }

// post encodes payload and sends it. header may add request headers derived from the body.
func (e endpoint) post(ctx context.Context, payload any, header func(h http.Header, body []byte)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", e.channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if header != nil {
		header(req.Header, body)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s notification: %w", e.channel, err)
	}
	defer resp.Body.Close()

	if !e.accepts(resp.StatusCode) {
		return fmt.Errorf("%s returned status %d", e.channel, resp.StatusCode)
	}
	return nil
}

// sign returns the HMAC-SHA256 signature header value for body.
func sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
