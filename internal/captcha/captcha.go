// Package captcha verifies CAPTCHA challenge tokens against the external
// verification service.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Verifier checks a CAPTCHA challenge token submitted by a client.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// HTTPVerifier verifies tokens against the hosted siteverify endpoint.
type HTTPVerifier struct {
	siteKey   string
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewHTTPVerifier returns a verifier for the given site/secret key pair.
func NewHTTPVerifier(siteKey, secretKey, baseURL string) *HTTPVerifier {
	return &HTTPVerifier{
		siteKey:   siteKey,
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

// Verify posts the token to the siteverify endpoint. A non-2xx response or a
// transport failure counts as a failed verification, never a pass.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (bool, error) {
	if v.siteKey == "" || v.secretKey == "" {
		return false, fmt.Errorf("captcha configuration missing")
	}

	payload, err := json.Marshal(verifyRequest{Secret: v.secretKey, Response: token})
	if err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s/%s/siteverify", v.baseURL, v.siteKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("captcha verification request failed", "status", resp.Status)
		return false, nil
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Success, nil
}
