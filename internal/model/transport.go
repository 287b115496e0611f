package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
)

const maxResponseBytes = 1 << 20

// vendorAPI is the JSON-over-HTTPS exchange both providers share. Only the
// headers and the error envelope differ per vendor.
type vendorAPI struct {
	name     string
	endpoint string
	client   *http.Client
	headers  func(http.Header)
	// errorText extracts the vendor's error message from a failed body.
	errorText func([]byte) string
}

func (v vendorAPI) post(ctx context.Context, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", v.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", v.name, err)
	}
	req.Header.Set("content-type", "application/json")
	v.headers(req.Header)

	resp, err := v.client.Do(req)
	if err != nil {
		return faults.Unavailable("model."+v.name, fmt.Errorf("call %s api: %w", v.name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return v.statusError(resp.StatusCode, raw)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", v.name, err)
	}
	return nil
}

// statusError classifies a failed call: rejected credentials are a
// configuration fault, throttling and vendor outages make the backend
// unavailable, anything else is a plain error.
func (v vendorAPI) statusError(status int, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	if len(raw) > 0 && v.errorText != nil {
		if parsed := strings.TrimSpace(v.errorText(raw)); parsed != "" {
			message = parsed
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}

	op := "model." + v.name
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return faults.Configuration(op, fmt.Sprintf("%s rejected the credential: %s", v.name, message))
	case status == http.StatusTooManyRequests:
		return faults.Unavailable(op, fmt.Errorf("%s rate limited: %s", v.name, message))
	case status >= 500:
		return faults.Unavailable(op, fmt.Errorf("%s api status %d: %s", v.name, status, message))
	default:
		return fmt.Errorf("%s api status %d: %s", v.name, status, message)
	}
}

// vendorError is the {"error":{"type","message"}} envelope both vendors use.
type vendorError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func vendorErrorText(raw []byte) string {
	var parsed vendorError
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}
