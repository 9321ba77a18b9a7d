package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postJSON sends payload and decodes a JSON success body into out (if non-nil),
// returning the response headers. Non-2xx responses become a *SendError
// carrying the provider's message.
func (h httpSender) postJSON(ctx context.Context, provider, path string, headers map[string]string, payload, out any) (http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SendError{Provider: provider, Reason: "marshal email", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &SendError{Provider: provider, Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &SendError{Provider: provider, Reason: "send email", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		reason := readErrorMessage(resp)
		if reason == "" {
			reason = fmt.Sprintf("%s API error", provider)
		}
		return nil, &SendError{Provider: provider, Reason: reason, Status: resp.StatusCode}
	}

	if out != nil {
		// A malformed success body still means the message was accepted.
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.Header, nil
}

func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ""
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return strings.TrimSpace(string(raw))
	}

	var data struct {
		Message string `json:"message"`
		PascalM string `json:"Message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch {
	case data.Message != "":
		return data.Message
	case data.PascalM != "":
		return data.PascalM
	}
	var msgs []string
	for _, e := range data.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
