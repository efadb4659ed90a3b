package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPRequestAction performs an outbound HTTP call with fully templated
// URL, method, headers, body and basic-auth credentials.
type HTTPRequestAction struct {
	client *http.Client
}

func (a *HTTPRequestAction) Type() string { return "http.request" }

func (a *HTTPRequestAction) Fields() []FieldSpec {
	return []FieldSpec{
		{Name: "url", Label: "URL", Type: FieldTypeTemplate, Required: true},
		{Name: "method", Label: "HTTP method", Type: FieldTypeTemplate},
		{Name: "headers", Label: "Headers, one Key: Value per line", Type: FieldTypeTemplate},
		{Name: "body", Label: "Request body", Type: FieldTypeTemplate},
		{Name: "username", Label: "Basic auth username", Type: FieldTypeTemplate},
		{Name: "password", Label: "Basic auth password", Type: FieldTypeTemplate},
		{Name: "timeout_seconds", Label: "Request timeout in seconds", Type: FieldTypeInteger},
		{Name: "fail_on_status", Label: "Treat non-2xx responses as failure", Type: FieldTypeBoolean},
	}
}

func (a *HTTPRequestAction) Execute(ctx context.Context, rendered map[string]string, _ *ExecContext) error {
	url := strings.TrimSpace(rendered["url"])
	if url == "" {
		return fmt.Errorf("http.request: empty url")
	}
	method := strings.ToUpper(strings.TrimSpace(rendered["method"]))
	if method == "" {
		method = http.MethodPost
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(rendered["timeout_seconds"])); err == nil && secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	var body io.Reader
	if rendered["body"] != "" {
		body = strings.NewReader(rendered["body"])
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("http.request: build request: %w", err)
	}
	for _, line := range strings.Split(rendered["headers"], "\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			req.Header.Set(name, strings.TrimSpace(value))
		}
	}
	if user := rendered["username"]; user != "" {
		req.SetBasicAuth(user, rendered["password"])
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("http.request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if truthyFlag(rendered["fail_on_status"]) && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("http.request: unexpected status %d from %s", resp.StatusCode, url)
	}
	return nil
}

func truthyFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
