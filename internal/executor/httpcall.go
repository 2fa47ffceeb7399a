package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cuehook/cuehook/internal/config"
	"github.com/cuehook/cuehook/pkg/httpclient"
)

// connectTimeout is the fixed dial timeout applied to every HttpCall,
// independent of the action's own overall timeout.
const connectTimeout = 500 * time.Millisecond

// successStatusCodes is the [200,399] range that defines a successful
// HttpCall response.
var successStatusCodes = httpclient.MustParseStatusCodes("200-399")

// newHTTPClient builds a resilient client scoped to a single overall
// request timeout. RetryAttempts is fixed at 0: this package drives its own
// outer retry loop per Action.RetryCount(), since the teacher's built-in
// retry only triggers on network errors and a fixed set of retryable
// statuses (429/502/503/504), not on the full [200,399]-is-success rule an
// Action needs.
func newHTTPClient(overallTimeout time.Duration) *httpclient.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	base := &http.Client{
		Timeout: overallTimeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
	}
	return httpclient.New(httpclient.Config{
		Timeout:               overallTimeout,
		RetryAttempts:         0,
		AcceptableStatusCodes: successStatusCodes,
		BaseClient:            base,
	})
}

// callHTTP executes a single HttpCall attempt, following a's method, URL,
// authorization, headers and body exactly as configured.
func callHTTP(ctx context.Context, client *httpclient.Client, a config.Action) (status int, err error) {
	var body io.Reader
	if a.Body != "" {
		body = bytes.NewReader([]byte(a.Body))
	}

	req, err := http.NewRequestWithContext(ctx, string(a.Method), a.URL, body)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
	if a.Authorization != nil && a.Authorization.Basic != nil {
		req.SetBasicAuth(a.Authorization.Basic.Username, a.Authorization.Basic.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// isSuccess reports whether an HTTP status code counts as a successful
// HttpCall per the fixed [200,399] policy.
func isSuccess(status int) bool {
	return successStatusCodes.Contains(status)
}
