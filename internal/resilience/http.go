package resilience

import (
	"context"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

// maxResponseBytes bounds how much of an API response is read.
const maxResponseBytes = 10 << 20

// FetchBody sends the request produced by build under p and returns the
// response body. build is called once per attempt so request bodies can be
// replayed. Network errors and retryable statuses are retried.
func FetchBody(ctx context.Context, hc *http.Client, p Policy, service string, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	return DoVal(ctx, p, func(ctx context.Context) ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: build request", service)
		}

		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrapf(err, "%s: request", service)
			}
			return nil, NewTransientError(eris.Wrapf(err, "%s: request", service), 0)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, NewTransientError(eris.Wrapf(err, "%s: read body", service), resp.StatusCode)
		}
		if err := CheckStatus(service, resp.StatusCode, body); err != nil {
			return nil, err
		}
		return body, nil
	})
}
