package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrOutletNotFound is returned when the outlet service answers with a
	// non-success status for the given code
	ErrOutletNotFound = errors.New("outlet not found")

	// ErrOutletUnavailable is returned when the outlet service cannot be
	// reached or does not answer within the client timeout
	ErrOutletUnavailable = errors.New("outlet service unavailable")
)

// OutletVerifier confirms that an outlet code exists in the outlet service.
// The caller's bearer credential is forwarded as-is.
type OutletVerifier interface {
	VerifyOutlet(ctx context.Context, code, credential string) error
}

// OutletClient wraps the HTTP connection to the outlet service
type OutletClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOutletClient creates a new outlet service client. Each verification is a
// single attempt bounded by timeout; there are no retries.
func NewOutletClient(baseURL string, timeout time.Duration) *OutletClient {
	return &OutletClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// VerifyOutlet checks that the outlet with the given code exists.
// Returns ErrOutletNotFound for a non-2xx answer and ErrOutletUnavailable
// when the service is unreachable or times out.
func (c *OutletClient) VerifyOutlet(ctx context.Context, code, credential string) error {
	url := fmt.Sprintf("%s/outlet/by-code/%s", c.baseURL, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building outlet request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithFields(log.Fields{
			"outlet_code": code,
			"url":         url,
		}).WithError(err).Warn("Outlet service request failed")
		return ErrOutletUnavailable
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(log.Fields{
			"outlet_code": code,
			"status":      resp.StatusCode,
		}).Debug("Outlet lookup returned non-success status")
		return fmt.Errorf("%w: code %q", ErrOutletNotFound, code)
	}

	return nil
}
