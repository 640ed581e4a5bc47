// internal/workers/communication/follow-up-email/retry.go
package followupemail

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/aws/smithy-go"
)

var signatureExpiryCodes = map[string]bool{
	"ExpiredToken":          true,
	"ExpiredTokenException": true,
	"RequestExpired":        true,
	"SignatureExpired":      true,
}

// IsSignatureExpired reports whether err is the credential/signature expiry
// class of transport failure.
func IsSignatureExpired(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		if signatureExpiryCodes[apiErr.ErrorCode()] {
			return true
		}
		if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "signature expired") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "signature expired")
}

// backoff returns the wait before attempt n+1: base, 2*base, 4*base...
func backoff(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
