// internal/common/aws/config.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadConfig resolves credentials through the default provider chain once per
// process. Every client in this package is built from the returned config.
//
// Clients make exactly one attempt per call. Retries belong to the callers
// that own a policy for them: the scheduler retries signature expiry itself,
// and a repeated conditional PutItem would report its own success as a
// conflict.
func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(singleAttempt),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}

func singleAttempt() awssdk.Retryer {
	return awssdk.NopRetryer{}
}
