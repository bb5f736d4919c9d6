package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

const localRegion = "us-east-1"

// LoadAWSConfig loads the default SDK config. AWS_ENDPOINT points every
// client at one base URL (LocalStack), defaulting the region when none is set.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	endpoint := os.Getenv("AWS_ENDPOINT")

	var opts []func(*config.LoadOptions) error
	if endpoint != "" && os.Getenv("AWS_REGION") == "" {
		opts = append(opts, config.WithRegion(localRegion))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("load aws config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}
