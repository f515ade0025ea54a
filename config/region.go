package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/pkg/errors"
)

// LoadAWS loads the default AWS configuration, pinned to region when it is
// not empty.
func LoadAWS(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "load AWS config")
	}
	return cfg, nil
}

// ResolveRegion picks the deployment region: the first non-empty candidate,
// then whatever the AWS default chain resolves (AWS_REGION, shared config
// profile).
func ResolveRegion(ctx context.Context, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return c, nil
		}
	}
	cfg, err := LoadAWS(ctx, "")
	if err != nil {
		return "", err
	}
	if cfg.Region == "" {
		return "", errors.New("no region configured: set --region, " + EnvRegion + " or AWS_REGION")
	}
	return cfg.Region, nil
}
