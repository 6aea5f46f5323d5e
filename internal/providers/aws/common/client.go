package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. It is the unit passed from the CLI layer into
// the engine for one customer's run.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the home region for this profile configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients scoped to this profile's
	// home region. Use AWSClientProvider.ConfigForRegion plus the factory to
	// obtain region-scoped clients for regional providers.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations for customer profiles.
// It is the sole entry point for AWS credential management across the
// provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string to load the default profile.
	LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error)

	// ConfigForRegion clones cfg with the target region set.
	// Use the returned aws.Config to construct region-scoped SDK clients.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config
}
