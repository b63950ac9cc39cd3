// Package topology holds the static deployment facts for each environment:
// account identity, region, bucket naming, scheduling, and log retention.
package topology

import (
	"fmt"
)

// Environment names a deployment environment.
type Environment string

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"
)

// UnknownEnvironmentError reports an environment name with no profile.
type UnknownEnvironmentError struct {
	Name string
}

func (e UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment: %s", e.Name)
}

// ArtifactSource identifies the account and bucket suffix that own the shared
// model artifacts. It is a distinct type so a profile cannot accidentally
// derive its artifact bucket from its own suffix.
type ArtifactSource struct {
	AccountID string
	Suffix    string
}

// Profile is the static configuration of one environment.
type Profile struct {
	Environment        Environment
	AccountID          string
	Region             string
	InputBucketSuffix  string
	OutputBucketSuffix string
	// ArtifactSource is the owner of the model artifacts. Only dev produces
	// artifacts; prod consumes dev's bucket cross-account.
	ArtifactSource   ArtifactSource
	ScheduleEnabled  bool
	LogRetentionDays int
}

var profiles = map[Environment]Profile{
	EnvDev: {
		Environment:        EnvDev,
		AccountID:          "123456789012",
		Region:             "us-east-1",
		InputBucketSuffix:  "dev",
		OutputBucketSuffix: "dev",
		ArtifactSource:     ArtifactSource{AccountID: "123456789012", Suffix: "dev"},
		ScheduleEnabled:    false,
		LogRetentionDays:   7,
	},
	EnvProd: {
		Environment:        EnvProd,
		AccountID:          "987654321098",
		Region:             "us-east-1",
		InputBucketSuffix:  "prod",
		OutputBucketSuffix: "prod",
		// Prod never owns model artifacts; it reads dev's bucket.
		ArtifactSource:   ArtifactSource{AccountID: "123456789012", Suffix: "dev"},
		ScheduleEnabled:  true,
		LogRetentionDays: 30,
	},
}

// ParseEnvironment validates an environment name.
func ParseEnvironment(name string) (Environment, error) {
	env := Environment(name)
	switch env {
	case EnvDev, EnvProd:
		return env, nil
	default:
		return "", UnknownEnvironmentError{Name: name}
	}
}

// ProfileFor returns the profile for a known environment.
func ProfileFor(env Environment) (Profile, error) {
	p, ok := profiles[env]
	if !ok {
		return Profile{}, UnknownEnvironmentError{Name: string(env)}
	}
	return p, nil
}

// InputBucket is the environment's own input bucket name.
func (p Profile) InputBucket() string {
	return fmt.Sprintf("ds-input-%s-%s-%s", p.InputBucketSuffix, p.AccountID, p.Region)
}

// OutputBucket is the environment's own output bucket name.
func (p Profile) OutputBucket() string {
	return fmt.Sprintf("ds-output-%s-%s-%s", p.OutputBucketSuffix, p.AccountID, p.Region)
}

// ArtifactBucket is the bucket holding model artifacts. It is always derived
// from the artifact source's account and suffix, never from the profile's own.
func (p Profile) ArtifactBucket() string {
	return fmt.Sprintf("ds-artifacts-%s-%s-%s", p.ArtifactSource.Suffix, p.ArtifactSource.AccountID, p.Region)
}

// ScheduleSpec is the monthly trigger: day 15 of every month, 09:00 UTC.
const ScheduleSpec = "0 9 15 * *"
