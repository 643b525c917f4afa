package config

import (
	"fmt"
	"os"
)

// CredentialSource represents where credentials come from
type CredentialSource string

const (
	CredentialSourceNone        CredentialSource = "none"
	CredentialSourceEnvironment CredentialSource = "environment"
	CredentialSourceConfig      CredentialSource = "config"
	CredentialSourceIAMRole     CredentialSource = "iam-role"
)

// AWSCredentials holds AWS credential information
type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Source          CredentialSource
}

// GetAWSCredentials retrieves AWS credentials from the most secure available source
func GetAWSCredentials(policy *PolicyConfig) (*AWSCredentials, error) {
	// Priority order (most secure to least secure):
	// 1. IAM Role (no credentials needed)
	// 2. Environment variables
	// 3. Config file (deprecated, will warn)

	// Check for IAM role by looking for specific environment variables
	if os.Getenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI") != "" ||
		os.Getenv("AWS_CONTAINER_CREDENTIALS_FULL_URI") != "" ||
		os.Getenv("AWS_EXECUTION_ENV") != "" {
		return &AWSCredentials{
			Source: CredentialSourceIAMRole,
		}, nil
	}

	// Check environment variables
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if accessKey != "" && secretKey != "" {
		return &AWSCredentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			Source:          CredentialSourceEnvironment,
		}, nil
	}

	// Check config file (deprecated)
	if policy.AccessKeyID != "" && policy.SecretKey != "" {
		fmt.Fprintf(os.Stderr, "WARNING: AWS credentials found in config file. This is insecure!\n")
		fmt.Fprintf(os.Stderr, "Please use environment variables or IAM roles instead.\n")
		fmt.Fprintf(os.Stderr, "Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables.\n\n")

		return &AWSCredentials{
			AccessKeyID:     policy.AccessKeyID,
			SecretAccessKey: policy.SecretKey,
			Source:          CredentialSourceConfig,
		}, nil
	}

	// No credentials found - AWS SDK will try default credential chain
	return &AWSCredentials{
		Source: CredentialSourceNone,
	}, nil
}
