// Package policy fetches the enforcement policy (the DNS server list this
// machine must pin) from S3 for fleet-wide management. The document is
// fetched securely with support for IAM roles and credential management,
// and re-fetched on a configurable schedule so a policy change re-arms the
// running session without a restart.
package policy

import (
	"context"
	"fmt"
	"io"
	"time"

	"dnsanchor/internal/config"
	"dnsanchor/internal/netconf"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// maxPolicySize caps the policy document read; a server list has no
// business being larger than this.
const maxPolicySize = 1 * 1024 * 1024

// Document is the enforcement policy as stored in S3.
type Document struct {
	Version string    `yaml:"version"`
	Updated time.Time `yaml:"updated"`
	Servers []string  `yaml:"servers"`
}

// Fetcher fetches policy documents from S3
type Fetcher struct {
	s3Client *s3.Client
	bucket   string
	key      string
}

// NewFetcher creates a new S3 policy fetcher
func NewFetcher(cfg *config.PolicyConfig) (*Fetcher, error) {
	ctx := context.Background()

	// Get credentials securely
	creds, err := config.GetAWSCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get AWS credentials: %v", err)
	}

	var awsCfg aws.Config

	switch creds.Source {
	case config.CredentialSourceEnvironment, config.CredentialSourceConfig:
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				"",
			)),
		)
	default:
		// Use default credential chain (IAM role, etc.)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	logrus.Infof("Using AWS credentials from: %s", creds.Source)

	return &Fetcher{
		s3Client: s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		key:      cfg.PolicyPath,
	}, nil
}

// Fetch downloads and parses the policy document.
func (f *Fetcher) Fetch(ctx context.Context) (*Document, error) {
	if f.bucket == "" || f.key == "" {
		return nil, fmt.Errorf("policy bucket or key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policy from S3: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %v", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"version": doc.Version,
		"servers": len(doc.Servers),
	}).Info("Fetched enforcement policy from S3")

	return doc, nil
}

// Parse decodes and validates a policy document. Every server literal must
// parse; a half-valid policy is rejected whole rather than enforced
// partially.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %v", err)
	}

	if len(doc.Servers) == 0 {
		return nil, fmt.Errorf("policy names no DNS servers")
	}
	if _, err := netconf.ParseServers(doc.Servers); err != nil {
		return nil, fmt.Errorf("policy is invalid: %w", err)
	}

	return &doc, nil
}

// ServersChanged reports whether two policies name different server lists.
// Order matters; a reordering is a policy change.
func ServersChanged(current, updated []string) bool {
	if len(current) != len(updated) {
		return true
	}
	for i := range current {
		if current[i] != updated[i] {
			return true
		}
	}
	return false
}
