package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves region and credentials. Static keys win over the default chain.
func loadAWSConfig(ctx context.Context, region string, creds AWSCredentials) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if creds.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// encodeForAWS renders the message body and the non-empty string attributes shared by SQS and SNS.
func encodeForAWS(evt Event) (string, map[string]*string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", nil, fmt.Errorf("marshal event: %w", err)
	}
	attrs := make(map[string]*string)
	for k, v := range evt.attributes() {
		if p := stringAttr(v); p != nil {
			attrs[k] = p
		}
	}
	return string(payload), attrs, nil
}

// stringAttr returns nil for an empty string, which the AWS SDK treats as unset.
func stringAttr(v string) *string {
	if v == "" {
		return nil
	}
	return aws.String(v)
}
