package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: topic
    type: SNS
    sns:
      topic_arn: " arn:aws:sns:ap-south-1:000000000000:digest "
      region: ap-south-1
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "topic" || enabled[0].Type != TypeSNS {
		t.Fatalf("expected only the sns publisher enabled, got %#v", enabled)
	}
	if enabled[0].SNS.TopicARN != "arn:aws:sns:ap-south-1:000000000000:digest" {
		t.Fatalf("topic arn not trimmed: %q", enabled[0].SNS.TopicARN)
	}
	if cfg, ok := reg.ByID("http1"); !ok || cfg.HTTP.Method != "POST" || cfg.HTTP.TimeoutSeconds != 5 {
		t.Fatalf("expected http defaults, got %#v", cfg)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"ps","type":"gcp_pubsub","gcp_pubsub":{"project_id":"p","topic":"t"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if all := reg.All(); len(all) != 1 || all[0].GCPPubSub.Topic != "t" {
		t.Fatalf("unexpected registry %#v", all)
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":     {ID: "h1", Type: TypeHTTP},
		"missing sns arn":  {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "x"}},
		"missing topic":    {ID: "g1", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubPublisherConfig{ProjectID: "p"}},
		"half credentials": {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u", Region: "r", Credentials: AWSCredentials{AccessKeyID: "a"}}},
	}
	for name, cfg := range cases {
		if err := cfg.validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
