package publishers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// Supported publisher types.
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig represents a single publisher entry declared in config files.
// Only the block matching Type is used.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id"`
	Type      string                    `json:"type" yaml:"type"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// AWSCredentials are optional static credentials; the default AWS chain is used when empty.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL    string         `json:"uri" yaml:"uri"`
	Region      string         `json:"region" yaml:"region"`
	Endpoint    string         `json:"endpoint" yaml:"endpoint"`
	Credentials AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN    string         `json:"topic_arn" yaml:"topic_arn"`
	Region      string         `json:"region" yaml:"region"`
	Endpoint    string         `json:"endpoint" yaml:"endpoint"`
	Credentials AWSCredentials `json:"credentials" yaml:"credentials"`
}

// HTTPPublisherConfig holds generic webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// GCPPubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// normalized returns a trimmed copy with defaults applied. Nested blocks are copied, never shared.
func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL, c.Region, c.Endpoint = trim3(c.QueueURL, c.Region, c.Endpoint)
		c.Credentials = c.Credentials.normalized()
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN, c.Region, c.Endpoint = trim3(c.TopicARN, c.Region, c.Endpoint)
		c.Credentials = c.Credentials.normalized()
		cfg.SNS = &c
	}
	if cfg.GCPPubSub != nil {
		c := *cfg.GCPPubSub
		c.ProjectID, c.Topic, c.CredentialsFile = trim3(c.ProjectID, c.Topic, c.CredentialsFile)
		cfg.GCPPubSub = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = cleanHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	return cfg
}

func (c AWSCredentials) normalized() AWSCredentials {
	c.AccessKeyID, c.SecretAccessKey, c.SessionToken = trim3(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	return c
}

// complete reports whether the credentials are either fully set or fully absent.
func (c AWSCredentials) complete() bool {
	return (c.AccessKeyID == "") == (c.SecretAccessKey == "")
}

func trim3(a, b, c string) (string, string, string) {
	return strings.TrimSpace(a), strings.TrimSpace(b), strings.TrimSpace(c)
}

// cleanHeaders drops headers whose name or value is blank.
func cleanHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validate checks that the block for cfg.Type carries its required fields.
func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var missing []string
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		missing = required(map[string]string{"sqs.uri": cfg.SQS.QueueURL, "sqs.region": cfg.SQS.Region})
		if !cfg.SQS.Credentials.complete() {
			missing = append(missing, "sqs.credentials.access_key_id+secret_access_key")
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		missing = required(map[string]string{"sns.topic_arn": cfg.SNS.TopicARN, "sns.region": cfg.SNS.Region})
		if !cfg.SNS.Credentials.complete() {
			missing = append(missing, "sns.credentials.access_key_id+secret_access_key")
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		missing = required(map[string]string{"http.url": cfg.HTTP.URL})
	case TypeGCPPubSub:
		if cfg.GCPPubSub == nil {
			return fmt.Errorf("gcp_pubsub config required for publisher %q", cfg.ID)
		}
		missing = required(map[string]string{
			"gcp_pubsub.project_id": cfg.GCPPubSub.ProjectID,
			"gcp_pubsub.topic":      cfg.GCPPubSub.Topic,
		})
	}

	if len(missing) > 0 {
		return fmt.Errorf("publisher %q: missing %s", cfg.ID, strings.Join(missing, ", "))
	}
	return nil
}

func required(fields map[string]string) []string {
	var missing []string
	for name, v := range fields {
		if v == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
