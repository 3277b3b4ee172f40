package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher publishes each event to a topic, with the summary title as subject.
type snsPublisher struct {
	id       string
	topicARN string
	client   snsClient
	log      Logger
}

// SNS rejects subjects longer than this.
const snsMaxSubject = 100

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.Credentials)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = stringAttr(cfg.SNS.Endpoint)
	})

	return &snsPublisher{id: cfg.ID, topicARN: cfg.SNS.TopicARN, client: client, log: ensureLogger(log)}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }

func (s *snsPublisher) Publish(ctx context.Context, evt Event) error {
	body, attrs, err := encodeForAWS(evt)
	if err != nil {
		return err
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(body),
		Subject:           stringAttr(subject(evt.Record.Title)),
		MessageAttributes: make(map[string]types.MessageAttributeValue, len(attrs)),
	}
	for k, v := range attrs {
		input.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: v}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns publish failed", "publisher_sns_error", map[string]any{
			"publisher_id": s.id,
			"record_id":    evt.Record.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("sns publish: %w", err)
	}
	s.log.DebugObj("sns message published", "publisher_sns_delivery", map[string]any{
		"publisher_id": s.id,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

// subject trims title to the SNS limit on a rune boundary.
func subject(title string) string {
	r := []rune(title)
	if len(r) <= snsMaxSubject {
		return title
	}
	return string(r[:snsMaxSubject-3]) + "..."
}
