package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher sends one message per event. FIFO queues get the source as message group
// and the record id as deduplication id, so a re-summarized article is not queued twice.
type sqsPublisher struct {
	id       string
	queueURL string
	client   sqsClient
	log      Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.Credentials)
	if err != nil {
		return nil, err
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = stringAttr(cfg.SQS.Endpoint)
	})

	return &sqsPublisher{id: cfg.ID, queueURL: cfg.SQS.QueueURL, client: client, log: ensureLogger(log)}, nil
}

func (s *sqsPublisher) ID() string   { return s.id }
func (s *sqsPublisher) Type() string { return TypeSQS }

func (s *sqsPublisher) fifo() bool { return strings.HasSuffix(s.queueURL, ".fifo") }

func (s *sqsPublisher) Publish(ctx context.Context, evt Event) error {
	body, attrs, err := encodeForAWS(evt)
	if err != nil {
		return err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(body),
		MessageAttributes: make(map[string]types.MessageAttributeValue, len(attrs)),
	}
	for k, v := range attrs {
		input.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: v}
	}
	if s.fifo() {
		input.MessageGroupId = stringAttr(evt.SourceID)
		input.MessageDeduplicationId = stringAttr(evt.Record.ID)
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		s.log.ErrorObj("sqs send failed", "publisher_sqs_error", map[string]any{
			"publisher_id": s.id,
			"record_id":    evt.Record.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("sqs send message: %w", err)
	}
	s.log.DebugObj("sqs message sent", "publisher_sqs_delivery", map[string]any{
		"publisher_id": s.id,
		"record_id":    evt.Record.ID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
