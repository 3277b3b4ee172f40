package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      ensureLogger(nil),
	}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["source_id"]
	if !ok || aws.ToString(attr.StringValue) != "the-hindu" {
		t.Fatalf("source_id attribute missing or wrong: %#v", attr)
	}
	if aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if rec := client.input.MessageAttributes["record_id"]; aws.ToString(rec.StringValue) != "rec-1" {
		t.Fatalf("record_id attribute missing: %#v", rec)
	}
	body := aws.ToString(client.input.MessageBody)
	if !strings.Contains(body, `"source_id":"the-hindu"`) || !strings.Contains(body, `"summary":"One sentence."`) {
		t.Fatalf("MessageBody missing fields: %s", body)
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{
		queueURL: "https://example.com/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      ensureLogger(nil),
	}

	if err := pub.Publish(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestNewSQSPublisherWithStaticCredentials(t *testing.T) {
	pub, err := newSQSPublisher(context.Background(), PublisherConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL:    "http://localhost:4566/000000000000/digest",
			Region:      "ap-south-1",
			Endpoint:    "http://localhost:4566",
			Credentials: AWSCredentials{AccessKeyID: "test", SecretAccessKey: "test"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("newSQSPublisher: %v", err)
	}
	if pub.ID() != "queue" || pub.Type() != TypeSQS {
		t.Fatalf("unexpected publisher %s/%s", pub.ID(), pub.Type())
	}
}

func TestSQSPublisherFIFOSetsGroupAndDedup(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{queueURL: "https://example.com/digest.fifo", client: client, log: ensureLogger(nil)}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "the-hindu" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "rec-1" {
		t.Fatalf("MessageDeduplicationId = %q", got)
	}

	plain := &fakeSQSClient{}
	pub = &sqsPublisher{queueURL: "https://example.com/digest", client: plain, log: ensureLogger(nil)}
	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if plain.input.MessageGroupId != nil || plain.input.MessageDeduplicationId != nil {
		t.Fatalf("standard queue must not carry FIFO fields: %#v", plain.input)
	}
}
