// Package queue is the durable outbox for cost reports. Reports are enqueued on the
// request path and drained by a relay, so a webhook outage delays billing instead
// of losing it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

// Message is a received report plus the handle needed to acknowledge it.
type Message struct {
	ReceiptHandle string
	Report        domain.CostReport
}

type Queue interface {
	Deliver(ctx context.Context, report domain.CostReport) error
	Receive(ctx context.Context, maxMessages int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSQueue struct {
	client   sqsAPI
	queueURL string
	logger   *slog.Logger
}

func NewSQSQueue(ctx context.Context, region, queueURL string) (*SQSQueue, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSQSQueueWithConfig(cfg, queueURL), nil
}

func NewSQSQueueWithConfig(cfg aws.Config, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   slog.Default(),
	}
}

func (q *SQSQueue) Deliver(ctx context.Context, report domain.CostReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cost report: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"UserID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(report.UserID),
			},
			"RequestID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(report.RequestID),
			},
			"Cost": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatFloat(report.Cost, 'f', -1, 64)),
			},
		},
	}

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Receive long-polls for up to maxMessages reports. Bodies that fail to decode
// are logged and left on the queue for its redrive policy.
func (q *SQSQueue) Receive(ctx context.Context, maxMessages int) ([]Message, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.queueURL),
		MaxNumberOfMessages:   int32(maxMessages),
		WaitTimeSeconds:       20,
		MessageAttributeNames: []string{"All"},
	}

	result, err := q.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	messages := make([]Message, 0, len(result.Messages))
	for _, msg := range result.Messages {
		var report domain.CostReport
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &report); err != nil {
			q.logger.Warn("failed to unmarshal cost report", "message_id", aws.ToString(msg.MessageId), "error", err)
			continue
		}
		messages = append(messages, Message{
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
			Report:        report,
		})
	}

	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	input := &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	}

	if _, err := q.client.DeleteMessage(ctx, input); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// InMemoryQueue keeps unacknowledged messages until Delete, like SQS with an
// infinite visibility timeout.
type InMemoryQueue struct {
	mu       sync.Mutex
	seq      int
	pending  []Message
	inFlight map[string]Message
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{inFlight: make(map[string]Message)}
}

func (q *InMemoryQueue) Deliver(ctx context.Context, report domain.CostReport) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.pending = append(q.pending, Message{ReceiptHandle: strconv.Itoa(q.seq), Report: report})
	return nil
}

func (q *InMemoryQueue) Receive(ctx context.Context, maxMessages int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := min(maxMessages, len(q.pending))
	result := make([]Message, count)
	copy(result, q.pending[:count])
	q.pending = q.pending[count:]
	for _, m := range result {
		q.inFlight[m.ReceiptHandle] = m
	}
	return result, nil
}

func (q *InMemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, receiptHandle)
	return nil
}

// Requeue makes every unacknowledged message visible again.
func (q *InMemoryQueue) Requeue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for h, m := range q.inFlight {
		q.pending = append(q.pending, m)
		delete(q.inFlight, h)
	}
}

// Len returns pending plus unacknowledged messages.
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inFlight)
}
