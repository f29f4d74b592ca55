// Package notifications publishes billing facts to an SNS topic so downstream
// subscribers (ledger, analytics, e-mail) can fan out from one event.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

const EventGenerationBilled = "generation_billed"

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	client   publisher
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSNSNotifierWithConfig(cfg, topicArn), nil
}

func NewSNSNotifierWithConfig(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

// Deliver publishes one cost report. Subscribers can filter on the Type,
// UserID and UsageSource attributes.
func (n *SNSNotifier) Deliver(ctx context.Context, report domain.CostReport) error {
	message, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cost report: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"Type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventGenerationBilled),
			},
			"UserID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(report.UserID),
			},
			"UsageSource": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(report.UsageSource)),
			},
			"Cost": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatFloat(report.Cost, 'f', -1, 64)),
			},
		},
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish cost report: %w", err)
	}
	return nil
}

// InMemoryNotifier records reports instead of publishing them.
type InMemoryNotifier struct {
	mu      sync.Mutex
	reports []domain.CostReport
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) Deliver(ctx context.Context, report domain.CostReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

func (n *InMemoryNotifier) Reports() []domain.CostReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]domain.CostReport, len(n.reports))
	copy(result, n.reports)
	return result
}
