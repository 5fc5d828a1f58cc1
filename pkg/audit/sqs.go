package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client used by SQSRecorder.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSRecorder implements the Recorder interface using AWS SQS.
type SQSRecorder struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSRecorder creates a new SQSRecorder.
func NewSQSRecorder(client SQSAPI, queueURL string) *SQSRecorder {
	return &SQSRecorder{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ Recorder = (*SQSRecorder)(nil)

// RecordFailure sends the failure to the SQS queue for later inspection.
func (r *SQSRecorder) RecordFailure(ctx context.Context, failure Failure) error {
	body, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to marshal failure for SQS: %w", err)
	}

	_, err = r.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(failure.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
