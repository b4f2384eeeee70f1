package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients holds one client per service the binaries talk to.
type AWSClients struct {
	Dynamo    *dynamodb.Client
	Scheduler *scheduler.Client
	Secrets   *secretsmanager.Client
	Lambda    *lambda.Client
	SQS       *sqs.Client
	S3        *s3.Client
	SES       *sesv2.Client
	Bedrock   *bedrockruntime.Client
}

func NewAWSClients(awsCfg aws.Config) *AWSClients {
	return &AWSClients{
		Dynamo:    dynamodb.NewFromConfig(awsCfg),
		Scheduler: scheduler.NewFromConfig(awsCfg),
		Secrets:   secretsmanager.NewFromConfig(awsCfg),
		Lambda:    lambda.NewFromConfig(awsCfg),
		SQS:       sqs.NewFromConfig(awsCfg),
		S3:        s3.NewFromConfig(awsCfg),
		SES:       sesv2.NewFromConfig(awsCfg),
		Bedrock:   bedrockruntime.NewFromConfig(awsCfg),
	}
}
