package notify

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	EmailFrom string
}

// AWSNotifier sends email through SESv2 and SMS through SNS.
type AWSNotifier struct {
	cfg Config
	ses *sesv2.Client
	sns *sns.Client
}

func NewAWSNotifier(ctx context.Context, cfg Config) (*AWSNotifier, error) {
	if cfg.Region == "" || cfg.EmailFrom == "" {
		return nil, errors.New("aws region and sender address are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &AWSNotifier{
		cfg: cfg,
		ses: sesv2.NewFromConfig(awsCfg),
		sns: sns.NewFromConfig(awsCfg),
	}, nil
}

func (n *AWSNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if to == "" {
		return "", errors.New("recipient address is required")
	}
	out, err := n.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.cfg.EmailFrom),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (n *AWSNotifier) SendSMS(ctx context.Context, to, message string) (string, error) {
	if to == "" {
		return "", errors.New("recipient phone number is required")
	}
	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
