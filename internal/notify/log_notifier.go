package notify

import (
	"context"

	"github.com/google/uuid"

	"hms-server/pkg/logger"
)

// LogNotifier records notifications instead of sending them. Used when
// no AWS credentials are configured (local development).
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) (string, error) {
	id := uuid.New().String()
	n.log.Infof("[notify] email %s to=%s subject=%q", id, to, subject)
	return id, nil
}

func (n *LogNotifier) SendSMS(ctx context.Context, to, message string) (string, error) {
	id := uuid.New().String()
	n.log.Infof("[notify] sms %s to=%s body=%q", id, to, message)
	return id, nil
}
