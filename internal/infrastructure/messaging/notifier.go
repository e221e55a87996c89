// Package messaging delivers user lifecycle notifications.
package messaging

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier turns a new user into a welcome EmailJob for the email worker.
type QueueNotifier struct {
	pub     Publisher
	appName string
}

func NewQueueNotifier(pub Publisher, appName string) *QueueNotifier {
	return &QueueNotifier{pub: pub, appName: appName}
}

func (n *QueueNotifier) SendWelcome(ctx context.Context, u *entity.User) error {
	return n.pub.PublishJSON(ctx, WelcomeJob(n.appName, u))
}

// WelcomeJob builds the queued job for u.
func WelcomeJob(appName string, u *entity.User) mailer.EmailJob {
	return mailer.EmailJob{
		To:       u.Email().String(),
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(appName, u.ID().String(), u.Name(), u.Email().String(), u.CreatedAt()),
	}
}

// LogNotifier writes notifications to the log instead of sending them.
// Sent keeps a copy of every line for inspection.
type LogNotifier struct {
	logger *logrus.Logger

	mu   sync.Mutex
	sent []string
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendWelcome(_ context.Context, u *entity.User) error {
	line := "WELCOME: " + u.Name() + " - " + u.Email().String()

	n.mu.Lock()
	n.sent = append(n.sent, line)
	n.mu.Unlock()

	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"user_id": u.ID().String(),
			"to":      u.Email().String(),
		}).Info(line)
	}
	return nil
}

func (n *LogNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	copy(out, n.sent)
	return out
}
