package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

// sender is satisfied by mailer.Mailgun.
type sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var errBadJob = errors.New("bad email job")

const (
	// attemptHeader counts failed sends carried by a republished job.
	attemptHeader   = "x-attempt"
	maxSendAttempts = 5
	baseRetryDelay  = 2 * time.Second
	maxRetryDelay   = time.Minute
)

type outcome int

const (
	ack outcome = iota
	drop
	retry
	giveUp
)

// decide maps the result of handle onto what happens to the delivery.
// attempt is the number of failed sends including this one.
func decide(err error, headers amqp.Table) (outcome, int) {
	switch {
	case err == nil:
		return ack, 0
	case errors.Is(err, errBadJob):
		return drop, 0
	}
	attempt := attemptOf(headers) + 1
	if attempt >= maxSendAttempts {
		return giveUp, attempt
	}
	return retry, attempt
}

func attemptOf(h amqp.Table) int {
	switch v := h[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// retryDelay doubles from baseRetryDelay per attempt, capped at maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	d := baseRetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// retryHeaders copies h with the attempt counter set.
func retryHeaders(h amqp.Table, attempt int) amqp.Table {
	out := make(amqp.Table, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	out[attemptHeader] = int32(attempt)
	return out
}

// republish waits out the backoff, then queues a copy of msg carrying the attempt count.
func republish(ctx context.Context, ch *amqp.Channel, queue string, msg amqp.Delivery, attempt int) error {
	t := time.NewTimer(retryDelay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		Headers:      retryHeaders(msg.Headers, attempt),
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         msg.Body,
	})
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch between workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			err := handle(ctx, mg, msg.Body)
			what, attempt := decide(err, msg.Headers)
			switch what {
			case ack:
				_ = msg.Ack(false)
			case drop:
				logger.WithError(err).Warn("dropping email job")
				_ = msg.Nack(false, false)
			case giveUp:
				logger.WithError(err).WithField("attempt", attempt).Error("send failed; giving up")
				_ = msg.Nack(false, false)
			case retry:
				logger.WithError(err).WithField("attempt", attempt).Warn("send failed; retrying")
				if pubErr := republish(ctx, ch, cfg.RabbitMQEmailQueue, msg, attempt); pubErr != nil {
					logger.WithError(pubErr).Warn("republish failed; requeueing")
					_ = msg.Nack(false, true)
					continue
				}
				_ = msg.Ack(false)
			}
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down")
	cancel()
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// handle decodes, renders and sends one job. Errors wrapping errBadJob are not retryable.
func handle(ctx context.Context, s sender, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return errors.Join(errBadJob, err)
	}
	if job.To == "" {
		return errors.Join(errBadJob, errors.New("missing recipient"))
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if !job.Rendered() {
		helpers.NormalizeTemplate(&job)
		helpers.EnsureRecipientAndEmail(&job)
		sub, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return errors.Join(errBadJob, err)
		}
		subject, text, html = sub, t, h
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send to %s: %w", job.To, err)
	}
	return nil
}
