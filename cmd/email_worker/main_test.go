package main

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To, Subject, Text, HTML string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

func TestHandle_RendersWelcomeTemplate(t *testing.T) {
	s := &fakeSender{}
	body := `{"to":"ann@example.com","template":"Welcome","data":{"Name":"Ann","AppName":"Acme"}}`

	require.NoError(t, handle(context.Background(), s, []byte(body)))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "ann@example.com", s.sent[0].To)
	assert.Equal(t, "Welcome to Acme, Ann", s.sent[0].Subject)
	assert.Contains(t, s.sent[0].HTML, "ann@example.com")
}

func TestHandle_PreRenderedJob(t *testing.T) {
	s := &fakeSender{}
	body := `{"to":"bo@example.com","subject":"Hi","text":"plain body"}`

	require.NoError(t, handle(context.Background(), s, []byte(body)))
	require.Len(t, s.sent, 1)
	assert.Equal(t, sentMail{To: "bo@example.com", Subject: "Hi", Text: "plain body"}, s.sent[0])
}

func TestHandle_BadJobsAreNotRetried(t *testing.T) {
	bodies := map[string]string{
		"not json":         `{"to":`,
		"no recipient":     `{"template":"welcome"}`,
		"unknown template": `{"to":"x@example.com","template":"missing"}`,
		"nothing to send":  `{"to":"x@example.com"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			err := handle(context.Background(), &fakeSender{}, []byte(body))
			assert.ErrorIs(t, err, errBadJob)
		})
	}
}

func TestHandle_SendFailureIsRetryable(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun 503")}
	body := `{"to":"x@example.com","subject":"Hi","text":"t"}`

	err := handle(context.Background(), s, []byte(body))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errBadJob)
}

func TestDecide(t *testing.T) {
	sendErr := errors.New("mailgun 503")

	what, _ := decide(nil, nil)
	assert.Equal(t, ack, what)

	what, _ = decide(errors.Join(errBadJob, errors.New("no recipient")), nil)
	assert.Equal(t, drop, what)

	what, attempt := decide(sendErr, nil)
	assert.Equal(t, retry, what)
	assert.Equal(t, 1, attempt)

	what, attempt = decide(sendErr, amqp.Table{attemptHeader: int32(3)})
	assert.Equal(t, retry, what)
	assert.Equal(t, 4, attempt)

	what, attempt = decide(sendErr, amqp.Table{attemptHeader: int64(maxSendAttempts - 1)})
	assert.Equal(t, giveUp, what)
	assert.Equal(t, maxSendAttempts, attempt)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 4*time.Second, retryDelay(2))
	assert.Equal(t, 16*time.Second, retryDelay(4))
	assert.Equal(t, time.Minute, retryDelay(10))
}

func TestRetryHeaders_CopiesAndCounts(t *testing.T) {
	in := amqp.Table{"trace": "abc", attemptHeader: int32(1)}

	out := retryHeaders(in, 2)
	assert.Equal(t, int32(1), in[attemptHeader])
	assert.Equal(t, "abc", out["trace"])
	assert.Equal(t, 2, attemptOf(out))
	assert.Equal(t, 0, attemptOf(nil))
}
