package helpers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
)

func TestOptionalClientsAreDisabledWithoutAddress(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), "", "", 0)
	assert.NoError(t, err)
	assert.Nil(t, rdb)

	es, err := NewESClient(nil, "", "")
	assert.NoError(t, err)
	assert.Nil(t, es)

	pub, err := NewRabbitPublisher("", "emails")
	assert.NoError(t, err)
	assert.Nil(t, pub)
	pub.Close()
}

func TestNewESClient(t *testing.T) {
	es, err := NewESClient([]string{"http://localhost:9200"}, "elastic", "changeme")
	require.NoError(t, err)
	assert.NotNil(t, es)
}

func TestNewLogger(t *testing.T) {
	dev := NewLogger("svc", "development", "")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogger("svc", "production", "warn")
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestEnsureRecipientAndEmail(t *testing.T) {
	job := mailer.EmailJob{To: "x@example.com"}
	EnsureRecipientAndEmail(&job)
	assert.Equal(t, "x@example.com", job.Data["Email"])
	assert.Equal(t, "x@example.com", job.Data["Name"])

	job = mailer.EmailJob{To: "x@example.com", Data: map[string]any{"Name": "Xavier", "Email": "shown@example.com"}}
	EnsureRecipientAndEmail(&job)
	assert.Equal(t, "shown@example.com", job.Data["Email"])
	assert.Equal(t, "Xavier", job.Data["Name"])
}

func TestNormalizeTemplate(t *testing.T) {
	job := mailer.EmailJob{Template: "  Welcome "}
	NormalizeTemplate(&job)
	assert.Equal(t, "welcome", job.Template)
}
