package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
)

// EnsureRecipientAndEmail fills the Email and Name template fields from the job when missing.
func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["Name"]; !ok || strings.TrimSpace(fmt.Sprintf("%v", v)) == "" {
		job.Data["Name"] = job.To
	}
}

// NormalizeTemplate lowercases and trims the template name so producers may vary casing.
func NormalizeTemplate(job *mailer.EmailJob) {
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
}
