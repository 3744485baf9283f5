package helpers

import (
	"fmt"

	"github.com/oksasatya/fitness-onboarding/pkg/mailer"
	mailtpl "github.com/oksasatya/fitness-onboarding/pkg/mailer/templates"
)

// SubjectFor is the fallback subject when a job carries neither a subject
// nor a renderable template.
func SubjectFor(job mailer.EmailJob) string {
	switch job.Template {
	case mailtpl.Welcome:
		return "Welcome aboard"
	case mailtpl.ResetPassword:
		return "Reset your password"
	default:
		return "Notification"
	}
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
