package main

import (
	"context"
	"errors"

	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
	"github.com/oksasatya/fitness-onboarding/pkg/mailer"
	mailtpl "github.com/oksasatya/fitness-onboarding/pkg/mailer/templates"
)

var errNoRecipient = errors.New("job has no recipient")

// compose turns a queued job into a sendable message. Known templates are
// rendered with localized times; anything else goes out as given.
func compose(ctx context.Context, resolver mailtpl.GeoResolver, job mailer.EmailJob) (mailer.Message, error) {
	helpers.EnsureRecipientAndEmail(&job)
	if job.To == "" {
		return mailer.Message{}, errNoRecipient
	}
	if job.Templated() && mailtpl.Known(job.Template) {
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		helpers.LocalizeTimesIfPossible(ctx, resolver, job.Data)
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return mailer.Message{}, err
		}
		return mailer.Message{To: job.To, Subject: s, Text: t, HTML: h, Tag: job.Template}, nil
	}
	return job.Plain(helpers.SubjectFor(job)), nil
}
