package mailer

// EmailJob is the JSON body queued for the email worker. A job either names a
// Template with its Data or carries a ready Subject with Text/HTML.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func (j EmailJob) Templated() bool { return j.Template != "" }

// Plain sends the job body as is, using subject when the job has none.
func (j EmailJob) Plain(subject string) Message {
	if j.Subject != "" {
		subject = j.Subject
	}
	return Message{To: j.To, Subject: subject, Text: j.Text, HTML: j.HTML}
}
