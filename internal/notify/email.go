package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"barakahit/internal/config"
	"barakahit/internal/domain"
	"barakahit/internal/metrics"
	apperrors "barakahit/pkg/errors"
)

// Email is a rendered message ready for a Mailer.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers an Email through some provider.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// EmailNotifier renders a submission into an Email for the site operator.
type EmailNotifier struct {
	mailer Mailer
	from   string
	to     string
	now    func() time.Time
}

// NewEmailNotifier creates an EmailNotifier sending through mailer.
func NewEmailNotifier(mailer Mailer, cfg *config.EmailConfig) *EmailNotifier {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &EmailNotifier{
		mailer: mailer,
		from:   from,
		to:     cfg.NotifyEmail,
		now:    time.Now,
	}
}

// Send implements Notifier.
func (n *EmailNotifier) Send(ctx context.Context, sub *domain.ContactSubmission) error {
	msg, err := n.render(sub)
	if err != nil {
		metrics.RecordNotification("email", "failed")
		return apperrors.Notification("failed to render notification email", err)
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.RecordNotification("email", "failed")
		return apperrors.Notification("failed to send notification email", err)
	}
	metrics.RecordNotification("email", "sent")
	return nil
}

type emailView struct {
	Name      string
	Email     string
	Phone     string
	Message   string
	Submitted string
	ID        string
	Year      int
}

func (n *EmailNotifier) render(sub *domain.ContactSubmission) (Email, error) {
	submitted := sub.CreatedAt
	if submitted.IsZero() {
		submitted = n.now()
	}
	phone := sub.Phone
	if phone == "" {
		phone = "Not provided"
	}
	view := emailView{
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     phone,
		Message:   sub.Message,
		Submitted: submitted.UTC().Format("January 2, 2006 at 3:04 PM MST"),
		ID:        sub.ID,
		Year:      n.now().Year(),
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, view); err != nil {
		return Email{}, fmt.Errorf("html body: %w", err)
	}
	if err := textBody.Execute(&text, view); err != nil {
		return Email{}, fmt.Errorf("text body: %w", err)
	}

	return Email{
		From:    n.from,
		To:      n.to,
		ReplyTo: sub.Email,
		Subject: "New Contact Inquiry from " + oneLine(sub.Name),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// oneLine keeps user input from injecting header lines into the subject.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lineBreaks escapes s and turns its newlines into <br>.
func lineBreaks(s string) htmltemplate.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return htmltemplate.HTML(strings.ReplaceAll(htmltemplate.HTMLEscapeString(s), "\n", "<br>"))
}

var htmlBody = htmltemplate.Must(htmltemplate.New("inquiry.html").
	Funcs(htmltemplate.FuncMap{"lineBreaks": lineBreaks}).
	Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>New Contact Inquiry</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <div style="background-color: #10b981; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
            <h1 style="margin: 0;">New Contact Inquiry</h1>
        </div>
        <div style="background-color: #f9fafb; padding: 30px; border: 1px solid #e5e7eb;">
            <p><strong>From:</strong> {{.Name}}</p>
            <p><strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
            <p><strong>Phone:</strong> {{.Phone}}</p>
            <p><strong>Message:</strong><br>{{lineBreaks .Message}}</p>
            <p><strong>Submitted:</strong> {{.Submitted}}</p>
            <p><strong>Inquiry ID:</strong> {{.ID}}</p>
        </div>
        <p style="text-align: center; color: #6b7280; font-size: 12px;">
            This inquiry has been automatically saved to your database.<br>
            &copy; {{.Year}} Barakah IT Institute. All rights reserved.
        </p>
    </div>
</body>
</html>`))

var textBody = texttemplate.Must(texttemplate.New("inquiry.txt").Parse(`New Contact Inquiry

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Submitted: {{.Submitted}}

Message:
{{.Message}}

Inquiry ID: {{.ID}}
`))
