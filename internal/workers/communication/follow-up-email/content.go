// internal/workers/communication/follow-up-email/content.go
package followupemail

import (
	"fmt"
	"html"

	"applysync/internal/models"
)

const followUpSubject = "Your Application is Under Review"

const followUpHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hello %s,</h2>
  <p>Thank you for submitting your application.</p>
  <p>We wanted to let you know that your CV is currently under review by our team.</p>
  <p>We appreciate your interest in joining us, and we'll be in touch with updates on your application status.</p>
  <p>If you have any questions in the meantime, please don't hesitate to reach out.</p>
  <p>Best regards,<br>The Recruiting Team</p>
</div>`

const followUpText = `Hello %s,

Thank you for submitting your application. Your CV is currently under review by our team, and we'll be in touch with updates on your application status.

Best regards,
The Recruiting Team`

func BuildFollowUpMessage(email, name string) models.EmailMessage {
	if name == "" {
		name = "there"
	}
	return models.EmailMessage{
		To:       email,
		Subject:  followUpSubject,
		HTMLBody: fmt.Sprintf(followUpHTML, html.EscapeString(name)),
		TextBody: fmt.Sprintf(followUpText, name),
	}
}
