package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	TemplateOTP                  = "otp"
	TemplateWelcome              = "welcome"
	TemplateApplicationReceived  = "application_received"
	TemplateApplicationApproved  = "application_approved"
	TemplateApplicationRejected  = "application_rejected"
	TemplateBookingConfirmed     = "booking_confirmed"
	TemplateNewBooking           = "new_booking"
	TemplateBookingCancelled     = "booking_cancelled"
	TemplateSessionReminder      = "session_reminder"
	TemplateSessionCompleted     = "session_completed"
	TemplateNoShowRecorded       = "no_show_recorded"
	TemplateDisputeRaised        = "dispute_raised"
	TemplateDisputeUpdated       = "dispute_updated"
	TemplatePayoutReleased       = "payout_released"
	TemplateAccountStatusChanged = "account_status_changed"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<div style="font-family:Arial,sans-serif;max-width:560px">{{template "content" .}}<p style="color:#888;font-size:12px">Counsel Hub</p></div>`

var templates = map[string]emailTemplate{}

func register(name, subject, content string) {
	t := template.Must(template.New(name).Parse(layout))
	template.Must(t.New("content").Parse(content))
	templates[name] = emailTemplate{subject: subject, body: t}
}

func init() {
	register(TemplateOTP, "Your verification code",
		`<h1>Verification code</h1><p>Your code is <b style="font-size:20px">{{.Code}}</b>.</p><p>It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>`)
	register(TemplateWelcome, "Welcome to Counsel Hub",
		`<h1>Welcome, {{.Name}}!</h1><p>Your account is ready.</p>`)
	register(TemplateApplicationReceived, "We received your application",
		`<h1>Application received</h1><p>Hi {{.Name}}, your counselor application is now under review.</p>`)
	register(TemplateApplicationApproved, "Your counselor application has been approved!",
		`<h1>Congratulations!</h1><p>Hi {{.Name}}, your application has been approved. You can now publish your availability and start accepting sessions.</p>`)
	register(TemplateApplicationRejected, "Update on your counselor application",
		`<h1>Application update</h1><p>Hi {{.Name}}, after careful review your application was not approved at this time.</p>{{if .Reason}}<p><b>Reason:</b> {{.Reason}}</p>{{end}}<p>You may update your details and submit again.</p>`)
	register(TemplateBookingConfirmed, "Your session is confirmed",
		`<h1>Booking confirmed</h1><p>Your session with {{.CounselorName}} is booked for {{.Date}} at {{.StartTime}}.</p><p>Amount paid: {{.Amount}} {{.Currency}}</p>`)
	register(TemplateNewBooking, "You have a new booking",
		`<h1>New booking</h1><p>{{.ClientName}} booked your session on {{.Date}} at {{.StartTime}}.</p>`)
	register(TemplateBookingCancelled, "A session has been cancelled",
		`<h1>Session cancelled</h1><p>The session on {{.Date}} at {{.StartTime}} was cancelled by the {{.CancelledBy}}.</p>{{if .Refund}}<p>Refund issued: {{.Refund}} {{.Currency}}</p>{{end}}`)
	register(TemplateSessionReminder, "Reminder: your session starts in one hour",
		`<h1>Session reminder</h1><p>Your session on {{.Date}} starts at {{.StartTime}}.</p>`)
	register(TemplateSessionCompleted, "How was your session?",
		`<h1>Session completed</h1><p>Your session on {{.Date}} has been marked complete.</p><p>If something went wrong you can raise a dispute until {{.WindowEndsAt}}.</p>`)
	register(TemplateNoShowRecorded, "A missed session was recorded",
		`<h1>Missed session</h1><p>The session on {{.Date}} at {{.StartTime}} was recorded as a no-show by the {{.Party}}.</p>`)
	register(TemplateDisputeRaised, "A dispute was raised on a session",
		`<h1>Dispute raised</h1><p>A dispute was raised for the session on {{.Date}}. Our team will review it and get back to you.</p>`)
	register(TemplateDisputeUpdated, "Update on your dispute",
		`<h1>Dispute {{.Status}}</h1><p>The dispute for the session on {{.Date}} is now <b>{{.Status}}</b>.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`)
	register(TemplatePayoutReleased, "Your payout has been released",
		`<h1>Payout released</h1><p>{{.Amount}} {{.Currency}} for the session on {{.Date}} has been released to your account.</p>`)
	register(TemplateAccountStatusChanged, "Your account status changed",
		`<h1>Account update</h1><p>Hi {{.Name}}, your account has been {{if .Blocked}}suspended{{else}}reactivated{{end}}.</p>`)
}

// Render produces the subject and HTML body of a named template.
func Render(name string, data any) (string, string, error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return t.subject, buf.String(), nil
}
