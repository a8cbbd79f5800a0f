package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
)

type Template string

const (
	TemplateWelcome           Template = "welcome"
	TemplatePasswordResetCode Template = "password_reset_code"
	TemplateOrderStatus       Template = "order_status"
	TemplateRedemptionCode    Template = "redemption_code"
	TemplateBookingStatus     Template = "booking_status"
)

type WelcomeData struct {
	Name  string
	Venue string
}

type PasswordResetData struct {
	Name          string
	Code          string
	ExpiryMinutes int
}

type OrderStatusData struct {
	Name         string
	OrderNumber  string
	Status       string
	Reason       string
	Total        string
	PointsEarned int
}

type RedemptionData struct {
	Name       string
	RewardName string
	Code       string
	Points     int
}

type BookingData struct {
	Name        string
	ServiceName string
	When        string
	PartySize   int
	Status      string
}

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = map[Template]emailTemplate{
	TemplateWelcome: parse("Welcome to {{.Venue}}!", `<h2>Welcome, {{first .Name}}!</h2>
<p>Your account is ready. Every order earns points you can swap for rewards at the bar.</p>
<p>See you soon,<br>{{.Venue}}</p>`),

	TemplatePasswordResetCode: parse("Your password reset code", `<h2>Password Reset Request</h2>
<p>Hi {{first .Name}},</p>
<p>Use this code to reset your password:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:6px;">{{.Code}}</p>
<p>The code expires in {{.ExpiryMinutes}} minutes. If you didn't request this, you can safely ignore this email.</p>`),

	TemplateOrderStatus: parse("Order {{.OrderNumber}} - {{.Status}}", `<h2>Order Status Update</h2>
<p>Hi {{first .Name}},</p>
<p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>Total: <strong>{{.Total}}</strong></p>
{{if .PointsEarned}}<p>You earned <strong>{{.PointsEarned}}</strong> points with this order.</p>{{end}}`),

	TemplateRedemptionCode: parse("Your reward: {{.RewardName}}", `<h2>Enjoy your reward!</h2>
<p>Hi {{first .Name}},</p>
<p>You spent {{.Points}} points on <strong>{{.RewardName}}</strong>.</p>
<p>Show this code at the bar:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:4px;">{{.Code}}</p>`),

	TemplateBookingStatus: parse("Booking {{.Status}}: {{.ServiceName}}", `<h2>Booking {{.Status}}</h2>
<p>Hi {{first .Name}},</p>
<p>Your booking for <strong>{{.ServiceName}}</strong> on {{.When}} (party of {{.PartySize}}) is <strong>{{.Status}}</strong>.</p>`),
}

var funcs = map[string]interface{}{
	"first": func(name string) string {
		fields := strings.Fields(name)
		if len(fields) == 0 {
			return "there"
		}
		return fields[0]
	},
}

func parse(subject, body string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(body)),
	}
}

// Render returns the subject line and HTML body for t.
func Render(t Template, data interface{}) (string, string, error) {
	tpl, ok := templates[t]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", t)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", t, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", t, err)
	}
	return subject.String(), body.String(), nil
}
