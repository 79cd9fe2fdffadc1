package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"

	"github.com/tripweave/tripweave-core/config"
	"github.com/tripweave/tripweave-core/logger"
)

// InvitationEmailData is what the invitation email template needs.
type InvitationEmailData struct {
	To            string
	TripName      string
	InviterName   string
	Role          string
	AcceptanceURL string
}

// EmailSender delivers invitation emails. Delivery is fire-and-forget from
// the workflows' point of view; a failed send never rolls back an invitation.
type EmailSender interface {
	SendInvitationEmail(ctx context.Context, data InvitationEmailData) error
}

type emailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// EmailService sends invitation mail through Resend.
type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *emailMetrics
	tmpl    *template.Template
}

var _ EmailSender = (*EmailService)(nil)

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service", "from", cfg.FromAddress)

	metrics := &emailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripweave_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripweave_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripweave_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}
	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		client:  resend.NewClient(cfg.ResendAPIKey),
		metrics: metrics,
		tmpl:    template.Must(template.New("invitation").Parse(invitationEmailTemplate)),
	}
}

func (s *EmailService) SendInvitationEmail(ctx context.Context, data InvitationEmailData) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	if data.To == "" || data.TripName == "" || data.AcceptanceURL == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("invitation email is missing recipient, trip name, or acceptance URL")
	}

	var htmlContent bytes.Buffer
	if err := s.tmpl.Execute(&htmlContent, data); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to execute email template", "error", err)
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{data.To},
		Subject: fmt.Sprintf("You've been invited to %s", data.TripName),
		Html:    htmlContent.String(),
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send invitation email",
			"error", err,
			"to", logger.MaskEmail(data.To))
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Invitation email sent", "to", logger.MaskEmail(data.To))
	return nil
}

const invitationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Join a trip on TripWeave</title>
    <style>
        body {
            font-family: 'sans-serif';
            background-color: #f7f7f7;
            color: #333333;
            margin: 0;
            padding: 20px;
            text-align: center;
        }
        .container {
            max-width: 600px;
            margin: 20px auto;
            background-color: #ffffff;
            padding: 30px;
            border-radius: 12px;
            box-shadow: 0 4px 8px rgba(0, 0, 0, 0.05);
        }
        h1 {
            color: #2D7DD2;
            font-size: 28px;
            margin-bottom: 20px;
        }
        p {
            font-size: 16px;
            line-height: 1.6;
            margin-bottom: 25px;
        }
        .button {
            display: inline-block;
            padding: 12px 24px;
            font-size: 16px;
            font-weight: bold;
            text-decoration: none;
            background-color: #2D7DD2;
            color: #ffffff;
            border-radius: 8px;
        }
        .link {
            margin-top: 20px;
            font-size: 14px;
            color: #777777;
            word-break: break-all;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>You're invited!</h1>
        <p>{{.InviterName}} invited you to join "{{.TripName}}" as {{.Role}}.</p>
        <p>
            <a href="{{.AcceptanceURL}}" class="button">
                Accept Invitation
            </a>
        </p>
        <p class="link">
            Or copy this link:<br/>
            {{.AcceptanceURL}}
        </p>
    </div>
</body>
</html>`
