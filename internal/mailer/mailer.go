// Package mailer sends transactional email through the Resend API and
// records every attempt in the email log: welcome messages, password
// reset links and the weekly analytics summaries.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/user"
)

type emailLogKeeper interface {
	InsertEmailLog(ctx context.Context, entry *models.EmailLogEntry) error
}

// emailsAPI is the slice of the Resend client the mailer uses; tests
// substitute a stub.
type emailsAPI interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Options carries the configuration slice the mailer needs.
type Options struct {
	APIKey              string
	FromEmail           string
	AppName             string
	FrontendURL         string
	SendWelcomeEmails   bool
	SendAnalyticsEmails bool
}

// Mailer sends transactional emails and records them in the email log.
type Mailer struct {
	emails emailsAPI
	db     emailLogKeeper
	opts   Options
}

// New creates a Mailer backed by the Resend API.
func New(db emailLogKeeper, opts Options) *Mailer {
	client := resend.NewClient(opts.APIKey)

	return &Mailer{
		emails: client.Emails,
		db:     db,
		opts:   opts,
	}
}

// SendWelcome sends the registration welcome email.
// It is a no-op when welcome emails are disabled by configuration.
func (m *Mailer) SendWelcome(ctx context.Context, usr *user.User) error {
	if !m.opts.SendWelcomeEmails {
		return nil
	}

	subject := fmt.Sprintf("Welcome to %s!", m.opts.AppName)
	html, err := renderTemplate(welcomeTemplate, welcomeData{
		AppName:      m.opts.AppName,
		Username:     usr.Username,
		Email:        usr.Email,
		DashboardURL: m.opts.FrontendURL + "/dashboard",
	})
	if err != nil {
		return err
	}

	return m.send(ctx, usr, models.EmailTypeWelcome, subject, html, nil, nil)
}

// SendPasswordReset sends the reset link email. Unlike the other mail
// types it is not gated by a feature flag.
func (m *Mailer) SendPasswordReset(ctx context.Context, usr *user.User, resetToken string) error {
	subject := fmt.Sprintf("Reset your %s password", m.opts.AppName)
	html, err := renderTemplate(passwordResetTemplate, passwordResetData{
		AppName:   m.opts.AppName,
		Username:  usr.Username,
		Email:     usr.Email,
		ResetLink: fmt.Sprintf("%s/reset-password?token=%s", m.opts.FrontendURL, resetToken),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, usr, models.EmailTypePasswordReset, subject, html, nil, nil)
}

// SendAnalyticsSummary sends the weekly analytics digest for the given
// period. It is a no-op when analytics emails are disabled.
func (m *Mailer) SendAnalyticsSummary(
	ctx context.Context,
	usr *user.User,
	analytics *models.AnalyticsResponse,
	periodStart, periodEnd time.Time,
) error {
	if !m.opts.SendAnalyticsEmails {
		return nil
	}

	topLinks := analytics.TopLinks
	if len(topLinks) > 3 {
		topLinks = topLinks[:3]
	}

	subject := fmt.Sprintf("Your weekly %s analytics summary", m.opts.AppName)
	html, err := renderTemplate(analyticsSummaryTemplate, analyticsSummaryData{
		AppName:          m.opts.AppName,
		Username:         usr.Username,
		Email:            usr.Email,
		TotalClicks:      analytics.TotalClicks,
		UniqueVisitors:   analytics.UniqueVisitors,
		TopLinks:         topLinks,
		GrowthPercentage: fmt.Sprintf("%.1f", analytics.GrowthPercentage),
		AnalyticsURL:     m.opts.FrontendURL + "/dashboard/analytics",
	})
	if err != nil {
		return err
	}

	return m.send(ctx, usr, models.EmailTypeAnalyticsSummary, subject, html, &periodStart, &periodEnd)
}

func (m *Mailer) send(
	ctx context.Context,
	usr *user.User,
	emailType models.EmailType,
	subject, html string,
	periodStart, periodEnd *time.Time,
) error {
	_, sendErr := m.emails.Send(&resend.SendEmailRequest{
		From:    m.opts.FromEmail,
		To:      []string{usr.Email},
		Subject: subject,
		Html:    html,
	})

	entry := &models.EmailLogEntry{
		UserID:         usr.ID,
		EmailType:      emailType,
		RecipientEmail: usr.Email,
		Subject:        subject,
		SentAt:         time.Now().UTC(),
		Success:        sendErr == nil,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}

	if err := m.db.InsertEmailLog(ctx, entry); err != nil {
		logger.Log.Debugln("Error calling the `m.db.InsertEmailLog()`: ", zap.Error(err))
	}

	if sendErr != nil {
		return fmt.Errorf("in internal/mailer/mailer.go/send(): error while `m.emails.Send()` calling: %w", sendErr)
	}

	return nil
}

func renderTemplate(tmpl templateRenderer, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
