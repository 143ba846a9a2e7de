package mailer

import (
	"html/template"
	"io"

	"github.com/mvolkov/biotap/internal/models"
)

type templateRenderer interface {
	Execute(wr io.Writer, data any) error
}

type welcomeData struct {
	AppName      string
	Username     string
	Email        string
	DashboardURL string
}

type passwordResetData struct {
	AppName   string
	Username  string
	Email     string
	ResetLink string
}

type analyticsSummaryData struct {
	AppName          string
	Username         string
	Email            string
	TotalClicks      int64
	UniqueVisitors   int64
	TopLinks         []models.LinkStats
	GrowthPercentage string
	AnalyticsURL     string
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; background-color: #f8fafc; margin: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white;">
    <div style="background: #667eea; padding: 40px; text-align: center;">
      <h1 style="color: white; margin: 0;">Welcome to {{.AppName}}!</h1>
    </div>
    <div style="padding: 40px;">
      <p>Hi <strong>{{.Username}}</strong>,</p>
      <p>Your account has been created successfully! You're now part of the
      creators building their online presence with {{.AppName}}.</p>
      <ul>
        <li><strong>Create unlimited links</strong> to showcase your content</li>
        <li><strong>Track analytics</strong> to see how your links perform</li>
        <li><strong>Customize your page</strong> with ordering and icons</li>
      </ul>
      <p style="text-align: center; margin: 30px 0;">
        <a href="{{.DashboardURL}}" style="background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px;">Go to Dashboard</a>
      </p>
      <p>Best regards,<br>The {{.AppName}} Team</p>
    </div>
    <div style="text-align: center; padding: 30px; color: #6b7280; font-size: 14px;">
      <p>This email was sent to {{.Email}}</p>
    </div>
  </div>
</body>
</html>`))

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; background-color: #f8fafc; margin: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white;">
    <div style="background: #dc2626; padding: 40px; text-align: center;">
      <h1 style="color: white; margin: 0;">Password Reset Request</h1>
    </div>
    <div style="padding: 40px;">
      <p>Hi <strong>{{.Username}}</strong>,</p>
      <p>We received a request to reset the password of your {{.AppName}} account.</p>
      <p style="text-align: center; margin: 30px 0;">
        <a href="{{.ResetLink}}" style="background: #dc2626; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px;">Reset Your Password</a>
      </p>
      <p>This link expires soon. If you didn't request a reset, you can safely
      ignore this email. Never share the link with anyone.</p>
      <p>If the button doesn't work, copy and paste this link into your browser:</p>
      <p style="word-break: break-all; background-color: #f3f4f6; padding: 10px; font-family: monospace;">{{.ResetLink}}</p>
      <p>Best regards,<br>The {{.AppName}} Team</p>
    </div>
    <div style="text-align: center; padding: 30px; color: #6b7280; font-size: 14px;">
      <p>This email was sent to {{.Email}}</p>
    </div>
  </div>
</body>
</html>`))

var analyticsSummaryTemplate = template.Must(template.New("analytics_summary").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; background-color: #f8fafc; margin: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white;">
    <div style="background: #059669; padding: 40px; text-align: center;">
      <h1 style="color: white; margin: 0;">Weekly Analytics Summary</h1>
    </div>
    <div style="padding: 40px;">
      <p>Hi <strong>{{.Username}}</strong>,</p>
      <p>Here's how your links performed this week:</p>
      <table style="width: 100%; margin: 30px 0; text-align: center;">
        <tr>
          <td style="background-color: #f8fafc; padding: 20px;">
            <div style="font-size: 32px; font-weight: bold; color: #059669;">{{.TotalClicks}}</div>
            <div style="color: #6b7280; font-size: 14px;">Total Clicks</div>
          </td>
          <td style="background-color: #f8fafc; padding: 20px;">
            <div style="font-size: 32px; font-weight: bold; color: #059669;">{{.UniqueVisitors}}</div>
            <div style="color: #6b7280; font-size: 14px;">Unique Visitors</div>
          </td>
        </tr>
      </table>
      {{if .TopLinks}}
      <div style="background-color: #f8fafc; padding: 20px; margin: 30px 0;">
        <h3>Top Performing Links:</h3>
        {{range .TopLinks}}
        <div style="padding: 10px 0; border-bottom: 1px solid #e5e7eb;">
          <span>{{.Title}}</span> &mdash; <span>{{.Clicks}} clicks</span>
        </div>
        {{end}}
      </div>
      {{end}}
      <p><strong>Growth:</strong> your clicks are {{.GrowthPercentage}}% compared to last week!</p>
      <p style="text-align: center; margin: 30px 0;">
        <a href="{{.AnalyticsURL}}" style="background: #059669; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px;">View Full Analytics</a>
      </p>
      <p>Keep up the great work!</p>
      <p>Best regards,<br>The {{.AppName}} Team</p>
    </div>
    <div style="text-align: center; padding: 30px; color: #6b7280; font-size: 14px;">
      <p>This email was sent to {{.Email}}</p>
    </div>
  </div>
</body>
</html>`))
