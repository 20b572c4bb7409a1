// Package handlers provides the job handlers registered with the worker.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadmax/teamplan/internal/queue"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender is satisfied by *sendgrid.Client.
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type Mailer struct {
	sender Sender
	from   *mail.Email
	logger *slog.Logger
}

func NewMailer(sender Sender, fromName, fromAddress string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{
		sender: sender,
		from:   mail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

func NewSendGridMailer(apiKey, fromName, fromAddress string, logger *slog.Logger) *Mailer {
	return NewMailer(sendgrid.NewSendClient(apiKey), fromName, fromAddress, logger)
}

// NotifyTeamHandler e-mails the team contact about a new or changed
// assignment. Jobs for teams without an e-mail address succeed without
// sending anything.
func (m *Mailer) NotifyTeamHandler(ctx context.Context, job *queue.Job) error {
	var p queue.NotifyTeamPayload
	if err := job.Decode(&p); err != nil {
		return err
	}
	if p.TaskID == 0 {
		return errors.New("missing 'task_id' field")
	}

	to := strings.TrimSpace(p.TeamEmail)
	if to == "" {
		m.logger.Info("team has no e-mail, skipping notification", "team_id", p.TeamID, "task_id", p.TaskID)
		return nil
	}

	subject, body := notification(p)
	email := mail.NewSingleEmail(m.from, subject, mail.NewEmail(p.TeamName, to), body, body)

	response, err := m.sender.Send(email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	m.logger.Info("team notified", "team_id", p.TeamID, "task_id", p.TaskID, "to", to, "status", response.StatusCode)
	return nil
}

func notification(p queue.NotifyTeamPayload) (string, string) {
	subject := fmt.Sprintf("Task #%d planned for %s", p.TaskID, p.TeamName)

	var b strings.Builder
	fmt.Fprintf(&b, "Task #%d", p.TaskID)
	if p.TaskSubject != "" {
		fmt.Fprintf(&b, " (%s)", p.TaskSubject)
	}
	fmt.Fprintf(&b, " is planned for team %s from %s to %s.", p.TeamName, p.Start, p.End)
	if p.AssignedBy != "" {
		fmt.Fprintf(&b, " Assigned by %s.", p.AssignedBy)
	}

	return subject, b.String()
}
