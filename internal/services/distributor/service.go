package distributor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

// Service distributes a finished board pack over email and Slack. Either
// channel runs in dry-run mode when its credentials are absent, so local
// runs never need real endpoints.
type Service struct {
	cfg    *common.Config
	mailer *Mailer
	slack  *SlackNotifier
	logger arbor.ILogger
}

func NewService(cfg *common.Config) *Service {
	return &Service{
		cfg:    cfg,
		mailer: NewMailer(),
		slack:  NewSlackNotifier(),
		logger: common.GetLogger(),
	}
}

// Distribute sends the email with attachments and posts the Slack
// summary. A failure on one channel does not stop the other; all
// failures are reported together.
func (s *Service) Distribute(ctx context.Context, pkg *models.MetricsPackage, narrative *models.NarrativePackage, attachments []string) error {
	var errs []error

	subject := fmt.Sprintf("%s - %s - %s", s.cfg.Distribution.EmailSubject, pkg.Company, pkg.Period)
	recipients := s.cfg.Distribution.EmailRecipients

	if !s.mailer.IsConfigured() || len(recipients) == 0 {
		s.logger.Info().
			Str("subject", subject).
			Str("recipients", strings.Join(recipients, ", ")).
			Int("attachments", len(attachments)).
			Msg("Email dry run, SMTP not configured")
	} else {
		body, err := buildEmailBody(s.cfg, pkg, narrative)
		if err != nil {
			errs = append(errs, err)
		} else if err := s.mailer.Send(recipients, subject, body, attachments); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if !s.slack.IsConfigured() {
		s.logger.Info().
			Str("channel", s.cfg.Distribution.SlackChannel).
			Msg("Slack dry run, webhook not configured")
	} else if err := s.slack.Notify(ctx, s.cfg.Distribution, pkg, narrative); err != nil {
		errs = append(errs, fmt.Errorf("slack: %w", err))
	}

	return errors.Join(errs...)
}
