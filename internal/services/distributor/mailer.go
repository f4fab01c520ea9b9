package distributor

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
)

// mailConfig holds SMTP settings, populated from the environment so
// deployments never keep credentials in the config file.
type mailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

func mailConfigFromEnv() mailConfig {
	cfg := mailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     587,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("EMAIL_FROM"),
		FromName: "Boardgen",
		UseTLS:   true,
	}
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if v := os.Getenv("SMTP_USE_TLS"); v != "" {
		cfg.UseTLS = strings.EqualFold(v, "true") || v == "1"
	}
	return cfg
}

func (c mailConfig) configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != ""
}

// Mailer sends the board pack email with its artifacts attached.
type Mailer struct {
	config mailConfig
	logger arbor.ILogger
}

func NewMailer() *Mailer {
	return &Mailer{config: mailConfigFromEnv(), logger: common.GetLogger()}
}

// IsConfigured reports whether SMTP credentials are present.
func (m *Mailer) IsConfigured() bool {
	return m.config.configured()
}

// Send delivers an HTML email with file attachments to every recipient.
func (m *Mailer) Send(recipients []string, subject, htmlBody string, attachmentPaths []string) error {
	if !m.config.configured() {
		return fmt.Errorf("SMTP not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg, err := m.buildMessage(recipients, subject, htmlBody, attachmentPaths)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if m.config.UseTLS {
		err = m.sendWithTLS(addr, auth, recipients, msg)
	} else {
		err = smtp.SendMail(addr, auth, m.config.From, recipients, []byte(msg))
	}
	if err != nil {
		return err
	}

	m.logger.Info().
		Str("subject", subject).
		Int("recipients", len(recipients)).
		Int("attachments", len(attachmentPaths)).
		Msg("Board pack email sent")
	return nil
}

func (m *Mailer) buildMessage(recipients []string, subject, htmlBody string, attachmentPaths []string) (string, error) {
	mixedBoundary := generateBoundary()

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", m.config.FromName, m.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", mixedBoundary))

	// HTML body. Base64 keeps lines within RFC 5322 limits regardless
	// of the rendered content.
	msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
	msg.WriteString("\r\n")

	for _, path := range attachmentPaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading attachment %s: %w", path, err)
		}
		name := filepath.Base(path)
		msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		msg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentTypeFor(name), name))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", name))
		msg.WriteString(encodeBase64WithLineBreaks(string(content)))
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))
	return msg.String(), nil
}

// sendWithTLS dials TLS directly, falling back to STARTTLS when the
// server does not accept implicit TLS on the configured port.
func (m *Mailer) sendWithTLS(addr string, auth smtp.Auth, recipients []string, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return m.sendWithSTARTTLS(addr, auth, recipients, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	return m.transmit(client, auth, recipients, msg)
}

func (m *Mailer) sendWithSTARTTLS(addr string, auth smtp.Auth, recipients []string, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connecting to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}
	return m.transmit(client, auth, recipients, msg)
}

func (m *Mailer) transmit(client *smtp.Client, auth smtp.Auth, recipients []string, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	for _, to := range recipients {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("setting recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("starting data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data writer: %w", err)
	}
	return client.Quit()
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "boardgen_boundary_fallback"
	}
	return fmt.Sprintf("boardgen_%x", b)
}

// encodeBase64WithLineBreaks wraps base64 output at 76 characters per
// RFC 2045.
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	const lineLen = 76
	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}
	return result.String()
}
