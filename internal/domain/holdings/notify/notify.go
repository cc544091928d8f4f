// Package notify e-mails a short report after a statement is processed.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
)

// Mailer sends one e-mail. *resend.Client's Emails service satisfies it.
type Mailer interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config holds the Resend credentials and recipients.
type Config struct {
	APIKey string
	From   string
	To     []string
}

// Notifier sends processing reports. A Notifier without a mailer does nothing.
type Notifier struct {
	mailer Mailer
	from   string
	to     []string
	logger *slog.Logger
}

// New creates a Resend-backed notifier. Without an API key or recipients the
// notifier is a no-op.
func New(cfg Config, logger *slog.Logger) *Notifier {
	var mailer Mailer
	if cfg.APIKey != "" && len(cfg.To) > 0 {
		mailer = resend.NewClient(cfg.APIKey).Emails
	}
	return NewWithMailer(mailer, cfg.From, cfg.To, logger)
}

// NewWithMailer creates a notifier around an arbitrary mailer.
func NewWithMailer(mailer Mailer, from string, to []string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{mailer: mailer, from: from, to: to, logger: logger}
}

// Enabled reports whether reports will actually be sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.mailer != nil && len(n.to) > 0
}

// Message is what a report is built from.
type Message struct {
	StatementID uuid.UUID
	Source      string
	Summary     summary.Summary
	Report      summary.Report
}

// StatementProcessed sends the report for one statement.
func (n *Notifier) StatementProcessed(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		if n != nil {
			n.logger.Debug("resend client not configured, skipping report email")
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := Render(msg)
	if err != nil {
		return err
	}

	_, err = n.mailer.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: Subject(msg),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}

	n.logger.Info("Report email sent",
		slog.String("statement_id", msg.StatementID.String()),
		slog.Int("recipients", len(n.to)))
	return nil
}

// Subject is the e-mail subject line for msg.
func Subject(msg Message) string {
	if failed := len(msg.Report.Failed()); failed > 0 {
		return fmt.Sprintf("Extrato %s: %d posições, %d verificações falharam", msg.Source, msg.Summary.Total.Count, failed)
	}
	return fmt.Sprintf("Extrato %s: %d posições", msg.Source, msg.Summary.Total.Count)
}

type sectionRow struct {
	Label string
	Count int
	Gross string
	Net   string
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<h2>{{.Source}}</h2>
<p>Statement {{.ID}}</p>
<table cellpadding="6" style="border-collapse: collapse;">
<tr><th align="left">Seção</th><th>Posições</th><th>Valor bruto</th><th>Valor líquido</th></tr>
{{range .Rows}}<tr><td>{{.Label}}</td><td align="right">{{.Count}}</td><td align="right">{{.Gross}}</td><td align="right">{{.Net}}</td></tr>
{{end}}</table>
{{if .Failed}}<h3>Verificações com falha</h3>
<ul>
{{range .Failed}}<li><b>{{.Name}}</b>: {{.Message}}</li>
{{end}}</ul>
{{else}}<p>Todas as verificações passaram.</p>
{{end}}</body>
</html>
`))

// Render builds the HTML body of the report.
func Render(msg Message) (string, error) {
	rows := make([]sectionRow, 0, len(parser.Sections)+1)
	for _, sec := range parser.Sections {
		t := msg.Summary.Section(sec)
		rows = append(rows, sectionRow{
			Label: sec.Label(),
			Count: t.Count,
			Gross: "R$ " + t.Gross.Locale(),
			Net:   "R$ " + t.Net.Locale(),
		})
	}
	if total := msg.Summary.Total; total != nil {
		rows = append(rows, sectionRow{
			Label: "Total",
			Count: total.Count,
			Gross: "R$ " + total.Gross.Locale(),
			Net:   "R$ " + total.Net.Locale(),
		})
	}

	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, map[string]any{
		"ID":     msg.StatementID.String(),
		"Source": msg.Source,
		"Rows":   rows,
		"Failed": msg.Report.Failed(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}
