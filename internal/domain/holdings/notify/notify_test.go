package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/parser"
	"github.com/FACorreiaa/holdings-extractor/internal/domain/holdings/summary"
)

type fakeMailer struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (m *fakeMailer) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func ptr[T any](v T) *T { return &v }

func message(expectCount int) Message {
	records := []parser.Record{
		{Section: parser.SectionPosFixado, Name: ptr("CDB <BANCO>"), Dates: parser.Dates{Emissao: ptr("2023-01-10")},
			Values: parser.Values{GrossValue: ptr(1000.50), NetValue: ptr(900.25)}},
		{Section: parser.SectionMultimercados, Values: parser.Values{GrossValue: ptr(250.00)}},
	}
	return Message{
		StatementID: uuid.New(),
		Source:      "extrato.pdf",
		Summary:     summary.Summarize(records),
		Report:      summary.Validate(records, summary.Expectation{Count: &expectCount}),
	}
}

func TestNotifier_Disabled(t *testing.T) {
	tests := []struct {
		name string
		n    *Notifier
	}{
		{"nil notifier", nil},
		{"no api key", New(Config{To: []string{"ops@example.com"}}, nil)},
		{"no recipients", New(Config{APIKey: "re_123"}, nil)},
		{"no mailer", NewWithMailer(nil, "from@example.com", []string{"to@example.com"}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.n.Enabled())
			assert.NoError(t, tt.n.StatementProcessed(context.Background(), message(2)))
		})
	}
}

func TestNotifier_Enabled(t *testing.T) {
	assert.True(t, New(Config{APIKey: "re_123", To: []string{"ops@example.com"}}, nil).Enabled())
}

func TestNotifier_StatementProcessed(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewWithMailer(mailer, "Holdings <reports@example.com>", []string{"ops@example.com"}, nil)

	msg := message(2)
	require.NoError(t, n.StatementProcessed(context.Background(), msg))
	require.Len(t, mailer.sent, 1)

	sent := mailer.sent[0]
	assert.Equal(t, "Holdings <reports@example.com>", sent.From)
	assert.Equal(t, []string{"ops@example.com"}, sent.To)
	assert.Equal(t, "Extrato extrato.pdf: 2 posições", sent.Subject)
	assert.Contains(t, sent.Html, msg.StatementID.String())
	assert.Contains(t, sent.Html, "PÓS-FIXADO")
	assert.Contains(t, sent.Html, "R$ 1.000,50")
	assert.Contains(t, sent.Html, "R$ 1.250,50")
	assert.Contains(t, sent.Html, "Todas as verificações passaram.")
}

func TestNotifier_FailedChecks(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewWithMailer(mailer, "from@example.com", []string{"ops@example.com"}, nil)

	require.NoError(t, n.StatementProcessed(context.Background(), message(5)))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Extrato extrato.pdf: 2 posições, 1 verificações falharam", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Html, "total_count")
}

func TestNotifier_SendError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("rate limited")}
	n := NewWithMailer(mailer, "from@example.com", []string{"ops@example.com"}, nil)

	err := n.StatementProcessed(context.Background(), message(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRender_EscapesNames(t *testing.T) {
	msg := message(2)
	msg.Source = "<script>x</script>.pdf"

	html, err := Render(msg)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}
