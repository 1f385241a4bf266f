package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*
var templateFS embed.FS

const (
	invoiceHTML = "invoice.html"
	invoiceText = "invoice.txt"
)

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t != nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Service renders invoice emails and hands them to a Sender.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string

	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewService parses the embedded templates. Every invoice email carries
// an HTML body and a plain text alternative.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	html, err := htmltemplate.New("email").
		Funcs(htmltemplate.FuncMap{"money": formatMoney, "date": formatDate}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html email templates: %w", err)
	}

	text, err := texttemplate.New("email").
		Funcs(texttemplate.FuncMap{"money": formatMoney, "date": formatDate}).
		ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text email templates: %w", err)
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		html:        html,
		text:        text,
	}, nil
}

// SendInvoice renders and sends an invoice to the client. It returns the
// sender's message id.
func (s *Service) SendInvoice(ctx context.Context, data InvoiceEmail) (string, error) {
	if strings.TrimSpace(data.To) == "" {
		return "", ErrNoRecipient
	}

	var htmlBody, textBody bytes.Buffer
	if err := s.html.ExecuteTemplate(&htmlBody, invoiceHTML, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, invoiceHTML, err)
	}
	if err := s.text.ExecuteTemplate(&textBody, invoiceText, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, invoiceText, err)
	}

	id, err := s.sender.Send(ctx, &Email{
		To:       []string{data.To},
		From:     s.from(),
		ReplyTo:  data.ReplyTo,
		Subject:  data.Subject(),
		HTMLBody: htmlBody.String(),
		TextBody: strings.TrimSpace(textBody.String()),
		Headers:  map[string]string{"X-Invoice-Number": data.Number},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send invoice email: %w", err)
	}
	return id, nil
}

func (s *Service) from() string {
	if s.fromName == "" {
		return s.fromAddress
	}
	return fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
}
