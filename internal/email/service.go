package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// ReceiptLine is one purchased line on a receipt.
type ReceiptLine struct {
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// OrderReceipt is the data rendered into the order receipt mail.
type OrderReceipt struct {
	SettlementID uuid.UUID
	Email        string
	SessionRef   string
	Lines        []ReceiptLine
	Subtotal     decimal.Decimal
	Currency     string
	SettledAt    time.Time
}

// Subject returns the receipt subject line.
func (r OrderReceipt) Subject() string {
	ref := r.SettlementID.String()
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "Your order receipt #" + strings.ToUpper(ref)
}

// Service renders templates and hands the result to a Sender.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	templates   *template.Template
}

// NewService parses the embedded templates.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"upper": strings.ToUpper,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		templates:   tmpl,
	}, nil
}

// SendOrderReceipt renders and sends the receipt for a settled order.
func (s *Service) SendOrderReceipt(ctx context.Context, receipt OrderReceipt) error {
	htmlBody, textBody, err := s.render("order_receipt.html", receipt)
	if err != nil {
		return fmt.Errorf("render order receipt: %w", err)
	}

	msg := &Email{
		To:       []string{receipt.Email},
		From:     s.from(),
		Subject:  receipt.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
		Headers:  map[string]string{"X-Settlement-ID": receipt.SettlementID.String()},
	}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send order receipt: %w", err)
	}
	return nil
}

func (s *Service) from() string {
	if s.fromName == "" {
		return s.fromAddress
	}
	return fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
}

func (s *Service) render(name string, data any) (string, string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", err
	}
	html := buf.String()
	return html, plainText(html), nil
}

var tagBreaks = strings.NewReplacer(
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"</p>", "\n\n", "</div>", "\n", "</tr>", "\n", "</td>", " ",
	"</h1>", "\n\n", "</h2>", "\n\n", "</h3>", "\n\n",
)

var entities = strings.NewReplacer(
	"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&#39;", "'", "&#43;", "+",
)

// plainText derives a text alternative by dropping tags.
func plainText(html string) string {
	text := tagBreaks.Replace(html)

	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	var lines []string
	for _, line := range strings.Split(entities.Replace(b.String()), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
