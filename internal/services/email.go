package services

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"drog/internal/config"
	"drog/internal/logger"
	"drog/internal/models"
)

// Sender, hazırlanmış mesajı gönderir. gomail.Dialer bu arayüzü sağlar.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService, sipariş onay e-postalarını gönderir.
type EmailService struct {
	sender   Sender
	from     string
	currency string
	log      logger.Logger
}

// NewEmailService, SMTP ayarlarından yeni bir EmailService oluşturur.
// SMTP bilgileri eksikse gönderim devre dışıdır ve mesajlar sadece loglanır.
func NewEmailService(mail config.MailConfig, shop config.ShopConfig, log logger.Logger) *EmailService {
	if log == nil {
		log = logger.Nop{}
	}
	es := &EmailService{from: mail.From, currency: shop.Currency, log: log}
	if !mail.Enabled() {
		log.Info("SMTP bilgileri ayarlanmamış, e-posta gönderimi devre dışı")
		return es
	}
	es.sender = gomail.NewDialer(mail.Host, mail.Port, mail.User, mail.Password)
	if es.from == "" {
		es.from = mail.User
	}
	return es
}

// NewEmailServiceWithSender is used by tests to capture outgoing mail.
func NewEmailServiceWithSender(sender Sender, from, currency string, log logger.Logger) *EmailService {
	if log == nil {
		log = logger.Nop{}
	}
	return &EmailService{sender: sender, from: from, currency: currency, log: log}
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<h2>Siparişiniz alındı / Your order has been received</h2>
<p>{{.Order.CustomerName}},</p>
<p>Order #{{.Order.ID}}{{if .Order.ClientRef}} ({{.Order.ClientRef}}){{end}}</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Size}}{{if .Color}} / {{.Color}}{{end}}</td><td>x{{.Quantity}}</td><td>{{.Price.String}} {{$.Currency}}</td></tr>
{{end}}</table>
{{if .Order.Discount.IsPositive}}<p>Discount: -{{.Order.Discount.String}} {{.Currency}}</p>{{end}}
<p>Shipping: {{.Order.ShippingFee.String}} {{.Currency}}</p>
<p><strong>Total: {{.Order.TotalPrice.String}} {{.Currency}}</strong></p>
<p>Status: {{.Order.Status}}</p>
`))

// RenderOrderConfirmation, onay e-postasının HTML gövdesini üretir.
func (es *EmailService) RenderOrderConfirmation(order models.Order) (string, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, struct {
		Order    models.Order
		Currency string
	}{order, es.currency})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendOrderConfirmation, siparişin e-posta adresine onay mesajı gönderir.
func (es *EmailService) SendOrderConfirmation(order models.Order) error {
	if order.Email == "" {
		return nil
	}
	body, err := es.RenderOrderConfirmation(order)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	if es.sender == nil {
		es.log.Info("e-posta gönderimi devre dışı, onay atlandı", "order_id", order.ID, "to", order.Email)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", order.Email)
	m.SetHeader("Subject", fmt.Sprintf("Order #%d confirmation", order.ID))
	m.SetBody("text/html", body)

	if err := es.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	es.log.Info("sipariş onay e-postası gönderildi", "order_id", order.ID, "to", order.Email)
	return nil
}
