package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"fabrix-backend/internal/models"
)

// Mailer sends transactional order emails over SMTP.
type Mailer struct {
	host string
	port string
	auth smtp.Auth
	from string
}

func NewMailer(host, port, user, pass, from string) *Mailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &Mailer{host: host, port: port, auth: auth, from: from}
}

func (m *Mailer) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	to := strings.TrimSpace(order.Customer.Email)
	if to == "" {
		logger.Warn().Str("order", order.OrderNumber).Msg("no customer email on order, skipping mail")
		return
	}

	subject, body := m.compose(kind, order)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body))

	if err := smtp.SendMail(m.host+":"+m.port, m.auth, m.from, []string{to}, msg); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Str("kind", string(kind)).Msg("mail send failed")
		return
	}
	logger.Info().Str("order", order.OrderNumber).Str("kind", string(kind)).Msg("mail sent")
}

func (m *Mailer) compose(kind EventKind, order *models.Order) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", order.Customer.FirstName)

	switch kind {
	case OrderShipped:
		fmt.Fprintf(&b, "Your order %s is on its way.\n", order.OrderNumber)
		if order.Shipping.TrackingNumber != "" {
			fmt.Fprintf(&b, "Tracking number: %s", order.Shipping.TrackingNumber)
			if order.Shipping.Carrier != "" {
				fmt.Fprintf(&b, " (%s)", order.Shipping.Carrier)
			}
			b.WriteString("\n")
		}
		return fmt.Sprintf("Your FabriX order %s has shipped", order.OrderNumber), b.String()
	default:
		fmt.Fprintf(&b, "Thanks for your order %s.\n\n", order.OrderNumber)
		for _, item := range order.Items {
			fmt.Fprintf(&b, "  %d x %s @ %.2f\n", item.Quantity, item.Name, item.UnitPrice)
		}
		fmt.Fprintf(&b, "\nTotal: %.2f\n", order.Payment.Total)
		return fmt.Sprintf("FabriX order %s confirmed", order.OrderNumber), b.String()
	}
}
