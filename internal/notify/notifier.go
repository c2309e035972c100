package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/model"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notifier is closed")
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(e *email.Email) error

// EmailNotifier mails credit status changes to the customer. Messages are
// queued and delivered by a single background worker; Close drains the queue.
type EmailNotifier struct {
	from  string
	send  sendFunc
	queue chan *email.Email
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return newEmailNotifier(cfg.From, func(e *email.Email) error {
		return e.Send(addr, auth)
	}, 64)
}

func newEmailNotifier(from string, send sendFunc, buffer int) *EmailNotifier {
	n := &EmailNotifier{
		from:  from,
		send:  send,
		queue: make(chan *email.Email, buffer),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *EmailNotifier) run() {
	defer n.wg.Done()
	for e := range n.queue {
		if err := n.send(e); err != nil {
			log.Error().Err(err).Strs("to", e.To).Str("subject", e.Subject).Msg("failed to send email")
			continue
		}
		log.Info().Strs("to", e.To).Str("subject", e.Subject).Msg("email sent")
	}
}

func (n *EmailNotifier) NotifyOrderCreditStatus(_ context.Context, order *model.Order, user *model.User, status string) error {
	if user == nil || user.Email == "" {
		return fmt.Errorf("no email address for order %s", order.ID)
	}

	e := email.NewEmail()
	e.From = n.from
	e.To = []string{user.Email}
	e.Subject, e.Text = composeCreditStatus(order, user, status)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	select {
	case n.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
// Notifications arriving afterwards fail with ErrClosed.
func (n *EmailNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func composeCreditStatus(order *model.Order, user *model.User, status string) (string, []byte) {
	var subject, line string
	switch model.ReservationStatus(status) {
	case model.ReservationReserved:
		subject = "Your credit request has been received"
		line = "Your installment plan is reserved. We will let you know once it is active."
	case model.ReservationActive:
		subject = "Your installment plan is active"
		line = "Your installment plan is now active and your order is confirmed."
	case model.ReservationCompleted:
		subject = "Your installment plan is fully paid"
		line = "All installments have been paid. Thank you!"
	case model.ReservationCancelled:
		subject = "Your installment plan was cancelled"
		line = "Your installment plan has been cancelled and the order will not ship."
	case model.ReservationDefaulted:
		subject = "Your installment plan is in default"
		line = "Your installment plan is in default. Please contact us to settle the balance."
	default:
		subject = "Update on your order"
		line = "Credit status: " + status
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", strings.TrimSpace(user.FirstName+" "+user.LastName))
	fmt.Fprintf(&b, "Order %s (%.2f)\n", order.OrderNumber, order.Pricing.Total)
	b.WriteString(line + "\n")
	if c := order.Payment.Credit; c != nil && c.MonthlyPayment > 0 {
		fmt.Fprintf(&b, "Plan: %d x %.2f\n", c.InstallmentCount, c.MonthlyPayment)
	}
	b.WriteString("\nBest regards,\nFurniture Store")
	return subject + " - " + order.OrderNumber, []byte(b.String())
}

// LogNotifier writes notifications to the log. Used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) NotifyOrderCreditStatus(_ context.Context, order *model.Order, user *model.User, status string) error {
	evt := log.Info().Str("order_id", order.ID).Str("status", status)
	if user != nil {
		evt = evt.Str("user_id", user.ID)
	}
	evt.Msg("credit status notification")
	return nil
}
