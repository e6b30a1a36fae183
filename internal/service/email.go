package service

import (
	"context"
	"fmt"
	"strings"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/utils"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// emailNotifier mails the front desk when a booking is paid or cancelled.
type emailNotifier struct {
	sender    mailSender
	fromEmail string
	fromName  string
	frontDesk string
}

func NewEmailNotifier(apiKey, fromEmail, fromName, frontDesk string) Notifier {
	return newEmailNotifier(sendgrid.NewSendClient(apiKey), fromEmail, fromName, frontDesk)
}

func newEmailNotifier(sender mailSender, fromEmail, fromName, frontDesk string) *emailNotifier {
	return &emailNotifier{
		sender:    sender,
		fromEmail: fromEmail,
		fromName:  fromName,
		frontDesk: frontDesk,
	}
}

func (n *emailNotifier) Notify(ctx context.Context, event domain.BookingEvent) error {
	var subject string
	switch event.Type {
	case domain.BookingEventPaid:
		subject = fmt.Sprintf("Booking #%d confirmed", event.Booking.ID)
	case domain.BookingEventCancelled:
		subject = fmt.Sprintf("Booking #%d cancelled", event.Booking.ID)
	default:
		return nil
	}

	plain := bookingSummary(event)
	html := "<p>" + strings.ReplaceAll(plain, "\n", "<br>") + "</p>"
	message := mail.NewSingleEmail(
		mail.NewEmail(n.fromName, n.fromEmail),
		subject,
		mail.NewEmail("Front Desk", n.frontDesk),
		plain,
		html,
	)

	logger.ExternalServiceCall("SendGrid", "Send", "bookingID", event.Booking.ID, "type", event.Type)
	response, err := n.sender.SendWithContext(ctx, message)
	if err != nil {
		logger.ExternalServiceResult("SendGrid", "Send", err, "bookingID", event.Booking.ID)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("SendGrid", "Send", err, "bookingID", event.Booking.ID)
		return err
	}
	logger.ExternalServiceResult("SendGrid", "Send", nil, "bookingID", event.Booking.ID, "status", response.StatusCode)
	return nil
}

func bookingSummary(event domain.BookingEvent) string {
	b := event.Booking
	lines := []string{
		fmt.Sprintf("Booking #%d for room %d is now %s.", b.ID, b.RoomID, b.Status),
		fmt.Sprintf("Guest: %s (%d guests)", b.UserID, b.NumberOfGuests),
		fmt.Sprintf("Stay: %s to %s, %d nights", utils.FormatDate(b.CheckIn), utils.FormatDate(b.CheckOut), b.Nights()),
		fmt.Sprintf("Total: %d.%02d", b.TotalAmountCents/100, b.TotalAmountCents%100),
	}
	if event.Notes != "" {
		lines = append(lines, "Notes: "+event.Notes)
	}
	if b.SpecialRequests != nil && *b.SpecialRequests != "" {
		lines = append(lines, "Special requests: "+*b.SpecialRequests)
	}
	return strings.Join(lines, "\n")
}
