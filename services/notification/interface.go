package notification

import (
	"context"
	"fmt"

	deviceRepo "classbook/database/repository/device"
	"classbook/models"
	"classbook/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// NotificationService defines methods for sending FCM pushes around the
// booking lifecycle. Delivery is best-effort everywhere: a missing token or a
// failed send is logged, never propagated into the booking flow.
type NotificationService interface {
	BookingConfirmed(ctx context.Context, b *models.Booking)
	SessionReminder(ctx context.Context, b *models.Booking) error
	SendPush(ctx context.Context, accountID, title, body string, data map[string]string) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	devices deviceRepo.Repository
}

func NewDefaultNotificationService(devices deviceRepo.Repository) (*DefaultNotificationService, error) {
	if devices == nil {
		return nil, fmt.Errorf("notification service initialization error: device repository is nil")
	}
	return &DefaultNotificationService{devices: devices}, nil
}

// BookingConfirmed pushes to both sides of a freshly confirmed booking.
func (s *DefaultNotificationService) BookingConfirmed(ctx context.Context, b *models.Booking) {
	logger := utils.GetLogger()
	when := fmt.Sprintf("%s at %s", b.Date, b.StartTime)

	if err := s.SendPush(ctx, b.StudentID,
		"Booking confirmed 🎉",
		fmt.Sprintf("Your session on %s is confirmed. See you there!", when),
		map[string]string{"type": "booking_confirmed", "bookingId": b.ID},
	); err != nil {
		logger.Warn("student confirmation push failed",
			zap.String("bookingId", b.ID), zap.Error(err))
	}

	if err := s.SendPush(ctx, b.InstructorID,
		"New booking",
		fmt.Sprintf("A student booked your %s session on %s.", b.Mode, when),
		map[string]string{"type": "booking_confirmed", "bookingId": b.ID},
	); err != nil {
		logger.Warn("instructor confirmation push failed",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
}

// SessionReminder pushes the pre-session reminder to the student.
func (s *DefaultNotificationService) SessionReminder(ctx context.Context, b *models.Booking) error {
	return s.SendPush(ctx, b.StudentID,
		"Session coming up ⏰",
		fmt.Sprintf("Your session starts at %s on %s.", b.StartTime, b.Date),
		map[string]string{"type": "session_reminder", "bookingId": b.ID},
	)
}

// SendPush looks up the account's FCM token and sends one message.
func (s *DefaultNotificationService) SendPush(ctx context.Context, accountID, title, body string, data map[string]string) error {
	token, err := s.devices.GetToken(ctx, accountID)
	if err != nil {
		return fmt.Errorf("SendPush: no push target for %s: %w", accountID, err)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendPush: failed to send FCM message: %w", err)
	}
	return nil
}
