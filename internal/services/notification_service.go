package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// Notification sources and subjects. Subjects name the lifecycle moment;
// actions qualify TRANS_UPDATE.
const (
	NotifySourceSystem = "SYSTEM"
	NotifySourceAdmin  = "ADMIN"

	NotifySubjectTransSend    = "TRANS_SEND"
	NotifySubjectTransRequest = "TRANS_REQUEST"
	NotifySubjectTransUpdate  = "TRANS_UPDATE"

	NotifyActionRequestAccepted = "REQUEST_ACCEPTED"
	NotifyActionRequestDeclined = "REQUEST_DECLINED"
	NotifyActionPayLinkAccepted = "PAY_LINK_ACCEPTED"
)

// Publisher sends a message to the event bus; implemented by
// clients.NATSClient.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// NotificationService records lifecycle notifications and fans them out on
// the bus. Persistence is the source of truth; a publish failure is logged
// and never fails the business operation.
type NotificationService struct {
	memberRepo repository.MemberRepository
	publisher  Publisher
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(memberRepo repository.MemberRepository, publisher Publisher) *NotificationService {
	return &NotificationService{memberRepo: memberRepo, publisher: publisher}
}

// NotifyInput one notification to one member.
type NotifyInput struct {
	Subject              string
	Action               string
	ToMemberID           int64
	ToMemberRole         models.ToMemberRole
	TransactionHistoryID *uint
}

// Notify stores the notification row and publishes it.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) error {
	notification := &models.Notification{
		NotificationID:       uuid.NewString(),
		Source:               NotifySourceSystem,
		Subject:              in.Subject,
		ToMemberID:           in.ToMemberID,
		ToMemberRole:         in.ToMemberRole,
		NotifyAt:             time.Now(),
		TransactionHistoryID: in.TransactionHistoryID,
	}
	if in.Action != "" {
		notification.Action = &in.Action
	}
	if err := s.memberRepo.CreateNotification(ctx, notification); err != nil {
		return err
	}

	if s.publisher != nil {
		topic := "notification." + in.Subject
		if in.Action != "" {
			topic += "." + in.Action
		}
		if err := s.publisher.Publish(topic, notification); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"notification_id": notification.NotificationID,
				"subject":         in.Subject,
			}).Warn("notification publish failed")
		}
	}
	return nil
}

// ListNotifications pages a member's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, memberID int64, page, pageSize int) ([]*models.Notification, int64, error) {
	return s.memberRepo.ListNotifications(ctx, memberID, page, pageSize)
}
