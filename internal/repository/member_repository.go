package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

// MemberRepository recent-contacts and notification persistence
type MemberRepository interface {
	// TouchRecent records an interaction between the two members, keyed by
	// the unordered pair; the most recent interaction wins.
	TouchRecent(ctx context.Context, memberID, relateMemberID int64, action models.RecentAction) error
	ListRecent(ctx context.Context, memberID int64, limit int) ([]*models.MemberRecent, error)

	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, memberID int64, page, pageSize int) ([]*models.Notification, int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a MemberRepository backed by gorm.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) TouchRecent(ctx context.Context, memberID, relateMemberID int64, action models.RecentAction) error {
	// Normalize the pair so both directions share one row; MemberID keeps
	// the last actor so Action remains meaningful.
	a, b, act := memberID, relateMemberID, action
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recent models.MemberRecent
		err := tx.Where(
			"(member_id = ? AND relate_member_id = ?) OR (member_id = ? AND relate_member_id = ?)",
			a, b, b, a,
		).First(&recent).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.MemberRecent{
				MemberID:       a,
				RelateMemberID: b,
				Action:         act,
				Recent:         time.Now(),
			}).Error
		case err != nil:
			return err
		default:
			return tx.Model(&recent).Updates(map[string]interface{}{
				"member_id":        a,
				"relate_member_id": b,
				"action":           act,
				"recent":           time.Now(),
			}).Error
		}
	})
}

func (r *memberRepository) ListRecent(ctx context.Context, memberID int64, limit int) ([]*models.MemberRecent, error) {
	var list []*models.MemberRecent
	err := r.db.WithContext(ctx).
		Where("member_id = ? OR relate_member_id = ?", memberID, memberID).
		Order("recent DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *memberRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *memberRepository) ListNotifications(ctx context.Context, memberID int64, page, pageSize int) ([]*models.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("to_member_id = ?", memberID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []*models.Notification
	offset := (page - 1) * pageSize
	err := query.Order("notify_at DESC").Offset(offset).Limit(pageSize).Find(&list).Error
	return list, total, err
}
