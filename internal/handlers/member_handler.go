package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
	"github.com/EZGGdotxyz/ezgg-service/internal/services"
)

// MemberHandler recent contacts and notification feed.
type MemberHandler struct {
	members       *services.MemberService
	notifications *services.NotificationService
}

// NewMemberHandler creates a MemberHandler.
func NewMemberHandler(members *services.MemberService, notifications *services.NotificationService) *MemberHandler {
	return &MemberHandler{members: members, notifications: notifications}
}

// ListRecent GET /api/members/recents
func (h *MemberHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	recents, err := h.members.ListRecent(c.Request.Context(), middleware.MemberID(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, recents)
}

// ListNotifications GET /api/members/notifications
func (h *MemberHandler) ListNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	rows, total, err := h.notifications.ListNotifications(c.Request.Context(), middleware.MemberID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"records": rows, "total": total})
}
