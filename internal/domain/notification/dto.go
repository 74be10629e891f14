package notification

import (
	"time"
)

// ============= Request DTOs =============

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	RecipientID string
	Type        NotificationType
	Category    Category
	Title       string
	Message     string
	RelatedID   *string
	Data        map[string]interface{}
}

// BulkNotificationRequest sends the same notification to many recipients
type BulkNotificationRequest struct {
	RecipientIDs []string
	Type         NotificationType
	Category     Category
	Title        string
	Message      string
	RelatedID    *string
	Data         map[string]interface{}
}

// Expand turns a bulk request into one request per recipient.
func (r BulkNotificationRequest) Expand() []CreateNotificationRequest {
	reqs := make([]CreateNotificationRequest, 0, len(r.RecipientIDs))
	for _, recipientID := range r.RecipientIDs {
		reqs = append(reqs, CreateNotificationRequest{
			RecipientID: recipientID,
			Type:        r.Type,
			Category:    r.Category,
			Title:       r.Title,
			Message:     r.Message,
			RelatedID:   r.RelatedID,
			Data:        r.Data,
		})
	}
	return reqs
}

// ============= Response DTOs =============

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Category  Category               `json:"category"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	RelatedID *string                `json:"related_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}
