package notification

import (
	"time"

	"github.com/google/uuid"
)

// InboxQuery is parsed from GET /notifications query parameters
type InboxQuery struct {
	Limit  int  `json:"limit" validate:"gte=0,lte=100"`
	Offset int  `json:"offset" validate:"gte=0"`
	Unread bool `json:"unread"`
}

// Page converts the query into a repository page, applying the default size.
func (q InboxQuery) Page() Page {
	limit := q.Limit
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Page{Limit: limit, Offset: q.Offset, UnreadOnly: q.Unread}
}

// NotificationResponse for API
type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      *string    `json:"body,omitempty"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	EntityID  *uuid.UUID `json:"entity_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *string    `json:"read_at,omitempty"`
	CreatedAt string     `json:"created_at"`
}

func notificationResponse(n *Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		ActorID:   n.ActorID,
		EntityID:  n.EntityID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.Body.Valid {
		resp.Body = &n.Body.String
	}
	if n.ReadAt.Valid {
		at := n.ReadAt.Time.Format(time.RFC3339)
		resp.ReadAt = &at
	}
	return resp
}

// InboxResponse is the body of GET /notifications
type InboxResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
	Limit       int                    `json:"limit"`
	Offset      int                    `json:"offset"`
	HasMore     bool                   `json:"has_more"`
}

// InboxResponseFromInbox converts a service inbox to its API shape.
func InboxResponseFromInbox(in *Inbox) InboxResponse {
	items := make([]NotificationResponse, len(in.Items))
	for i, n := range in.Items {
		items[i] = notificationResponse(n)
	}
	return InboxResponse{
		Items:       items,
		UnreadCount: in.Unread,
		Limit:       in.Page.Limit,
		Offset:      in.Page.Offset,
		HasMore:     len(items) == in.Page.Limit,
	}
}

// UnreadCountResponse for unread count endpoint
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// MarkAllResponse reports how many notifications POST /read-all changed
type MarkAllResponse struct {
	Marked int64 `json:"marked"`
}
