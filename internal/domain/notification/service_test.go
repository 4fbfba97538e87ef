package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type repoStub struct {
	created   []*Notification
	createErr error
	listErr   error
	lastPage  Page
	deleted   time.Time
}

func (r *repoStub) Create(_ context.Context, n *Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, n)
	return nil
}

func (r *repoStub) ListByUser(_ context.Context, userID uuid.UUID, page Page) ([]*Notification, error) {
	r.lastPage = page
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*Notification
	for _, n := range r.created {
		if n.UserID == userID && (!page.UnreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	if page.Offset >= len(out) {
		return []*Notification{}, nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *repoStub) CountUnreadByUser(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, x := range r.created {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *repoStub) MarkAsRead(_ context.Context, userID, id uuid.UUID) (bool, error) {
	for _, n := range r.created {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *repoStub) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	var changed int64
	for _, n := range r.created {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (r *repoStub) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.deleted = cutoff
	return 2, nil
}

func TestCreateFillsCopyAndReferences(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo)
	userID, actorID, entityID := uuid.New(), uuid.New(), uuid.New()

	n, err := svc.Create(context.Background(), userID, TypePaymentApproved, &actorID, &entityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Title == "" || !n.Body.Valid {
		t.Fatalf("expected title and body, got %+v", n)
	}
	if *n.ActorID != actorID || *n.EntityID != entityID {
		t.Fatalf("references not kept: %+v", n)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(repo.created))
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	repo := &repoStub{createErr: errors.New("db down")}
	svc := NewService(repo)

	svc.Notify(context.Background(), uuid.New(), TypePaymentRejected, nil, nil)

	if len(repo.created) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestCleanupUsesRetentionWindow(t *testing.T) {
	repo := &repoStub{}
	job := NewCleanupJob(repo, 30)
	fixed := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	rows, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 2 {
		t.Fatalf("expected 2 rows, got %d", rows)
	}
	if want := fixed.AddDate(0, 0, -30); !repo.deleted.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.deleted)
	}
}

func TestInboxPagesAndCountsUnread(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, userID, TypePurchaseCompleted, nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	svc.Notify(ctx, uuid.New(), TypePurchaseCompleted, nil, nil)

	if err := svc.MarkAsRead(ctx, userID, repo.created[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inbox, err := svc.Inbox(ctx, userID, Page{Limit: 10, UnreadOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inbox.Items) != 2 || inbox.Unread != 2 {
		t.Fatalf("expected 2 unread items, got %d items, %d unread", len(inbox.Items), inbox.Unread)
	}

	marked, err := svc.MarkAllAsRead(ctx, userID)
	if err != nil || marked != 2 {
		t.Fatalf("expected 2 marked, got %d, %v", marked, err)
	}
	if n, _ := svc.UnreadCount(ctx, userID); n != 0 {
		t.Fatalf("expected no unread left, got %d", n)
	}
}

func TestMarkAsReadOfForeignNotification(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo)
	n, err := svc.Create(context.Background(), uuid.New(), TypePaymentApproved, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = svc.MarkAsRead(context.Background(), uuid.New(), n.ID)
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
	if n.IsRead {
		t.Fatal("another user's notification must stay unread")
	}
}

func TestInboxStorageFailureKeepsCause(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&repoStub{listErr: boom})

	_, err := svc.Inbox(context.Background(), uuid.New(), Page{Limit: 20})
	if !errors.Is(err, ErrStorage) || !errors.Is(err, boom) {
		t.Fatalf("expected storage error wrapping cause, got %v", err)
	}
}
