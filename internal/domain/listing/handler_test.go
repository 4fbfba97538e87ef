package listing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/lazone/lazone-api/internal/domain/entitlement"
	"github.com/lazone/lazone-api/internal/domain/user"
	"github.com/lazone/lazone-api/internal/middleware"
)

func asOwner(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), userID, "user")))
		})
	}
}

func TestPublishEndpointStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(repo *repoStub, id uuid.UUID)
		gate       *gateStub
		wantStatus int
	}{
		{name: "published", gate: &gateStub{allow: true}, wantStatus: http.StatusOK},
		{name: "no credits", gate: &gateStub{allow: false}, wantStatus: http.StatusPaymentRequired},
		{name: "in progress", setup: func(repo *repoStub, id uuid.UUID) { repo.claims[id] = true }, gate: &gateStub{allow: true}, wantStatus: http.StatusConflict},
		{name: "unknown account", gate: &gateStub{err: fmt.Errorf("%w: %w", entitlement.ErrUnknownUser, user.ErrUserNotFound)}, wantStatus: http.StatusNotFound},
		{name: "storage", gate: &gateStub{err: entitlement.ErrStorage}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, owner, id := newFixture(false)
			if tt.setup != nil {
				tt.setup(repo, id)
			}
			router := NewHandler(NewService(repo, tt.gate)).Routes(asOwner(owner))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+id.String()+"/publish", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
