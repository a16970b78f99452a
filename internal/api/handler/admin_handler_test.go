package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/postpilot/content-system/internal/core/domain"
)

// fakeUserRepo serves only the lookups the admin handler performs.
type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) { return u, nil }
func (r *fakeUserRepo) FindByChatID(context.Context, int64) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (r *fakeUserRepo) TransitionState(context.Context, string, domain.SessionState, domain.SessionState) error {
	return nil
}
func (r *fakeUserRepo) SetEmail(context.Context, string, string) error              { return nil }
func (r *fakeUserRepo) SetNiche(context.Context, string, string) error              { return nil }
func (r *fakeUserRepo) SetSubscription(context.Context, string, time.Time) error    { return nil }
func (r *fakeUserRepo) SetPendingPrompt(context.Context, string, string, string, string) error {
	return nil
}
func (r *fakeUserRepo) ClearPendingPrompt(context.Context, string) error { return nil }
func (r *fakeUserRepo) ListForDailyPrompt(context.Context) ([]*domain.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) ListExpired(context.Context, time.Time) ([]*domain.User, error) {
	return nil, nil
}

type fakeCatalog struct {
	entries map[int]*domain.ContentEntry
	day     int
	pinned  bool
}

func (c *fakeCatalog) Lookup(_ context.Context, day int) (*domain.ContentEntry, error) {
	e, ok := c.entries[day]
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	return e, nil
}

func (c *fakeCatalog) ActiveDay(context.Context) (int, bool, error) { return c.day, c.pinned, nil }

func (c *fakeCatalog) SetActiveDay(_ context.Context, day int) error {
	c.day, c.pinned = day, true
	return nil
}

func (c *fakeCatalog) ClearActiveDay(context.Context) error {
	c.day, c.pinned = 0, false
	return nil
}

func newAdminFixture() (*AdminHandler, *fakeUserRepo, *fakeCatalog) {
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	catalog := &fakeCatalog{entries: map[int]*domain.ContentEntry{}}
	h := NewAdminHandler(users, nil, catalog, nil, 10)
	return h, users, catalog
}

func TestAdminHandler_GetUser(t *testing.T) {
	e := newTestEcho()
	h, users, _ := newAdminFixture()
	users.users["u1"] = &domain.User{
		ID:            "u1",
		ChatID:        42,
		Email:         "user@example.com",
		State:         domain.StateIdle,
		Niche:         "fitness",
		PostsThisWeek: 3,
		WeekAnchor:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		RegisteredAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")

	if err := h.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["state"] != "idle" || resp["niche"] != "fitness" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["posts_this_week"] != float64(3) || resp["weekly_limit"] != float64(10) {
		t.Fatalf("unexpected quota fields: %+v", resp)
	}
}

func TestAdminHandler_GetUser_NotFound(t *testing.T) {
	e := newTestEcho()
	h, _, _ := newAdminFixture()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetUser(c)
	if err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound to bubble to the error handler, got %v", err)
	}
}

func TestAdminHandler_SetReminderDay_Pins(t *testing.T) {
	e := newTestEcho()
	h, _, catalog := newAdminFixture()
	catalog.entries[7] = &domain.ContentEntry{ID: "c7", DayOfMonth: 7}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"day_of_month":7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SetReminderDay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !catalog.pinned || catalog.day != 7 {
		t.Fatalf("catalog not pinned: day=%d pinned=%v", catalog.day, catalog.pinned)
	}
}

func TestAdminHandler_SetReminderDay_RejectsDayWithoutContent(t *testing.T) {
	e := newTestEcho()
	h, _, catalog := newAdminFixture()

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"day_of_month":7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SetReminderDay(c)
	if err != domain.ErrContentNotFound {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
	if catalog.pinned {
		t.Fatal("catalog must not be pinned to a day without content")
	}
}

func TestAdminHandler_SetReminderDay_ZeroClears(t *testing.T) {
	e := newTestEcho()
	h, _, catalog := newAdminFixture()
	catalog.day, catalog.pinned = 7, true

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"day_of_month":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SetReminderDay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if catalog.pinned {
		t.Fatal("pin must be cleared")
	}
}

func TestAdminHandler_SetReminderDay_OutOfRange(t *testing.T) {
	e := newTestEcho()
	h, _, _ := newAdminFixture()

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"day_of_month":32}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SetReminderDay(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}
