package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// AdminHandler exposes the operator-facing management endpoints: user
// inspection, the weekly post history, the pinned reminder day, and the
// subscription gate. All routes sit behind JWT auth plus RBAC.
type AdminHandler struct {
	users   ports.UserRepository
	posts   ports.PostRepository
	catalog ports.ContentCatalog
	session ports.SessionService
	limit   int
}

func NewAdminHandler(
	users ports.UserRepository,
	posts ports.PostRepository,
	catalog ports.ContentCatalog,
	session ports.SessionService,
	weeklyLimit int,
) *AdminHandler {
	return &AdminHandler{
		users:   users,
		posts:   posts,
		catalog: catalog,
		session: session,
		limit:   weeklyLimit,
	}
}

// --- Request / Response types ---

type userDetailResponse struct {
	ID            string `json:"id"`
	ChatID        int64  `json:"chat_id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name,omitempty"`
	Username      string `json:"username,omitempty"`
	State         string `json:"state"`
	Niche         string `json:"niche,omitempty"`
	PostsThisWeek int    `json:"posts_this_week"`
	WeeklyLimit   int    `json:"weekly_limit"`
	WeekAnchor    string `json:"week_anchor"`
	SubscribedTo  string `json:"subscribed_to,omitempty"`
	LastPostAt    string `json:"last_post_at,omitempty"`
	RegisteredAt  string `json:"registered_at"`
}

type postItemResponse struct {
	ID               string `json:"id"`
	AdaptedTopic     string `json:"adapted_topic"`
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	GeneratedContent string `json:"generated_content"`
	CreatedAt        string `json:"created_at"`
}

type weekPostsResponse struct {
	UserID    string             `json:"user_id"`
	WeekStart string             `json:"week_start"`
	Posts     []postItemResponse `json:"posts"`
}

type reminderDayRequest struct {
	// DayOfMonth pins the catalog to one day; zero clears the pin so the
	// scheduler follows the real calendar again.
	DayOfMonth int `json:"day_of_month" validate:"min=0,max=31"`
}

type reminderDayResponse struct {
	DayOfMonth int  `json:"day_of_month,omitempty"`
	Pinned     bool `json:"pinned"`
}

type subscriptionRequest struct {
	Action string `json:"action" validate:"required,oneof=suspend renew"`
}

// GetUser handles GET /v1/admin/users/:id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.users.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDetail(user, h.limit))
}

// GetUserPosts handles GET /v1/admin/users/:id/posts. The optional `week`
// query parameter (RFC 3339 date) selects a past week; it defaults to the
// current one.
func (h *AdminHandler) GetUserPosts(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")

	if _, err := h.users.FindByID(ctx, userID); err != nil {
		return err
	}

	weekStart := domain.WeekAnchor(time.Now())
	if raw := c.QueryParam("week"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "week must be a YYYY-MM-DD date")
		}
		weekStart = domain.WeekAnchor(t)
	}

	records, err := h.posts.ListWeek(ctx, userID, weekStart)
	if err != nil {
		return err
	}

	items := make([]postItemResponse, 0, len(records))
	for _, p := range records {
		items = append(items, postItemResponse{
			ID:               p.ID,
			AdaptedTopic:     p.AdaptedTopic,
			Question:         p.Question,
			Answer:           p.Answer,
			GeneratedContent: p.GeneratedContent,
			CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, weekPostsResponse{
		UserID:    userID,
		WeekStart: weekStart.Format("2006-01-02"),
		Posts:     items,
	})
}

// SetReminderDay handles PUT /v1/admin/reminder-day.
func (h *AdminHandler) SetReminderDay(c echo.Context) error {
	var req reminderDayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if req.DayOfMonth == 0 {
		if err := h.catalog.ClearActiveDay(ctx); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, reminderDayResponse{Pinned: false})
	}

	// Pinning a day without content is an operator mistake; fail loudly.
	if _, err := h.catalog.Lookup(ctx, req.DayOfMonth); err != nil {
		return err
	}
	if err := h.catalog.SetActiveDay(ctx, req.DayOfMonth); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reminderDayResponse{DayOfMonth: req.DayOfMonth, Pinned: true})
}

// GetReminderDay handles GET /v1/admin/reminder-day.
func (h *AdminHandler) GetReminderDay(c echo.Context) error {
	day, pinned, err := h.catalog.ActiveDay(c.Request().Context())
	if err != nil {
		return err
	}
	resp := reminderDayResponse{Pinned: pinned}
	if pinned {
		resp.DayOfMonth = day
	}
	return c.JSON(http.StatusOK, resp)
}

// SetSubscription handles PUT /v1/admin/users/:id/subscription.
func (h *AdminHandler) SetSubscription(c echo.Context) error {
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	userID := c.Param("id")

	var err error
	if req.Action == "suspend" {
		err = h.session.Suspend(ctx, userID)
	} else {
		err = h.session.Renew(ctx, userID)
	}
	if err != nil {
		return err
	}

	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDetail(user, h.limit))
}

func toUserDetail(u *domain.User, limit int) userDetailResponse {
	resp := userDetailResponse{
		ID:            u.ID,
		ChatID:        u.ChatID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		Username:      u.Username,
		State:         string(u.State),
		Niche:         u.Niche,
		PostsThisWeek: u.PostsThisWeek,
		WeeklyLimit:   limit,
		WeekAnchor:    u.WeekAnchor.UTC().Format("2006-01-02"),
		RegisteredAt:  u.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if !u.SubscribedTo.IsZero() {
		resp.SubscribedTo = u.SubscribedTo.UTC().Format(time.RFC3339)
	}
	if !u.LastPostAt.IsZero() {
		resp.LastPostAt = u.LastPostAt.UTC().Format(time.RFC3339)
	}
	return resp
}
