package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/applied/internal/app"
	"github.com/pscheid92/applied/internal/domain"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
	"github.com/pscheid92/applied/internal/projection"
)

const (
	defaultRecentEvents = 20
	maxRecentEvents     = 100
)

func (s *Server) registerApplicationRoutes(limiter echo.MiddlewareFunc) {
	g := s.echo.Group("/applications", limiter)
	g.GET("", s.handleListApplications)
	g.POST("", s.handleCreateApplication)
	g.GET("/stale", s.handleStaleApplications)
	g.GET("/:id", s.handleGetApplication)
	g.PATCH("/:id", s.handleEditApplication)
	g.POST("/:id/status", s.handleChangeStatus)
	g.GET("/:id/events", s.handleListEvents)
	g.GET("/:id/staleness", s.handleApplicationStaleness)
	g.GET("/:id/history/verify", s.handleVerifyHistory)

	s.echo.GET("/statuses", s.handleStatuses, limiter)
	s.echo.GET("/events/recent", s.handleRecentEvents, limiter)
}

type applicationResponse struct {
	ID             int64         `json:"id"`
	CompanyName    string        `json:"company_name"`
	RoleTitle      string        `json:"role_title"`
	Status         domain.Status `json:"status"`
	AppliedAt      domain.Date   `json:"applied_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	JobURL         *string       `json:"job_url"`
	JobDescription *string       `json:"job_description"`
}

type eventResponse struct {
	ID         int64            `json:"id"`
	EventType  domain.EventType `json:"event_type"`
	FromStatus *domain.Status   `json:"from_status"`
	ToStatus   *domain.Status   `json:"to_status"`
	Note       *string          `json:"note"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type recentEventResponse struct {
	ApplicationID int64 `json:"application_id"`
	eventResponse
}

type staleItemResponse struct {
	Application  applicationResponse `json:"application"`
	DaysInactive int                 `json:"days_inactive"`
}

type staleReportResponse struct {
	Total int                 `json:"total"`
	Items []staleItemResponse `json:"items"`
}

type stalenessResponse struct {
	Stale        bool `json:"stale"`
	DaysInactive *int `json:"days_inactive"`
}

type historyCheckResponse struct {
	ApplicationID  int64         `json:"application_id"`
	InitialStatus  domain.Status `json:"initial_status"`
	ReplayedStatus domain.Status `json:"replayed_status"`
	CurrentStatus  domain.Status `json:"current_status"`
	EventCount     int           `json:"event_count"`
	BrokenLinks    []int64       `json:"broken_links"`
	Consistent     bool          `json:"consistent"`
}

type createApplicationBody struct {
	CompanyName    string  `json:"company_name"`
	RoleTitle      string  `json:"role_title"`
	Status         *string `json:"status"`
	AppliedAt      *string `json:"applied_at"`
	JobURL         *string `json:"job_url"`
	JobDescription *string `json:"job_description"`
	Note           *string `json:"note"`
}

type editApplicationBody struct {
	CompanyName    *string `json:"company_name"`
	RoleTitle      *string `json:"role_title"`
	JobURL         *string `json:"job_url"`
	JobDescription *string `json:"job_description"`
	AppliedAt      *string `json:"applied_at"`
}

type changeStatusBody struct {
	ToStatus string  `json:"to_status"`
	Note     *string `json:"note"`
}

func toApplicationResponse(a domain.Application) applicationResponse {
	return applicationResponse{
		ID:             a.ID,
		CompanyName:    a.CompanyName,
		RoleTitle:      a.RoleTitle,
		Status:         a.Status,
		AppliedAt:      a.AppliedAt,
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
		JobURL:         a.JobURL,
		JobDescription: a.JobDescription,
	}
}

func toApplicationResponses(apps []domain.Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResponse(a))
	}
	return out
}

func toEventResponses(events []domain.ApplicationEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:         e.ID,
			EventType:  e.Type,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Note:       e.Note,
			OccurredAt: e.OccurredAt.UTC(),
		})
	}
	return out
}

func toStaleReportResponse(report projection.StaleReport) staleReportResponse {
	items := make([]staleItemResponse, 0, len(report.Items))
	for _, item := range report.Items {
		items = append(items, staleItemResponse{
			Application:  toApplicationResponse(item.Application),
			DaysInactive: item.DaysInactive,
		})
	}
	return staleReportResponse{Total: report.Total, Items: items}
}

func (s *Server) handleListApplications(c echo.Context) error {
	apps, err := s.app.ListApplications(c.Request().Context(), app.ListQuery{
		Status: c.QueryParam("status"),
		Sort:   c.QueryParam("sort"),
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toApplicationResponses(apps))
}

func (s *Server) handleCreateApplication(c echo.Context) error {
	var body createApplicationBody
	if err := c.Bind(&body); err != nil {
		return err
	}

	created, err := s.app.CreateApplication(c.Request().Context(), app.CreateApplicationRequest{
		CompanyName:    body.CompanyName,
		RoleTitle:      body.RoleTitle,
		Status:         body.Status,
		AppliedAt:      body.AppliedAt,
		JobURL:         body.JobURL,
		JobDescription: body.JobDescription,
		Note:           body.Note,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, toApplicationResponse(*created))
}

func (s *Server) handleGetApplication(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	a, err := s.app.GetApplication(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toApplicationResponse(*a))
}

func (s *Server) handleEditApplication(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	var body editApplicationBody
	if err := c.Bind(&body); err != nil {
		return err
	}

	updated, err := s.app.EditApplication(c.Request().Context(), id, app.EditApplicationRequest{
		CompanyName:    body.CompanyName,
		RoleTitle:      body.RoleTitle,
		JobURL:         body.JobURL,
		JobDescription: body.JobDescription,
		AppliedAt:      body.AppliedAt,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toApplicationResponse(*updated))
}

func (s *Server) handleChangeStatus(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	var body changeStatusBody
	if err := c.Bind(&body); err != nil {
		return err
	}

	updated, err := s.app.ChangeStatus(c.Request().Context(), id, app.ChangeStatusRequest{
		ToStatus: body.ToStatus,
		Note:     body.Note,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toApplicationResponse(*updated))
}

func (s *Server) handleListEvents(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	events, err := s.app.ListEvents(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toEventResponses(events))
}

func (s *Server) handleStaleApplications(c echo.Context) error {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		return err
	}
	report, err := s.app.StaleApplications(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, toStaleReportResponse(report))
}

func (s *Server) handleApplicationStaleness(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	staleness, err := s.app.ApplicationStaleness(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, stalenessResponse{
		Stale:        staleness.Stale,
		DaysInactive: staleness.DaysInactive,
	})
}

func (s *Server) handleVerifyHistory(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return err
	}
	check, err := s.app.VerifyHistory(c.Request().Context(), id)
	if err != nil {
		return err
	}

	brokenLinks := check.BrokenLinks
	if brokenLinks == nil {
		brokenLinks = []int64{}
	}
	return writeJSON(c, http.StatusOK, historyCheckResponse{
		ApplicationID:  check.ApplicationID,
		InitialStatus:  check.InitialStatus,
		ReplayedStatus: check.ReplayedStatus,
		CurrentStatus:  check.CurrentStatus,
		EventCount:     check.EventCount,
		BrokenLinks:    brokenLinks,
		Consistent:     check.Consistent(),
	})
}

func (s *Server) handleStatuses(c echo.Context) error {
	return writeJSON(c, http.StatusOK, domain.Statuses())
}

func (s *Server) handleRecentEvents(c echo.Context) error {
	limit, err := intQuery(c, "limit", defaultRecentEvents)
	if err != nil {
		return err
	}
	if limit == 0 || limit > maxRecentEvents {
		limit = maxRecentEvents
	}

	if s.recent == nil {
		return writeJSON(c, http.StatusOK, []recentEventResponse{})
	}

	events, err := s.recent.Recent(c.Request().Context(), int64(limit))
	if err != nil {
		return apperrors.UnavailableError("event stream unavailable", err)
	}

	out := make([]recentEventResponse, 0, len(events))
	for i, e := range toEventResponses(events) {
		out = append(out, recentEventResponse{ApplicationID: events[i].ApplicationID, eventResponse: e})
	}
	return writeJSON(c, http.StatusOK, out)
}

func applicationID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("invalid application id").WithField("id", raw)
	}
	return id, nil
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.ValidationError(name + " must be a non-negative integer").WithField(name, raw)
	}
	return v, nil
}

func writeJSON(c echo.Context, status int, v any) error {
	if err := c.JSON(status, v); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
