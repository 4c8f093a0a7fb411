package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/pscheid92/applied/internal/app"
	"github.com/pscheid92/applied/internal/domain"
	apperrors "github.com/pscheid92/applied/internal/platform/errors"
	"github.com/pscheid92/applied/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateApplication(t *testing.T) {
	var got app.CreateApplicationRequest
	srv := newTestServer(t, &mockAppService{
		createFn: func(_ context.Context, req app.CreateApplicationRequest) (*domain.Application, error) {
			got = req
			return sampleApplication(7), nil
		},
	})

	rec := serve(srv, http.MethodPost, "/applications",
		`{"company_name":"Acme","role_title":"Backend Engineer","job_url":"https://acme.example/jobs/42","note":"referral"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, "Backend Engineer", got.RoleTitle)
	assert.Nil(t, got.Status)
	require.NotNil(t, got.Note)
	assert.Equal(t, "referral", *got.Note)

	assert.JSONEq(t, `{
		"id": 7,
		"company_name": "Acme",
		"role_title": "Backend Engineer",
		"status": "applied",
		"applied_at": "2024-05-01",
		"created_at": "2024-05-04T10:30:00Z",
		"updated_at": "2024-05-05T10:30:00Z",
		"job_url": "https://acme.example/jobs/42",
		"job_description": null
	}`, rec.Body.String())
}

func TestCreateApplication_ValidationError(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		createFn: func(context.Context, app.CreateApplicationRequest) (*domain.Application, error) {
			return nil, domain.NewValidationError("company_name", "company_name is required")
		},
	})

	rec := serve(srv, http.MethodPost, "/applications", `{"company_name":"  ","role_title":"SRE"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
	assert.Equal(t, "company_name", resp.Context["field"])
}

func TestCreateApplication_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		createFn: func(context.Context, app.CreateApplicationRequest) (*domain.Application, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	})

	rec := serve(srv, http.MethodPost, "/applications", `{"company_name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
}

func TestGetApplication(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		getFn: func(_ context.Context, id int64) (*domain.Application, error) {
			return sampleApplication(id), nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/3", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":3`)
	assert.Contains(t, rec.Body.String(), `"applied_at":"2024-05-01"`)
}

func TestGetApplication_InvalidID(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	for _, id := range []string{"abc", "0", "-4"} {
		rec := serve(srv, http.MethodGet, "/applications/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestGetApplication_NotFound(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/applications/99", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"application not found","type":"not_found"}`, rec.Body.String())
}

func TestChangeStatus(t *testing.T) {
	var gotID int64
	var gotReq app.ChangeStatusRequest
	srv := newTestServer(t, &mockAppService{
		changeStatusFn: func(_ context.Context, id int64, req app.ChangeStatusRequest) (*domain.Application, error) {
			gotID, gotReq = id, req
			a := sampleApplication(id)
			a.Status = domain.StatusOnsite
			return a, nil
		},
	})

	rec := serve(srv, http.MethodPost, "/applications/5/status", `{"to_status":"onsite","note":"loop booked"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), gotID)
	assert.Equal(t, "onsite", gotReq.ToStatus)
	assert.Equal(t, "loop booked", *gotReq.Note)
	assert.Contains(t, rec.Body.String(), `"status":"onsite"`)
}

func TestChangeStatus_NoOpIsConflict(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		changeStatusFn: func(context.Context, int64, app.ChangeStatusRequest) (*domain.Application, error) {
			return nil, domain.ErrNoOpTransition
		},
	})

	rec := serve(srv, http.MethodPost, "/applications/5/status", `{"to_status":"applied"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"conflict"`)
}

func TestChangeStatus_UnknownStatus(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		changeStatusFn: func(_ context.Context, _ int64, req app.ChangeStatusRequest) (*domain.Application, error) {
			_, err := domain.ParseStatus(req.ToStatus)
			return nil, err
		},
	})

	rec := serve(srv, http.MethodPost, "/applications/5/status", `{"to_status":"Offer"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"status"`)
}

func TestEditApplication(t *testing.T) {
	var gotReq app.EditApplicationRequest
	srv := newTestServer(t, &mockAppService{
		editFn: func(_ context.Context, id int64, req app.EditApplicationRequest) (*domain.Application, error) {
			gotReq = req
			a := sampleApplication(id)
			a.RoleTitle = *req.RoleTitle
			a.JobURL = nil
			return a, nil
		},
	})

	rec := serve(srv, http.MethodPatch, "/applications/2", `{"role_title":"Staff Engineer","job_url":""}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotReq.CompanyName)
	assert.Equal(t, "Staff Engineer", *gotReq.RoleTitle)
	require.NotNil(t, gotReq.JobURL)
	assert.Empty(t, *gotReq.JobURL)
	assert.Contains(t, rec.Body.String(), `"job_url":null`)
}

func TestListApplications_PassesQuery(t *testing.T) {
	var got app.ListQuery
	srv := newTestServer(t, &mockAppService{
		listFn: func(_ context.Context, q app.ListQuery) ([]domain.Application, error) {
			got = q
			return []domain.Application{*sampleApplication(1), *sampleApplication(2)}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications?status=offer&sort=company_az", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.ListQuery{Status: "offer", Sort: "company_az"}, got)

	var resp []applicationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListApplications_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/applications", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListApplications_BadSort(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		listFn: func(_ context.Context, q app.ListQuery) ([]domain.Application, error) {
			_, err := projection.ParseSortMode(q.Sort)
			return nil, err
		},
	})

	rec := serve(srv, http.MethodGet, "/applications?sort=random", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEvents(t *testing.T) {
	note := "edited: role_title"
	srv := newTestServer(t, &mockAppService{
		listEventsFn: func(_ context.Context, id int64) ([]domain.ApplicationEvent, error) {
			return []domain.ApplicationEvent{
				{
					ID:            1,
					ApplicationID: id,
					Type:          domain.EventTypeStatusChange,
					FromStatus:    statusPtr(domain.StatusApplied),
					ToStatus:      statusPtr(domain.StatusOnsite),
					OccurredAt:    testNow.Add(-time.Hour),
				},
				{
					ID:            2,
					ApplicationID: id,
					Type:          domain.EventTypeEdit,
					Note:          &note,
					OccurredAt:    testNow,
				},
			}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/4/events", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":1,"event_type":"status_change","from_status":"applied","to_status":"onsite","note":null,"occurred_at":"2024-05-06T09:30:00Z"},
		{"id":2,"event_type":"edit","from_status":null,"to_status":null,"note":"edited: role_title","occurred_at":"2024-05-06T10:30:00Z"}
	]`, rec.Body.String())
}

func TestListEvents_NotFound(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/applications/4/events", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaleApplications(t *testing.T) {
	var gotLimit int
	srv := newTestServer(t, &mockAppService{
		staleFn: func(_ context.Context, limit int) (projection.StaleReport, error) {
			gotLimit = limit
			return projection.StaleReport{
				Total: 5,
				Items: []projection.StaleItem{{Application: *sampleApplication(9), DaysInactive: 21}},
			}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/stale?limit=1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gotLimit)

	var resp staleReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(9), resp.Items[0].Application.ID)
	assert.Equal(t, 21, resp.Items[0].DaysInactive)
}

func TestStaleApplications_DefaultLimitAndEmpty(t *testing.T) {
	gotLimit := -1
	srv := newTestServer(t, &mockAppService{
		staleFn: func(_ context.Context, limit int) (projection.StaleReport, error) {
			gotLimit = limit
			return projection.StaleReport{Items: []projection.StaleItem{}}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/stale", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, gotLimit)
	assert.JSONEq(t, `{"total":0,"items":[]}`, rec.Body.String())
}

func TestStaleApplications_BadLimit(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/applications/stale?limit=-2", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":"-2"`)
}

func TestApplicationStaleness(t *testing.T) {
	days := 14
	srv := newTestServer(t, &mockAppService{
		stalenessFn: func(context.Context, int64) (projection.Staleness, error) {
			return projection.Staleness{Stale: true, DaysInactive: &days}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/1/staleness", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stale":true,"days_inactive":14}`, rec.Body.String())
}

func TestVerifyHistory(t *testing.T) {
	srv := newTestServer(t, &mockAppService{
		verifyFn: func(_ context.Context, id int64) (*app.HistoryCheck, error) {
			return &app.HistoryCheck{
				ApplicationID:  id,
				InitialStatus:  domain.StatusApplied,
				ReplayedStatus: domain.StatusOffer,
				CurrentStatus:  domain.StatusOffer,
				EventCount:     3,
			}, nil
		},
	})

	rec := serve(srv, http.MethodGet, "/applications/8/history/verify", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"application_id": 8,
		"initial_status": "applied",
		"replayed_status": "offer",
		"current_status": "offer",
		"event_count": 3,
		"broken_links": [],
		"consistent": true
	}`, rec.Body.String())
}

func TestStatuses(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/statuses", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["applied","phone_screen","recruiter_screen","take_home","technical_screen","onsite","offer","rejected","withdrawn"]`, rec.Body.String())
}

func TestRecentEvents_WithoutStream(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/events/recent", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecentEvents(t *testing.T) {
	var gotLimit int64
	recent := &mockRecentEvents{
		recentFn: func(_ context.Context, limit int64) ([]domain.ApplicationEvent, error) {
			gotLimit = limit
			return []domain.ApplicationEvent{{
				ID:            12,
				ApplicationID: 3,
				Type:          domain.EventTypeStatusChange,
				FromStatus:    statusPtr(domain.StatusOnsite),
				ToStatus:      statusPtr(domain.StatusOffer),
				Note:          strPtr("verbal offer"),
				OccurredAt:    testNow,
			}}, nil
		},
	}
	srv := newTestServer(t, &mockAppService{}, withRecentEvents(recent))

	rec := serve(srv, http.MethodGet, "/events/recent", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(defaultRecentEvents), gotLimit)
	assert.JSONEq(t, `[{
		"application_id": 3,
		"id": 12,
		"event_type": "status_change",
		"from_status": "onsite",
		"to_status": "offer",
		"note": "verbal offer",
		"occurred_at": "2024-05-06T10:30:00Z"
	}]`, rec.Body.String())
}

func TestRecentEvents_LimitIsCapped(t *testing.T) {
	var gotLimit int64
	recent := &mockRecentEvents{
		recentFn: func(_ context.Context, limit int64) ([]domain.ApplicationEvent, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	srv := newTestServer(t, &mockAppService{}, withRecentEvents(recent))

	rec := serve(srv, http.MethodGet, "/events/recent?limit=5000", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(maxRecentEvents), gotLimit)
}

func TestRecentEvents_StreamDown(t *testing.T) {
	recent := &mockRecentEvents{
		recentFn: func(context.Context, int64) ([]domain.ApplicationEvent, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	srv := newTestServer(t, &mockAppService{}, withRecentEvents(recent))

	rec := serve(srv, http.MethodGet, "/events/recent", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCorrelationHeaderOnResponse(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/statuses", "")

	assert.Len(t, rec.Header().Get(correlationHeader), 16)
}
