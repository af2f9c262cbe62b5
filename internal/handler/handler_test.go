package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gymclass/internal/handler/dto"
	"gymclass/internal/model"
	"gymclass/internal/service"
	"gymclass/internal/service/servicetest"
)

var (
	trainerTom  = &model.User{ID: 10, Name: "Tom", Role: model.RoleTrainer}
	memberAlice = &model.User{ID: 20, Name: "Alice", Role: model.RoleMember}
	staffOlga   = &model.User{ID: 30, Name: "Olga", Role: model.RoleStaff}
	mondayAtSix = time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC)
)

// newTestApp wires real services over in-memory fakes behind the handler.
func newTestApp(t *testing.T) (*fiber.App, *Handler, *servicetest.Store) {
	t.Helper()

	store := servicetest.NewStore()
	users := servicetest.NewUsers(trainerTom, memberAlice, staffOlga)
	cache := servicetest.NewCache()
	notifier := &servicetest.Notifier{}
	entitlements := &servicetest.Entitlements{}

	classes := service.NewClassService(store, users, cache, notifier, zap.NewNop())
	bookings := service.NewBookingService(store, users, entitlements, cache, notifier, zap.NewNop())

	h := New(classes, bookings, zap.NewNop())
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app, nil)

	return app, h, store
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, dto.ErrorResponse) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var errResp dto.ErrorResponse
	_ = json.Unmarshal(body, &errResp)
	return resp, errResp
}

func TestHealthz(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzDownWhenPingFails(t *testing.T) {
	h := New(nil, nil, zap.NewNop())
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app, func(c *fiber.Ctx) error {
		return errors.New("pool unreachable")
	})

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPrincipalFromHeaders(t *testing.T) {
	app, _, _ := newTestApp(t)

	tests := []struct {
		name     string
		userID   string
		userRole string
		want     int
	}{
		{"missing both", "", "", http.StatusUnauthorized},
		{"missing role", "10", "", http.StatusUnauthorized},
		{"id not a number", "abc", "staff", http.StatusUnauthorized},
		{"unknown role", "10", "admin", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/classes", strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			if tc.userID != "" {
				req.Header.Set("X-User-ID", tc.userID)
			}
			if tc.userRole != "" {
				req.Header.Set("X-User-Role", tc.userRole)
			}

			resp, errResp := doRequest(t, app, req)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestInvalidBodyRejectedBeforeService(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/classes", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "30")
	req.Header.Set("X-User-Role", "staff")

	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestValidationRejectsMissingFields(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{"member_id":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "20")
	req.Header.Set("X-User-Role", "member")

	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParamIDValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	for _, path := range []string{
		"/api/bookings/abc",
		"/api/bookings/-5",
	} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		req.Header.Set("X-User-ID", "20")
		req.Header.Set("X-User-Role", "member")

		resp, _ := doRequest(t, app, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestListClassesBadTimeFilter(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/classes?from=yesterday", nil)

	resp, errResp := doRequest(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errResp.Error, "RFC3339")
}

func TestCreateClassEndToEnd(t *testing.T) {
	app, _, store := newTestApp(t)

	body := fmt.Sprintf(`{
		"name": "Morning Yoga",
		"category": "yoga",
		"duration_minutes": 45,
		"capacity": 12,
		"trainer_id": %d,
		"schedule_start": %q,
		"recurrence_rule": "FREQ=WEEKLY;BYDAY=MO;COUNT=3"
	}`, trainerTom.ID, mondayAtSix.Format(time.RFC3339))

	req := httptest.NewRequest(http.MethodPost, "/api/classes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "30")
	req.Header.Set("X-User-Role", "staff")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created dto.CreateClassResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.TemplateID)
	require.Len(t, created.Classes, 3)
	assert.True(t, created.Classes[0].StartTime.Equal(mondayAtSix))
	assert.True(t, created.Classes[0].EndTime.Equal(mondayAtSix.Add(45*time.Minute)))

	assert.Len(t, store.OccurrenceRows, 3)
}

func TestBookClassEndToEnd(t *testing.T) {
	app, _, store := newTestApp(t)

	tpl := store.SeedTemplate(&model.ClassTemplate{Name: "Spin", DurationMinutes: 45, Capacity: 10})
	occ := store.SeedOccurrence(&model.ClassOccurrence{
		TemplateID: tpl.ID,
		TrainerID:  trainerTom.ID,
		StartTime:  mondayAtSix,
		EndTime:    mondayAtSix.Add(45 * time.Minute),
		IsActive:   true,
	})

	body := fmt.Sprintf(`{"member_id": %d, "occurrence_id": %d}`, memberAlice.ID, occ.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "20")
	req.Header.Set("X-User-Role", "member")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var booking dto.BookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))
	assert.Equal(t, memberAlice.ID, booking.MemberID)
	assert.Equal(t, occ.ID, booking.OccurrenceID)
	assert.Equal(t, string(model.BookingStatusConfirmed), booking.Status)

	// A second attempt for the same pair conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "20")
	req.Header.Set("X-User-Role", "member")

	dup, errResp := doRequest(t, app, req)
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
	assert.NotEmpty(t, errResp.Error)
	assert.Len(t, store.BookingRows, 1)
}

func TestGetClassIncludesRemainingSeats(t *testing.T) {
	app, _, store := newTestApp(t)

	tpl := store.SeedTemplate(&model.ClassTemplate{Name: "Spin", DurationMinutes: 45, Capacity: 10})
	occ := store.SeedOccurrence(&model.ClassOccurrence{
		TemplateID: tpl.ID,
		TrainerID:  trainerTom.ID,
		StartTime:  mondayAtSix,
		EndTime:    mondayAtSix.Add(45 * time.Minute),
		IsActive:   true,
	})
	store.SeedBooking(&model.Booking{
		MemberID:     memberAlice.ID,
		OccurrenceID: occ.ID,
		Status:       model.BookingStatusConfirmed,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/classes/%d", occ.ID), nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var class dto.ClassResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&class))
	require.NotNil(t, class.RemainingSeats)
	assert.Equal(t, 9, *class.RemainingSeats)
}

func TestMapError(t *testing.T) {
	_, h, _ := newTestApp(t)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.ErrValidation, http.StatusBadRequest},
		{"not found", model.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", &model.NotFoundError{Resource: "class", ID: 7}, http.StatusNotFound},
		{"forbidden", model.ErrForbidden, http.StatusForbidden},
		{"not entitled", model.ErrNotEntitled, http.StatusForbidden},
		{"schedule conflict", model.ErrScheduleConflict, http.StatusConflict},
		{"capacity", model.ErrCapacityExceeded, http.StatusConflict},
		{"duplicate booking", model.ErrDuplicateBooking, http.StatusConflict},
		{"already cancelled", model.ErrAlreadyCancelled, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return h.mapError(c, tc.err)
			})

			resp, errResp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}
