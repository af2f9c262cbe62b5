package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"gymclass/internal/handler/dto"
	"gymclass/internal/model"
	"gymclass/internal/service"
)

// Handler is the HTTP surface over the scheduling and booking services.
// Authentication happens at the gateway; the principal arrives in trusted
// headers.
type Handler struct {
	classes  *service.ClassService
	bookings *service.BookingService
	validate *validator.Validate
	logger   *zap.Logger
}

func New(classes *service.ClassService, bookings *service.BookingService, logger *zap.Logger) *Handler {
	return &Handler{
		classes:  classes,
		bookings: bookings,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) CreateClass(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req dto.CreateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	tpl, occurrences, err := h.classes.CreateClass(c.Context(), service.CreateClassInput{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		TrainerID:       req.TrainerID,
		ScheduleStart:   req.ScheduleStart,
		RecurrenceRule:  req.RecurrenceRule,
		MaxOccurrences:  req.MaxOccurrences,
	}, caller)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateClassResponse{
		TemplateID: tpl.ID,
		Classes:    dto.NewClassListResponse(occurrences),
	})
}

func (h *Handler) UpdateClass(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	occurrenceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	occ, err := h.classes.UpdateClass(c.Context(), occurrenceID, service.UpdateClassInput{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		TrainerID:       req.TrainerID,
		StartTime:       req.StartTime,
	}, caller)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(dto.NewClassResponse(occ))
}

func (h *Handler) DeactivateClass(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	occurrenceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.classes.DeactivateClass(c.Context(), occurrenceID, caller); err != nil {
		return h.mapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListClasses(c *fiber.Ctx) error {
	filter := model.OccurrenceFilter{
		TrainerID: int64(c.QueryInt("trainer_id")),
		Category:  c.Query("category"),
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", model.DefaultPageSize),
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be RFC3339")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be RFC3339")
		}
		filter.To = &to
	}

	occurrences, err := h.classes.ListClasses(c.Context(), filter)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(dto.NewClassListResponse(occurrences))
}

func (h *Handler) GetClass(c *fiber.Ctx) error {
	occurrenceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	occ, err := h.classes.GetClass(c.Context(), occurrenceID)
	if err != nil {
		return h.mapError(c, err)
	}

	resp := dto.NewClassResponse(occ)

	// Seat availability is always authoritative, never cached.
	if remaining, err := h.bookings.RemainingSeats(c.Context(), occurrenceID); err == nil {
		resp.RemainingSeats = &remaining
	} else {
		h.logger.Debug("remaining seats unavailable",
			zap.Int64("occurrence_id", occurrenceID), zap.Error(err))
	}

	return c.JSON(resp)
}

func (h *Handler) BookClass(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req dto.BookClassRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	booking, err := h.bookings.BookClass(c.Context(), req.MemberID, req.OccurrenceID, caller)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewBookingResponse(booking))
}

func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	bookingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.bookings.CancelBooking(c.Context(), bookingID, caller); err != nil {
		return h.mapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListMemberBookings(c *fiber.Ctx) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}

	memberID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	bookings, err := h.bookings.ListMemberBookings(c.Context(), memberID, caller)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(dto.NewBookingListResponse(bookings))
}

// mapError translates the service error taxonomy to HTTP statuses.
func (h *Handler) mapError(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case errors.Is(err, model.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrNotEntitled):
		status = fiber.StatusForbidden
	case errors.Is(err, model.ErrScheduleConflict),
		errors.Is(err, model.ErrCapacityExceeded),
		errors.Is(err, model.ErrDuplicateBooking),
		errors.Is(err, model.ErrAlreadyCancelled):
		status = fiber.StatusConflict
	default:
		h.logger.Error("internal error", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error()})
}

// principalFrom builds the caller identity from gateway headers.
func principalFrom(c *fiber.Ctx) (model.Principal, error) {
	rawID := c.Get("X-User-ID")
	rawRole := c.Get("X-User-Role")
	if rawID == "" || rawRole == "" {
		return model.Principal{}, fiber.NewError(fiber.StatusUnauthorized, "missing identity headers")
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return model.Principal{}, fiber.NewError(fiber.StatusUnauthorized, "invalid X-User-ID")
	}

	role := model.Role(rawRole)
	switch role {
	case model.RoleMember, model.RoleTrainer, model.RoleStaff:
	default:
		return model.Principal{}, fiber.NewError(fiber.StatusUnauthorized, "invalid X-User-Role")
	}

	return model.Principal{ID: id, Role: role}, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
