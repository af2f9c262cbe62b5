package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymclass/internal/model"
	"gymclass/internal/schedule"
	"gymclass/internal/service/ports"
)

// ClassService orchestrates class creation, editing, deactivation and
// reads. All mutations run inside one store transaction; a conflict
// anywhere in a creation batch aborts the whole batch.
type ClassService struct {
	store    ports.Store
	users    ports.UserDirectory
	cache    ports.ScheduleCache
	notifier ports.Notifier
	logger   *zap.Logger
}

func NewClassService(
	store ports.Store,
	users ports.UserDirectory,
	cache ports.ScheduleCache,
	notifier ports.Notifier,
	logger *zap.Logger,
) *ClassService {
	return &ClassService{
		store:    store,
		users:    users,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

type CreateClassInput struct {
	Name            string
	Description     string
	Category        string
	DurationMinutes int
	Capacity        int
	TrainerID       int64
	ScheduleStart   time.Time
	RecurrenceRule  string // empty = single occurrence at ScheduleStart
	MaxOccurrences  int    // 0 = no caller cap
}

type UpdateClassInput struct {
	Name            *string
	Description     *string
	Category        *string
	DurationMinutes *int
	Capacity        *int
	TrainerID       *int64
	StartTime       *time.Time
}

// CreateClass creates a template and its expanded occurrences atomically.
func (s *ClassService) CreateClass(ctx context.Context, in CreateClassInput, caller model.Principal) (*model.ClassTemplate, []*model.ClassOccurrence, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, nil, err
	}

	if caller.Role == model.RoleMember {
		return nil, nil, fmt.Errorf("members cannot create classes: %w", model.ErrForbidden)
	}
	if caller.IsTrainer() && caller.ID != in.TrainerID {
		return nil, nil, fmt.Errorf("trainer %d cannot create classes for trainer %d: %w", caller.ID, in.TrainerID, model.ErrForbidden)
	}

	trainer, err := s.users.GetByID(ctx, in.TrainerID)
	if err != nil {
		return nil, nil, fmt.Errorf("get trainer: %w", err)
	}
	if trainer == nil {
		return nil, nil, &model.NotFoundError{Resource: "trainer", ID: in.TrainerID}
	}
	if trainer.Role != model.RoleTrainer {
		return nil, nil, fmt.Errorf("%w: user %d is not a trainer", model.ErrValidation, in.TrainerID)
	}

	var desc *schedule.Descriptor
	if in.RecurrenceRule != "" {
		desc, err = schedule.ParseRule(in.RecurrenceRule)
		if err != nil {
			return nil, nil, err
		}
	}

	intervals := schedule.Expand(in.ScheduleStart, in.DurationMinutes, desc, in.MaxOccurrences)

	// A batch must not conflict with itself. Expansion is ordered, so
	// checking neighbours covers every pair.
	for i := 1; i < len(intervals); i++ {
		if intervals[i].Overlaps(intervals[i-1]) {
			return nil, nil, &model.ScheduleConflictError{
				TrainerID: in.TrainerID,
				Start:     intervals[i].Start,
				End:       intervals[i].End,
			}
		}
	}

	weekdays := model.NewWeekdaySet(in.ScheduleStart.Weekday())
	if desc != nil && !desc.Weekdays.IsEmpty() {
		weekdays = desc.Weekdays
	}
	groupID := uuid.New()

	tpl := &model.ClassTemplate{
		Name:            in.Name,
		Description:     in.Description,
		Category:        in.Category,
		DurationMinutes: in.DurationMinutes,
		Capacity:        in.Capacity,
	}
	var occurrences []*model.ClassOccurrence

	err = s.store.Within(ctx, func(ctx context.Context, st ports.Store) error {
		// Serialize schedule writes per trainer: two concurrent creates
		// could otherwise both pass the overlap check before either
		// inserts.
		if err := st.Occurrences().LockTrainerSchedule(ctx, in.TrainerID); err != nil {
			return err
		}

		if err := st.Templates().Create(ctx, tpl); err != nil {
			return err
		}

		for _, iv := range intervals {
			conflict, err := st.Occurrences().HasTrainerOverlap(ctx, in.TrainerID, iv.Start, iv.End, 0)
			if err != nil {
				return err
			}
			if conflict {
				return &model.ScheduleConflictError{
					TrainerID: in.TrainerID,
					Start:     iv.Start,
					End:       iv.End,
				}
			}

			occ := &model.ClassOccurrence{
				TemplateID: tpl.ID,
				TrainerID:  in.TrainerID,
				GroupID:    groupID,
				Weekdays:   weekdays,
				StartTime:  iv.Start,
				EndTime:    iv.End,
				IsActive:   true,
			}
			if err := st.Occurrences().Create(ctx, occ); err != nil {
				return err
			}
			occurrences = append(occurrences, occ)
		}

		return nil
	})
	if err != nil {
		occurrences = nil
		return nil, nil, err
	}

	s.logger.Info("class created",
		zap.Int64("template_id", tpl.ID),
		zap.Int64("trainer_id", in.TrainerID),
		zap.String("group_id", groupID.String()),
		zap.Int("occurrences", len(occurrences)),
	)

	go s.notifier.NotifyClassCreated(context.WithoutCancel(ctx), trainer, tpl, occurrences)
	s.cache.InvalidateListings()

	return tpl, occurrences, nil
}

// UpdateClass merges the partial fields into one occurrence (and its
// template), re-validating the trainer's schedule with the occurrence
// itself excluded from the conflict check.
func (s *ClassService) UpdateClass(ctx context.Context, occurrenceID int64, in UpdateClassInput, caller model.Principal) (*model.ClassOccurrence, error) {
	if caller.Role == model.RoleMember {
		return nil, fmt.Errorf("members cannot edit classes: %w", model.ErrForbidden)
	}

	if in.TrainerID != nil {
		trainer, err := s.users.GetByID(ctx, *in.TrainerID)
		if err != nil {
			return nil, fmt.Errorf("get trainer: %w", err)
		}
		if trainer == nil {
			return nil, &model.NotFoundError{Resource: "trainer", ID: *in.TrainerID}
		}
		if trainer.Role != model.RoleTrainer {
			return nil, fmt.Errorf("%w: user %d is not a trainer", model.ErrValidation, *in.TrainerID)
		}
	}

	var (
		updated    *model.ClassOccurrence
		resizedIDs []int64
	)

	err := s.store.Within(ctx, func(ctx context.Context, st ports.Store) error {
		occ, err := st.Occurrences().GetByIDForUpdate(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if occ == nil {
			return &model.NotFoundError{Resource: "occurrence", ID: occurrenceID}
		}

		if caller.IsTrainer() && occ.TrainerID != caller.ID {
			return fmt.Errorf("trainer %d does not own occurrence %d: %w", caller.ID, occurrenceID, model.ErrForbidden)
		}
		if caller.IsTrainer() && in.TrainerID != nil && *in.TrainerID != caller.ID {
			return fmt.Errorf("trainers cannot reassign classes: %w", model.ErrForbidden)
		}

		tpl, err := st.Templates().GetByID(ctx, occ.TemplateID)
		if err != nil {
			return err
		}
		if tpl == nil {
			return &model.NotFoundError{Resource: "class template", ID: occ.TemplateID}
		}

		oldDuration := tpl.DurationMinutes

		// Merge old and new values, then recompute the candidate interval.
		if in.Name != nil {
			tpl.Name = *in.Name
		}
		if in.Description != nil {
			tpl.Description = *in.Description
		}
		if in.Category != nil {
			tpl.Category = *in.Category
		}
		if in.DurationMinutes != nil {
			tpl.DurationMinutes = *in.DurationMinutes
		}
		if in.Capacity != nil {
			tpl.Capacity = *in.Capacity
		}
		if tpl.Name == "" || tpl.DurationMinutes <= 0 || tpl.Capacity <= 0 {
			return fmt.Errorf("%w: name, duration and capacity must be set", model.ErrValidation)
		}

		if in.TrainerID != nil {
			occ.TrainerID = *in.TrainerID
		}
		if in.StartTime != nil {
			occ.StartTime = *in.StartTime
			occ.Weekdays = model.NewWeekdaySet(occ.StartTime.Weekday())
		}
		occ.EndTime = occ.StartTime.Add(time.Duration(tpl.DurationMinutes) * time.Minute)

		if err := st.Occurrences().LockTrainerSchedule(ctx, occ.TrainerID); err != nil {
			return err
		}

		conflict, err := st.Occurrences().HasTrainerOverlap(ctx, occ.TrainerID, occ.StartTime, occ.EndTime, occ.ID)
		if err != nil {
			return err
		}
		if conflict {
			return &model.ScheduleConflictError{
				TrainerID: occ.TrainerID,
				Start:     occ.StartTime,
				End:       occ.EndTime,
			}
		}

		if err := st.Templates().Update(ctx, tpl); err != nil {
			return err
		}
		if err := st.Occurrences().Update(ctx, occ); err != nil {
			return err
		}

		// A duration edit lives on the shared template, so every sibling
		// interval has to be rewritten and re-checked too.
		if tpl.DurationMinutes != oldDuration {
			siblings, err := st.Occurrences().ListActiveByTemplate(ctx, tpl.ID)
			if err != nil {
				return err
			}

			newDuration := time.Duration(tpl.DurationMinutes) * time.Minute
			for _, sib := range siblings {
				if sib.ID == occ.ID {
					continue
				}

				sib.EndTime = sib.StartTime.Add(newDuration)

				conflict, err := st.Occurrences().HasTrainerOverlap(ctx, sib.TrainerID, sib.StartTime, sib.EndTime, sib.ID)
				if err != nil {
					return err
				}
				if conflict {
					return &model.ScheduleConflictError{
						TrainerID: sib.TrainerID,
						Start:     sib.StartTime,
						End:       sib.EndTime,
					}
				}

				if err := st.Occurrences().Update(ctx, sib); err != nil {
					return err
				}
				resizedIDs = append(resizedIDs, sib.ID)
			}
		}

		occ.Template = tpl
		updated = occ
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("class updated",
		zap.Int64("occurrence_id", occurrenceID),
		zap.Int64("trainer_id", updated.TrainerID),
	)

	s.cache.InvalidateOccurrence(occurrenceID)
	for _, id := range resizedIDs {
		s.cache.InvalidateOccurrence(id)
	}
	s.cache.InvalidateListings()

	return updated, nil
}

// DeactivateClass removes the occurrence from conflict checks and public
// listings. Existing bookings are left alone.
func (s *ClassService) DeactivateClass(ctx context.Context, occurrenceID int64, caller model.Principal) error {
	if caller.Role == model.RoleMember {
		return fmt.Errorf("members cannot deactivate classes: %w", model.ErrForbidden)
	}

	occ, err := s.store.Occurrences().GetByID(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if occ == nil {
		return &model.NotFoundError{Resource: "occurrence", ID: occurrenceID}
	}
	if caller.IsTrainer() && occ.TrainerID != caller.ID {
		return fmt.Errorf("trainer %d does not own occurrence %d: %w", caller.ID, occurrenceID, model.ErrForbidden)
	}

	if err := s.store.Occurrences().SetActive(ctx, occurrenceID, false); err != nil {
		return err
	}

	s.logger.Info("class deactivated",
		zap.Int64("occurrence_id", occurrenceID),
	)

	s.cache.InvalidateOccurrence(occurrenceID)
	s.cache.InvalidateListings()

	return nil
}

// ListClasses serves listings through the cache. Entries may lag writes by
// up to the cache TTL.
func (s *ClassService) ListClasses(ctx context.Context, filter model.OccurrenceFilter) ([]*model.ClassOccurrence, error) {
	filter = filter.Normalize()
	key := listingKey(filter)

	if items, ok := s.cache.GetListing(key); ok {
		return items, nil
	}

	items, err := s.store.Occurrences().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.cache.SetListing(key, items)
	return items, nil
}

// GetClass serves one occurrence (with template) through the cache.
func (s *ClassService) GetClass(ctx context.Context, occurrenceID int64) (*model.ClassOccurrence, error) {
	if occ, ok := s.cache.GetOccurrence(occurrenceID); ok {
		return occ, nil
	}

	occ, err := s.store.Occurrences().GetByID(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, &model.NotFoundError{Resource: "occurrence", ID: occurrenceID}
	}

	s.cache.SetOccurrence(occ)
	return occ, nil
}

func validateCreateInput(in CreateClassInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: class name is required", model.ErrValidation)
	case in.DurationMinutes <= 0:
		return fmt.Errorf("%w: duration must be positive", model.ErrValidation)
	case in.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", model.ErrValidation)
	case in.ScheduleStart.IsZero():
		return fmt.Errorf("%w: schedule start is required", model.ErrValidation)
	case in.MaxOccurrences < 0:
		return fmt.Errorf("%w: occurrence cap cannot be negative", model.ErrValidation)
	}
	return nil
}

// listingKey canonicalizes a filter so equal filters share a cache entry.
func listingKey(f model.OccurrenceFilter) string {
	from, to := "", ""
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("from=%s;to=%s;trainer=%d;category=%s;page=%d;size=%d",
		from, to, f.TrainerID, f.Category, f.Page, f.PageSize)
}
