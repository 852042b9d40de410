package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "classbook/database/repository/booking"
	classRepo "classbook/database/repository/class"
	scheduleRepo "classbook/database/repository/schedule"
	"classbook/models"
	"classbook/services/scheduling"
	"classbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAdmissionService is the production admission controller. The only
// authoritative conflict check lives in the booking repository; everything
// here before the Reserve* call is validation and everything after is
// compensation.
type DefaultAdmissionService struct {
	Bookings  bookingRepo.Repository
	Schedules scheduleRepo.Repository
	Classes   classRepo.Repository
	Payments  PaymentIntenter
	Credits   CreditLedger
	Cache     CacheInvalidator
	Scheduler HoldScheduler
	Notifier  Notifier
}

// Reserve admits a booking request: re-validate the slot against a freshly
// generated candidate list, claim the occupancy key atomically in the store,
// then start payment (or burn package credits). Any collaborator failure
// after the claim releases the hold before returning.
func (s *DefaultAdmissionService) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	logger := utils.GetLogger()
	now := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	seats := req.GroupSize
	if seats == 0 {
		seats = 1
	}

	tpl, err := s.Schedules.GetByInstructor(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrNotFound) {
			return nil, NewValidationError("instructor %s has no published schedule", req.InstructorID)
		}
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	slot, err := s.matchCandidate(tpl, req, now)
	if err != nil {
		return nil, err
	}

	var cls *models.Class
	if req.ClassID != "" {
		cls, err = s.Classes.GetByID(ctx, req.ClassID)
		if err != nil {
			if errors.Is(err, classRepo.ErrNotFound) {
				return nil, NewValidationError("class %s does not exist", req.ClassID)
			}
			return nil, fmt.Errorf("load class: %w", err)
		}
		if cls.InstructorID != req.InstructorID {
			return nil, NewValidationError("class %s does not belong to instructor %s", req.ClassID, req.InstructorID)
		}
	}
	if req.Mode == models.ModeGroup {
		if cls.GroupSize <= 0 {
			return nil, NewValidationError("class %s is not configured for group booking", req.ClassID)
		}
		if seats > cls.GroupSize {
			return nil, NewValidationError("requested %d seats but class capacity is %d", seats, cls.GroupSize)
		}
	}

	b, err := s.buildBooking(tpl, req, slot, cls, seats, now)
	if err != nil {
		return nil, err
	}

	if req.Mode == models.ModeGroup {
		err = s.Bookings.ReserveGroup(ctx, b, cls.GroupSize)
	} else {
		err = s.Bookings.ReserveIndividual(ctx, b)
	}
	switch {
	case errors.Is(err, bookingRepo.ErrSlotTaken):
		return nil, ErrSlotUnavailable
	case errors.Is(err, bookingRepo.ErrCapacityExceeded):
		return nil, ErrSlotFull
	case err != nil:
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	s.invalidate(ctx, b)
	if s.Scheduler != nil && b.Expiry != nil {
		if err := s.Scheduler.ScheduleHoldExpiry(ctx, b, *b.Expiry); err != nil {
			// Lazy expiry on reads still covers this hold.
			logger.Warn("failed to schedule hold expiry sweep",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	if req.UseCredits {
		return s.settleWithCredits(ctx, b, seats)
	}

	secret, err := s.Payments.CreateIntent(ctx, b)
	if err != nil {
		logger.Error("payment intent creation failed, releasing hold",
			zap.String("bookingId", b.ID), zap.Error(err))
		s.releaseQuietly(ctx, b)
		return nil, ErrUpstream
	}
	logger.Info("booking hold created",
		zap.String("bookingId", b.ID),
		zap.String("instructorId", b.InstructorID),
		zap.String("slot", b.Date+" "+b.StartTime),
		zap.String("mode", b.Mode))
	return &ReserveResult{Booking: b, ClientSecret: secret}, nil
}

// settleWithCredits deducts package credits and instantly confirms the hold.
// The slot is claimed before the deduction, so a deduction failure must
// release it.
func (s *DefaultAdmissionService) settleWithCredits(ctx context.Context, b *models.Booking, seats int) (*ReserveResult, error) {
	logger := utils.GetLogger()
	if s.Credits == nil {
		s.releaseQuietly(ctx, b)
		return nil, NewValidationError("credit booking is not enabled")
	}
	if err := s.Credits.Deduct(ctx, b.StudentID, b.ClassID, seats); err != nil {
		logger.Warn("credit deduction failed, releasing hold",
			zap.String("bookingId", b.ID), zap.String("studentId", b.StudentID), zap.Error(err))
		s.releaseQuietly(ctx, b)
		return nil, ErrUpstream
	}
	confirmed, err := s.Bookings.Confirm(ctx, b.ID, "credits")
	if err != nil {
		// Slot claimed and credits burned but the promote failed; refund the
		// credits and release so the student is made whole.
		logger.Error("confirm after credit deduction failed, refunding",
			zap.String("bookingId", b.ID), zap.Error(err))
		if rerr := s.Credits.Refund(ctx, b.StudentID, b.ClassID, seats); rerr != nil {
			logger.Error("credit refund failed, manual reconciliation needed",
				zap.String("bookingId", b.ID), zap.String("studentId", b.StudentID), zap.Error(rerr))
		}
		s.releaseQuietly(ctx, b)
		return nil, ErrUpstream
	}
	s.invalidate(ctx, confirmed)
	s.notifyConfirmed(confirmed)
	s.scheduleReminder(ctx, confirmed)
	logger.Info("booking confirmed with credits",
		zap.String("bookingId", confirmed.ID), zap.String("studentId", confirmed.StudentID))
	return &ReserveResult{Booking: confirmed}, nil
}

// Confirm promotes a pending booking after its payment was captured.
// Confirming an already-confirmed booking returns it unchanged.
func (s *DefaultAdmissionService) Confirm(ctx context.Context, bookingID, paymentRef string) (*models.Booking, error) {
	b, err := s.Bookings.Confirm(ctx, bookingID, paymentRef)
	switch {
	case errors.Is(err, bookingRepo.ErrHoldExpired):
		return nil, ErrExpiredHold
	case errors.Is(err, bookingRepo.ErrNotFound):
		return nil, ErrBookingNotFound
	case err != nil:
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	s.invalidate(ctx, b)
	s.notifyConfirmed(b)
	s.scheduleReminder(ctx, b)
	return b, nil
}

// Cancel releases a pending booking. Cancelling a booking that no longer
// exists is a no-op; a confirmed booking cannot be cancelled this way.
func (s *DefaultAdmissionService) Cancel(ctx context.Context, bookingID string) error {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if b.Status != models.StatusPending {
		return NewValidationError("booking %s is %s and cannot be cancelled", bookingID, b.Status)
	}
	if err := s.Bookings.Release(ctx, bookingID); err != nil {
		return fmt.Errorf("release booking: %w", err)
	}
	s.invalidate(ctx, b)
	utils.GetLogger().Info("booking hold released",
		zap.String("bookingId", b.ID), zap.String("instructorId", b.InstructorID))
	return nil
}

// HandlePaymentSucceeded is the webhook intake for a captured payment. A
// capture landing after the hold lapsed is logged loudly and surfaced so the
// caller can trigger a refund; the slot may already belong to someone else.
func (s *DefaultAdmissionService) HandlePaymentSucceeded(ctx context.Context, bookingID, paymentRef string) error {
	_, err := s.Confirm(ctx, bookingID, paymentRef)
	if errors.Is(err, ErrExpiredHold) || errors.Is(err, ErrBookingNotFound) {
		utils.GetLogger().Error("payment captured for a lapsed hold, refund required",
			zap.String("bookingId", bookingID), zap.String("paymentRef", paymentRef))
	}
	return err
}

// HandlePaymentFailed releases the hold so the slot reopens immediately
// instead of waiting out the TTL.
func (s *DefaultAdmissionService) HandlePaymentFailed(ctx context.Context, bookingID string) error {
	return s.Cancel(ctx, bookingID)
}

// matchCandidate verifies that the requested slot is one the schedule
// actually offers right now: correct start time, correct mode, within lead
// time and horizon.
func (s *DefaultAdmissionService) matchCandidate(tpl *models.ScheduleTemplate, req ReserveRequest, now time.Time) (models.CandidateSlot, error) {
	candidates, err := scheduling.GenerateDaySlots(tpl, req.Date, now)
	if err != nil {
		return models.CandidateSlot{}, NewValidationError("%v", err)
	}
	wantGroup := req.Mode == models.ModeGroup
	for _, c := range candidates {
		if c.StartTime != req.StartTime || c.IsGroup() != wantGroup {
			continue
		}
		if wantGroup && c.ClassID != req.ClassID {
			continue
		}
		return c, nil
	}
	return models.CandidateSlot{}, NewValidationError("no %s slot at %s on %s", req.Mode, req.StartTime, req.Date)
}

func (s *DefaultAdmissionService) buildBooking(tpl *models.ScheduleTemplate, req ReserveRequest, slot models.CandidateSlot, cls *models.Class, seats int, now time.Time) (*models.Booking, error) {
	loc, err := tpl.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tpl.Timezone, err)
	}
	startUTC, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+slot.StartTime, loc)
	if err != nil {
		return nil, NewValidationError("invalid slot time %s %s", req.Date, slot.StartTime)
	}
	endUTC, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+slot.EndTime, loc)
	if err != nil {
		return nil, NewValidationError("invalid slot time %s %s", req.Date, slot.EndTime)
	}

	var amount float64
	if cls != nil {
		if req.Mode == models.ModeGroup {
			amount = cls.GroupPrice * float64(seats)
		} else {
			amount = cls.Price
		}
	}

	expiry := now.Add(models.HoldTTL)
	keyClassID := ""
	if req.Mode == models.ModeGroup {
		keyClassID = req.ClassID
	}
	return &models.Booking{
		ID:           uuid.NewString(),
		StudentID:    req.StudentID,
		InstructorID: req.InstructorID,
		ClassID:      req.ClassID,
		Date:         req.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		StartUTC:     startUTC.UTC(),
		EndUTC:       endUTC.UTC(),
		Status:       models.StatusPending,
		Mode:         req.Mode,
		GroupSize:    seats,
		Expiry:       &expiry,
		OccupancyKey: models.BuildOccupancyKey(req.InstructorID, req.Date, slot.StartTime, keyClassID),
		AmountDue:    amount,
		CreatedAt:    now,
	}, nil
}

func validateRequest(req ReserveRequest) error {
	switch {
	case req.StudentID == "":
		return NewValidationError("studentId is required")
	case req.InstructorID == "":
		return NewValidationError("instructorId is required")
	case req.Date == "":
		return NewValidationError("date is required")
	case req.StartTime == "":
		return NewValidationError("startTime is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return NewValidationError("date %q is not YYYY-MM-DD", req.Date)
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return NewValidationError("startTime %q is not HH:mm", req.StartTime)
	}
	switch req.Mode {
	case models.ModeIndividual:
		if req.GroupSize > 1 {
			return NewValidationError("individual bookings take exactly one seat")
		}
	case models.ModeGroup:
		if req.ClassID == "" {
			return NewValidationError("classId is required for group bookings")
		}
	default:
		return NewValidationError("mode must be %q or %q", models.ModeIndividual, models.ModeGroup)
	}
	if req.GroupSize < 0 {
		return NewValidationError("groupSize cannot be negative")
	}
	return nil
}

// releaseQuietly best-effort releases a hold during compensation. Failures
// are logged, not returned: lazy expiry will finish the job within the TTL.
func (s *DefaultAdmissionService) releaseQuietly(ctx context.Context, b *models.Booking) {
	if err := s.Bookings.Release(ctx, b.ID); err != nil {
		utils.GetLogger().Warn("compensating release failed, hold will lapse via expiry",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
	s.invalidate(ctx, b)
}

func (s *DefaultAdmissionService) invalidate(ctx context.Context, b *models.Booking) {
	if s.Cache != nil {
		s.Cache.InvalidateDay(ctx, b.InstructorID, b.Date)
	}
}

// reminderLead is how long before the session start the reminder push fires.
const reminderLead = time.Hour

func (s *DefaultAdmissionService) scheduleReminder(ctx context.Context, b *models.Booking) {
	if s.Scheduler == nil {
		return
	}
	at := b.StartUTC.Add(-reminderLead)
	if at.Before(time.Now()) {
		return
	}
	if err := s.Scheduler.ScheduleSessionReminder(ctx, b, at); err != nil {
		utils.GetLogger().Warn("failed to schedule session reminder",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func (s *DefaultAdmissionService) notifyConfirmed(b *models.Booking) {
	if s.Notifier == nil {
		return
	}
	go func(b models.Booking) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Notifier.BookingConfirmed(ctx, &b)
	}(*b)
}
