package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bookingRepo "classbook/database/repository/booking"
	classRepo "classbook/database/repository/class"
	scheduleRepo "classbook/database/repository/schedule"
	"classbook/models"
	"classbook/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AvailabilityService is the read side of the booking engine: what is
// bookable on a day, which days are dead, and where the next open day is.
type AvailabilityService interface {
	DayAvailability(ctx context.Context, instructorID, date string) (models.DayAvailability, error)
	BlackoutDays(ctx context.Context, instructorID string) ([]string, error)
	NextAvailableDay(ctx context.Context, instructorID, from string) (string, error)
	// InvalidateDay drops the cached availability for one instructor/date.
	// Called by the admission controller after every reservation or release.
	InvalidateDay(ctx context.Context, instructorID, date string)
}

// DefaultAvailabilityService is the production implementation.
type DefaultAvailabilityService struct {
	Schedules scheduleRepo.Repository
	Bookings  bookingRepo.Repository
	Classes   classRepo.Repository
	Cache     *redis.Client
	CacheTTL  time.Duration
}

func availabilityCacheKey(instructorID, date string) string {
	return fmt.Sprintf("%s%s:%s", utils.AvailabilityCachePrefix, instructorID, date)
}

// DayAvailability computes the bookable slots for one instructor/date,
// serving from the short-TTL cache when possible. Cache staleness is safe:
// admission re-validates against the store.
func (s *DefaultAvailabilityService) DayAvailability(ctx context.Context, instructorID, date string) (models.DayAvailability, error) {
	logger := utils.GetLogger()
	key := availabilityCacheKey(instructorID, date)

	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx, key).Result(); err == nil {
			var day models.DayAvailability
			if err := json.Unmarshal([]byte(cached), &day); err == nil {
				return day, nil
			}
			logger.Warn("discarding unreadable availability cache entry", zap.String("key", key))
		}
	}

	day, err := s.computeDay(ctx, instructorID, date, time.Now())
	if err != nil {
		return models.DayAvailability{}, err
	}

	if s.Cache != nil {
		ttl := s.CacheTTL
		if ttl <= 0 {
			ttl = utils.AvailabilityCacheTTL
		}
		if data, err := json.Marshal(day); err == nil {
			if err := s.Cache.Set(ctx, key, data, ttl).Err(); err != nil {
				logger.Warn("failed to cache availability", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return day, nil
}

func (s *DefaultAvailabilityService) computeDay(ctx context.Context, instructorID, date string, now time.Time) (models.DayAvailability, error) {
	tpl, err := s.Schedules.GetByInstructor(ctx, instructorID)
	if err != nil {
		return models.DayAvailability{}, err
	}
	candidates, err := GenerateDaySlots(tpl, date, now)
	if err != nil {
		return models.DayAvailability{}, err
	}
	if len(candidates) == 0 {
		return models.DayAvailability{Date: date}, nil
	}
	// This read also reclaims any expired holds it encounters.
	bookings, err := s.Bookings.ByInstructorAndDate(ctx, instructorID, date)
	if err != nil {
		return models.DayAvailability{}, err
	}
	classes, err := s.Classes.ByInstructor(ctx, instructorID)
	if err != nil {
		return models.DayAvailability{}, err
	}
	day := FilterBookable(instructorID, candidates, bookings, classes, now)
	day.Date = date
	return day, nil
}

// BlackoutDays returns the dates in the booking horizon with nothing
// bookable, for calendar greying.
func (s *DefaultAvailabilityService) BlackoutDays(ctx context.Context, instructorID string) ([]string, error) {
	tpl, classes, err := s.loadTemplateAndClasses(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	bookingsByDate, err := s.gatherHorizonBookings(ctx, tpl, now)
	if err != nil {
		return nil, err
	}
	return BlackoutDays(tpl, bookingsByDate, classes, now)
}

// NextAvailableDay scans forward from the given date for the first day with
// a bookable slot; ErrNoAvailableDay signals an exhausted horizon.
func (s *DefaultAvailabilityService) NextAvailableDay(ctx context.Context, instructorID, from string) (string, error) {
	tpl, classes, err := s.loadTemplateAndClasses(ctx, instructorID)
	if err != nil {
		return "", err
	}
	now := time.Now()
	bookingsByDate, err := s.gatherHorizonBookings(ctx, tpl, now)
	if err != nil {
		return "", err
	}
	return NextAvailableDay(tpl, bookingsByDate, classes, from, now)
}

func (s *DefaultAvailabilityService) InvalidateDay(ctx context.Context, instructorID, date string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, availabilityCacheKey(instructorID, date)).Err(); err != nil {
		utils.GetLogger().Warn("failed to invalidate availability cache",
			zap.String("instructorId", instructorID), zap.String("date", date), zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) loadTemplateAndClasses(ctx context.Context, instructorID string) (*models.ScheduleTemplate, map[string]models.Class, error) {
	tpl, err := s.Schedules.GetByInstructor(ctx, instructorID)
	if err != nil {
		return nil, nil, err
	}
	classes, err := s.Classes.ByInstructor(ctx, instructorID)
	if err != nil {
		return nil, nil, err
	}
	return tpl, classes, nil
}

// gatherHorizonBookings fetches the instructor's bookings for the whole scan
// window in one range query and groups them by local date.
func (s *DefaultAvailabilityService) gatherHorizonBookings(ctx context.Context, tpl *models.ScheduleTemplate, now time.Time) (map[string][]models.Booking, error) {
	loc, err := tpl.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tpl.Timezone, err)
	}
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	horizon := today.AddDate(0, 0, tpl.MaxDays)

	bookings, err := s.Bookings.ByInstructorDateRange(ctx, tpl.InstructorID,
		today.Format(dateLayout), horizon.Format(dateLayout))
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]models.Booking)
	for _, b := range bookings {
		byDate[b.Date] = append(byDate[b.Date], b)
	}
	return byDate, nil
}
