package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"classbook/config"
	bookingRepo "classbook/database/repository/booking"
	"classbook/models"
	"classbook/services/notification"
	"classbook/services/scheduling"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const (
	TypeHoldExpire   = "hold:expire"
	TypeReminderSend = "reminder:send"
)

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// TaskClient enqueues delayed booking tasks. It satisfies the admission
// controller's scheduler dependency.
type TaskClient struct {
	client *asynq.Client
}

func NewTaskClient() *TaskClient {
	return &TaskClient{client: asynq.NewClient(redisOpts())}
}

func (c *TaskClient) Close() error {
	return c.client.Close()
}

// ScheduleHoldExpiry enqueues the backup sweep for one hold, to run at the
// hold's expiry instant.
func (c *TaskClient) ScheduleHoldExpiry(ctx context.Context, b *models.Booking, at time.Time) error {
	payload, err := json.Marshal(models.HoldExpirePayload{
		BookingID:    b.ID,
		InstructorID: b.InstructorID,
		Date:         b.Date,
	})
	if err != nil {
		return fmt.Errorf("marshal hold expire payload: %w", err)
	}
	task := asynq.NewTask(TypeHoldExpire, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.MaxRetry(3))
	return err
}

// ScheduleSessionReminder enqueues the pre-session reminder push.
func (c *TaskClient) ScheduleSessionReminder(ctx context.Context, b *models.Booking, at time.Time) error {
	payload, err := json.Marshal(models.ReminderPayload{BookingID: b.ID})
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}
	task := asynq.NewTask(TypeReminderSend, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.MaxRetry(3))
	return err
}

// InitWorker runs the async worker in background.
func InitWorker(
	bookings bookingRepo.Repository,
	availability scheduling.AvailabilityService,
	notifSvc notification.NotificationService,
) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHoldExpire, handleHoldExpireTask(bookings, availability))
	mux.HandleFunc(TypeReminderSend, handleReminderTask(bookings, notifSvc))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[TaskWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TaskWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TaskWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// handleHoldExpireTask releases a hold that is still pending past its expiry.
// Lazy expiry on reads may have beaten us to it; every terminal state here is
// success, only transient store errors are retried.
func handleHoldExpireTask(bookings bookingRepo.Repository, availability scheduling.AvailabilityService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.HoldExpirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[HoldExpire] invalid payload: %v", err)
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}

		err := bookings.ReleaseExpired(ctx, p.BookingID)
		if err != nil && !errors.Is(err, bookingRepo.ErrNotFound) {
			log.Printf("[HoldExpire] failed to release %s: %v", p.BookingID, err)
			return err
		}
		availability.InvalidateDay(ctx, p.InstructorID, p.Date)
		return nil
	}
}

// handleReminderTask pushes the pre-session reminder if the booking is still
// confirmed when the task fires.
func handleReminderTask(bookings bookingRepo.Repository, notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[Reminder] invalid payload: %v", err)
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}

		b, err := bookings.GetByID(ctx, p.BookingID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if b.Status != models.StatusConfirmed {
			return nil
		}

		if err := notifSvc.SessionReminder(ctx, b); err != nil {
			log.Printf("[Reminder] failed to send reminder for %s: %v", b.ID, err)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[TaskWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
