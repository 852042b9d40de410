package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingRepo "classbook/database/repository/booking"
	"classbook/models"
)

// memBookingStore reproduces the booking store's admission semantics in
// memory: per-key atomic conditional claims, expired-hold reclaim, and
// exactly-once seat refunds. All methods are safe for concurrent use.
type memBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	seats    map[string]int
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{
		bookings: make(map[string]*models.Booking),
		seats:    make(map[string]int),
	}
}

func (m *memBookingStore) reclaimLocked(key string) int {
	now := time.Now()
	freed := 0
	for id, b := range m.bookings {
		if b.OccupancyKey == key && b.Expired(now) {
			if b.Mode == models.ModeGroup {
				m.seats[key] -= b.GroupSize
			}
			delete(m.bookings, id)
			freed++
		}
	}
	return freed
}

func (m *memBookingStore) ReserveIndividual(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reclaimLocked(b.OccupancyKey)
	for _, existing := range m.bookings {
		if existing.OccupancyKey == b.OccupancyKey && existing.Mode == models.ModeIndividual {
			return bookingRepo.ErrSlotTaken
		}
	}
	clone := *b
	m.bookings[b.ID] = &clone
	return nil
}

func (m *memBookingStore) ReserveGroup(ctx context.Context, b *models.Booking, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reclaimLocked(b.OccupancyKey)
	if m.seats[b.OccupancyKey]+b.GroupSize > capacity {
		return bookingRepo.ErrCapacityExceeded
	}
	m.seats[b.OccupancyKey] += b.GroupSize
	clone := *b
	m.bookings[b.ID] = &clone
	return nil
}

func (m *memBookingStore) Confirm(ctx context.Context, id, paymentRef string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	switch {
	case b.Status == models.StatusConfirmed || b.Status == models.StatusCompleted:
		clone := *b
		return &clone, nil
	case b.Expired(time.Now()):
		return nil, bookingRepo.ErrHoldExpired
	case b.Status != models.StatusPending:
		return nil, bookingRepo.ErrNotFound
	}
	b.Status = models.StatusConfirmed
	b.PaymentRef = paymentRef
	b.Expiry = nil
	clone := *b
	return &clone, nil
}

func (m *memBookingStore) releaseIf(id string, cond func(*models.Booking) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || !cond(b) {
		return nil
	}
	if b.Mode == models.ModeGroup {
		m.seats[b.OccupancyKey] -= b.GroupSize
	}
	delete(m.bookings, id)
	return nil
}

func (m *memBookingStore) Release(ctx context.Context, id string) error {
	return m.releaseIf(id, func(b *models.Booking) bool { return b.Status == models.StatusPending })
}

func (m *memBookingStore) ReleaseExpired(ctx context.Context, id string) error {
	return m.releaseIf(id, func(b *models.Booking) bool { return b.Expired(time.Now()) })
}

func (m *memBookingStore) MarkCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != models.StatusConfirmed {
		return bookingRepo.ErrNotFound
	}
	b.Status = models.StatusCompleted
	return nil
}

func (m *memBookingStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *memBookingStore) ByInstructorAndDate(ctx context.Context, instructorID, date string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.InstructorID == instructorID && b.Date == date && b.Occupies(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBookingStore) ByInstructorDateRange(ctx context.Context, instructorID, fromDate, toDate string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.InstructorID == instructorID && b.Date >= fromDate && b.Date < toDate && b.Occupies(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBookingStore) ByStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.StudentID == studentID {
			out = append(out, *b)
		}
	}
	return out, nil
}

// seed plants a booking directly, bypassing admission. Used to fabricate
// stale holds.
func (m *memBookingStore) seed(b models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Mode == models.ModeGroup {
		m.seats[b.OccupancyKey] += b.GroupSize
	}
	clone := b
	m.bookings[b.ID] = &clone
}

type memScheduleStore struct{ tpl *models.ScheduleTemplate }

func (m *memScheduleStore) Upsert(ctx context.Context, tpl *models.ScheduleTemplate) error {
	m.tpl = tpl
	return nil
}
func (m *memScheduleStore) GetByInstructor(ctx context.Context, instructorID string) (*models.ScheduleTemplate, error) {
	return m.tpl, nil
}
func (m *memScheduleStore) SetOverride(ctx context.Context, instructorID string, o models.DateOverride) error {
	return nil
}
func (m *memScheduleStore) RemoveOverride(ctx context.Context, instructorID, date string) error {
	return nil
}

type memClassStore struct{ classes map[string]models.Class }

func (m *memClassStore) GetByID(ctx context.Context, id string) (*models.Class, error) {
	cls, ok := m.classes[id]
	if !ok {
		return nil, errors.New("class not found")
	}
	return &cls, nil
}
func (m *memClassStore) ByInstructor(ctx context.Context, instructorID string) (map[string]models.Class, error) {
	return m.classes, nil
}

type stubPayments struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *stubPayments) CreateIntent(ctx context.Context, b *models.Booking) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "secret_" + b.ID, nil
}

type stubCredits struct {
	mu        sync.Mutex
	balance   int
	deducted  int
	refunded  int
	deductErr error
}

func (c *stubCredits) Deduct(ctx context.Context, studentID, classID string, seats int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deductErr != nil {
		return c.deductErr
	}
	if c.balance < seats {
		return errors.New("insufficient credits")
	}
	c.balance -= seats
	c.deducted += seats
	return nil
}

func (c *stubCredits) Refund(ctx context.Context, studentID, classID string, seats int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance += seats
	c.refunded += seats
	return nil
}

type noopCache struct{}

func (noopCache) InvalidateDay(ctx context.Context, instructorID, date string) {}

// testDate returns an upcoming Monday far enough out that lead time never
// interferes, formatted as the engine's local date.
func testDate(t *testing.T) string {
	t.Helper()
	now := time.Now().UTC()
	d := now.AddDate(0, 0, 3)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func testService(store *memBookingStore, payments PaymentIntenter, credits CreditLedger) *DefaultAdmissionService {
	tpl := &models.ScheduleTemplate{
		InstructorID: "inst-1",
		GeneralAvailability: []models.DayPattern{
			{Day: "Monday", Slots: []models.SlotWindow{
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "14:00", EndTime: "15:00", GroupSlot: true, ClassID: "yoga-101"},
			}},
		},
		MinDays:             0,
		MaxDays:             14,
		AppointmentDuration: 60,
		Timezone:            "UTC",
	}
	classes := map[string]models.Class{
		"yoga-101": {ID: "yoga-101", InstructorID: "inst-1", GroupSize: 5, Price: 40, GroupPrice: 15},
	}
	return &DefaultAdmissionService{
		Bookings:  store,
		Schedules: &memScheduleStore{tpl: tpl},
		Classes:   &memClassStore{classes: classes},
		Payments:  payments,
		Credits:   credits,
		Cache:     noopCache{},
	}
}

func individualRequest(date string) ReserveRequest {
	return ReserveRequest{
		StudentID:    "stu-1",
		InstructorID: "inst-1",
		Date:         date,
		StartTime:    "09:00",
		Mode:         models.ModeIndividual,
	}
}

func groupRequest(date string, seats int) ReserveRequest {
	return ReserveRequest{
		StudentID:    "stu-1",
		InstructorID: "inst-1",
		ClassID:      "yoga-101",
		Date:         date,
		StartTime:    "14:00",
		Mode:         models.ModeGroup,
		GroupSize:    seats,
	}
}

func TestReserveIndividualConcurrentSingleWinner(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	const contenders = 16
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := individualRequest(date)
			req.StudentID = fmt.Sprintf("stu-%d", i)
			_, results[i] = svc.Reserve(ctx, req)
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winners, want exactly 1 (%d conflicts)", wins, conflicts)
	}
}

func TestReserveGroupCapacityNeverExceeded(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	const contenders = 12 // capacity is 5
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := groupRequest(date, 1)
			req.StudentID = fmt.Sprintf("stu-%d", i)
			_, results[i] = svc.Reserve(ctx, req)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotFull):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 5 {
		t.Fatalf("got %d admitted seats, want exactly 5", wins)
	}

	key := models.BuildOccupancyKey("inst-1", date, "14:00", "yoga-101")
	if store.seats[key] != 5 {
		t.Fatalf("seat counter = %d, want 5", store.seats[key])
	}
}

func TestReserveMultiSeatGroupBooking(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, groupRequest(date, 3))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Booking.AmountDue != 45 {
		t.Errorf("amount due = %v, want 3 seats * 15", res.Booking.AmountDue)
	}

	// 3 of 5 seats held; 3 more must not fit, 2 must.
	if _, err := svc.Reserve(ctx, groupRequest(date, 3)); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("overflow err = %v, want ErrSlotFull", err)
	}
	if _, err := svc.Reserve(ctx, groupRequest(date, 2)); err != nil {
		t.Fatalf("fitting reservation failed: %v", err)
	}
}

func TestReserveReclaimsExpiredHold(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	stale := time.Now().Add(-time.Minute)
	store.seed(models.Booking{
		ID:           "stale-hold",
		StudentID:    "stu-old",
		InstructorID: "inst-1",
		Date:         date,
		StartTime:    "09:00",
		Status:       models.StatusPending,
		Mode:         models.ModeIndividual,
		GroupSize:    1,
		Expiry:       &stale,
		OccupancyKey: models.BuildOccupancyKey("inst-1", date, "09:00", ""),
	})

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve over expired hold: %v", err)
	}
	if res.Booking.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", res.Booking.Status)
	}
	if _, err := store.GetByID(ctx, "stale-hold"); !errors.Is(err, bookingRepo.ErrNotFound) {
		t.Error("stale hold still present after reclaim")
	}
}

func TestReserveLiveHoldBlocks(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, individualRequest(date)); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	req := individualRequest(date)
	req.StudentID = "stu-2"
	if _, err := svc.Reserve(ctx, req); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable while hold is live", err)
	}
}

func TestReservePaymentFailureReleasesHold(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{err: errors.New("stripe down")}, nil)
	date := testDate(t)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, individualRequest(date)); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}

	// The hold must be gone: a retry with working payments succeeds.
	svc.Payments = &stubPayments{}
	if _, err := svc.Reserve(ctx, individualRequest(date)); err != nil {
		t.Fatalf("slot still blocked after failed payment: %v", err)
	}
}

func TestReserveCreditsInstantConfirm(t *testing.T) {
	store := newMemBookingStore()
	credits := &stubCredits{balance: 10}
	svc := testService(store, &stubPayments{}, credits)
	date := testDate(t)
	ctx := context.Background()

	req := groupRequest(date, 2)
	req.UseCredits = true
	res, err := svc.Reserve(ctx, req)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Booking.Status != models.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", res.Booking.Status)
	}
	if res.ClientSecret != "" {
		t.Errorf("client secret = %q, want empty for credit bookings", res.ClientSecret)
	}
	if credits.deducted != 2 {
		t.Errorf("deducted = %d, want 2", credits.deducted)
	}
}

func TestReserveCreditsFailureReleasesHold(t *testing.T) {
	store := newMemBookingStore()
	credits := &stubCredits{deductErr: errors.New("ledger unavailable")}
	svc := testService(store, &stubPayments{}, credits)
	date := testDate(t)
	ctx := context.Background()

	req := individualRequest(date)
	req.UseCredits = true
	if _, err := svc.Reserve(ctx, req); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}

	// No credits consumed, slot free again.
	if credits.deducted != 0 {
		t.Errorf("deducted = %d, want 0", credits.deducted)
	}
	if _, err := svc.Reserve(ctx, individualRequest(date)); err != nil {
		t.Fatalf("slot still blocked after failed deduction: %v", err)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	first, err := svc.Confirm(ctx, res.Booking.ID, "pi_123")
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := svc.Confirm(ctx, res.Booking.ID, "pi_456")
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if second.Status != models.StatusConfirmed || second.PaymentRef != first.PaymentRef {
		t.Errorf("repeat confirm changed the booking: %+v vs %+v", first, second)
	}
}

func TestConfirmExpiredHold(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Force the hold into the past.
	store.mu.Lock()
	past := time.Now().Add(-time.Second)
	store.bookings[res.Booking.ID].Expiry = &past
	store.mu.Unlock()

	if _, err := svc.Confirm(ctx, res.Booking.ID, "pi_late"); !errors.Is(err, ErrExpiredHold) {
		t.Fatalf("err = %v, want ErrExpiredHold", err)
	}
}

func TestCancelReleasesAndIsIdempotent(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := svc.Cancel(ctx, res.Booking.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.Cancel(ctx, res.Booking.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}

	// Slot is free for the next student.
	req := individualRequest(date)
	req.StudentID = "stu-2"
	if _, err := svc.Reserve(ctx, req); err != nil {
		t.Fatalf("slot still blocked after cancel: %v", err)
	}
}

func TestCancelConfirmedBookingRejected(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := svc.Confirm(ctx, res.Booking.ID, "pi_123"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.Cancel(ctx, res.Booking.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation error for confirmed booking", err)
	}
}

func TestHandlePaymentFailedReleasesHold(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := svc.HandlePaymentFailed(ctx, res.Booking.ID); err != nil {
		t.Fatalf("HandlePaymentFailed: %v", err)
	}
	if _, err := store.GetByID(ctx, res.Booking.ID); !errors.Is(err, bookingRepo.ErrNotFound) {
		t.Error("hold survived a failed payment")
	}
}

func TestReserveValidation(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ReserveRequest)
	}{
		{"missing student", func(r *ReserveRequest) { r.StudentID = "" }},
		{"missing instructor", func(r *ReserveRequest) { r.InstructorID = "" }},
		{"bad date", func(r *ReserveRequest) { r.Date = "tomorrow" }},
		{"bad time", func(r *ReserveRequest) { r.StartTime = "9am" }},
		{"bad mode", func(r *ReserveRequest) { r.Mode = "duo" }},
		{"multi-seat individual", func(r *ReserveRequest) { r.GroupSize = 2 }},
		{"slot not offered", func(r *ReserveRequest) { r.StartTime = "13:00" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := individualRequest(date)
			tc.mutate(&req)
			if _, err := svc.Reserve(ctx, req); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	t.Run("group without class", func(t *testing.T) {
		req := groupRequest(date, 1)
		req.ClassID = ""
		if _, err := svc.Reserve(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})
	t.Run("seats above capacity", func(t *testing.T) {
		req := groupRequest(date, 6)
		if _, err := svc.Reserve(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want validation error", err)
		}
	})
}

func TestReserveBookingFields(t *testing.T) {
	store := newMemBookingStore()
	svc := testService(store, &stubPayments{}, nil)
	date := testDate(t)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, individualRequest(date))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	b := res.Booking
	if b.EndTime != "10:00" {
		t.Errorf("end time = %s, want 10:00", b.EndTime)
	}
	if b.AmountDue != 0 {
		t.Errorf("amount due = %v, want 0 for individual booking without a class", b.AmountDue)
	}
	if b.Expiry == nil {
		t.Fatal("pending booking has no expiry")
	}
	ttl := time.Until(*b.Expiry)
	if ttl <= 4*time.Minute || ttl > models.HoldTTL {
		t.Errorf("hold TTL = %v, want about %v", ttl, models.HoldTTL)
	}
	wantKey := models.BuildOccupancyKey("inst-1", date, "09:00", "")
	if b.OccupancyKey != wantKey {
		t.Errorf("occupancy key = %s, want %s", b.OccupancyKey, wantKey)
	}
	if res.ClientSecret == "" {
		t.Error("missing client secret for card-paid booking")
	}
}
