package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/identity"
	notificationDomain "github.com/mindsettler/service-booking/internal/domain/notification"
	"github.com/mindsettler/service-booking/internal/notification"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
)

// memoryBookingRepo is an in-memory booking store with the same version check as the
// GORM repository.
type memoryBookingRepo struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]bookingDomain.Snapshot
	updates  int
	failNext error
	// beforeUpdate runs under the lock with the stored row before the version check,
	// so a test can land a concurrent write.
	beforeUpdate func(stored *bookingDomain.Snapshot, next bookingDomain.Snapshot)
}

func newMemoryBookingRepo() *memoryBookingRepo {
	return &memoryBookingRepo{rows: make(map[uuid.UUID]bookingDomain.Snapshot)}
}

func (r *memoryBookingRepo) put(bk *bookingDomain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[bk.ID()] = bk.Snapshot()
}

func (r *memoryBookingRepo) stored(t *testing.T, id uuid.UUID) *bookingDomain.Booking {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	require.True(t, ok, "booking %s not stored", id)
	return bookingDomain.Reconstruct(s)
}

func (r *memoryBookingRepo) findFirst(match func(bookingDomain.Snapshot) bool) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if match(s) {
			return bookingDomain.Reconstruct(s), nil
		}
	}
	return nil, bookingDomain.ErrNotFound
}

func (r *memoryBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findFirst(func(s bookingDomain.Snapshot) bool { return s.ID == id })
}

func (r *memoryBookingRepo) FindByAcknowledgementID(_ context.Context, ackID string) (*bookingDomain.Booking, error) {
	return r.findFirst(func(s bookingDomain.Snapshot) bool { return s.AcknowledgementID == ackID })
}

func (r *memoryBookingRepo) FindByVerificationToken(_ context.Context, token uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findFirst(func(s bookingDomain.Snapshot) bool {
		return s.EmailVerificationToken != nil && *s.EmailVerificationToken == token
	})
}

func (r *memoryBookingRepo) FindByCancellationToken(_ context.Context, token uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findFirst(func(s bookingDomain.Snapshot) bool {
		return s.CancellationToken != nil && *s.CancellationToken == token
	})
}

func (r *memoryBookingRepo) FindByPaymentReference(_ context.Context, reference string) (*bookingDomain.Booking, error) {
	return r.findFirst(func(s bookingDomain.Snapshot) bool {
		return s.PaymentReference != nil && *s.PaymentReference == reference
	})
}

func (r *memoryBookingRepo) ownedIn(ownerID uuid.UUID, statuses []bookingDomain.Status) []bookingDomain.Snapshot {
	var out []bookingDomain.Snapshot
	for _, s := range r.rows {
		if s.OwnerID != ownerID {
			continue
		}
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryBookingRepo) FindLatestByOwner(_ context.Context, ownerID uuid.UUID, statuses []bookingDomain.Status, ackID *string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.ownedIn(ownerID, statuses) {
		if ackID == nil || s.AcknowledgementID == *ackID {
			return bookingDomain.Reconstruct(s), nil
		}
	}
	return nil, nil
}

func (r *memoryBookingRepo) ExistsByOwner(_ context.Context, ownerID uuid.UUID, statuses []bookingDomain.Status, exclude ...uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
outer:
	for _, s := range r.ownedIn(ownerID, statuses) {
		for _, id := range exclude {
			if s.ID == id {
				continue outer
			}
		}
		return true, nil
	}
	return false, nil
}

func (r *memoryBookingRepo) FindOverlapping(_ context.Context, providerID uuid.UUID, start, end time.Time, exclude uuid.UUID) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, s := range r.rows {
		if s.ID == exclude || s.ProviderID == nil || *s.ProviderID != providerID {
			continue
		}
		if s.Status != bookingDomain.StatusApproved && s.Status != bookingDomain.StatusConfirmed {
			continue
		}
		if s.ApprovedSlotStart.Before(end) && s.ApprovedSlotEnd.After(start) {
			out = append(out, bookingDomain.Reconstruct(s))
		}
	}
	return out, nil
}

func (r *memoryBookingRepo) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]bookingDomain.Snapshot, 0, len(r.rows))
	for _, s := range r.rows {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	var out []*bookingDomain.Booking
	for i := (page - 1) * limit; i < len(all) && len(out) < limit; i++ {
		out = append(out, bookingDomain.Reconstruct(all[i]))
	}
	return out, int64(len(all)), nil
}

func (r *memoryBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, s := range r.rows {
		counts[string(s.Status)]++
	}
	return counts, nil
}

func (r *memoryBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.put(bk)
	return nil
}

func (r *memoryBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	current, ok := r.rows[bk.ID()]
	if ok && r.beforeUpdate != nil {
		r.beforeUpdate(&current, bk.Snapshot())
		r.rows[bk.ID()] = current
	}
	if !ok || current.Version != bk.Version()-1 {
		return bookingDomain.ErrConflict
	}
	r.rows[bk.ID()] = bk.Snapshot()
	r.updates++
	return nil
}

// memoryUsers resolves emails to identities in memory.
type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]*identity.User
	byID    map[uuid.UUID]*identity.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byEmail: make(map[string]*identity.User),
		byID:    make(map[uuid.UUID]*identity.User),
	}
}

func (u *memoryUsers) GetOrCreate(_ context.Context, email string) (*identity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	email = strings.ToLower(email)
	if user, ok := u.byEmail[email]; ok {
		return user, nil
	}
	user, err := identity.NewUser(email)
	if err != nil {
		return nil, err
	}
	u.byEmail[email] = user
	u.byID[user.ID()] = user
	return user, nil
}

func (u *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byID[id]; ok {
		return user, nil
	}
	return nil, identity.ErrNotFound
}

func (u *memoryUsers) UpdateProfile(context.Context, *identity.User) error { return nil }

// mockNotifier records every email handed to it.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notification.Message) notification.Result {
	args := m.Called(ctx, msg)
	return args.Get(0).(notification.Result)
}

func (m *mockNotifier) sent(tmpl notificationDomain.Template) []notification.Message {
	var out []notification.Message
	for _, call := range m.Calls {
		if msg := call.Arguments.Get(1).(notification.Message); msg.Template == tmpl {
			out = append(out, msg)
		}
	}
	return out
}

// recordingProducer captures published CloudEvents.
type recordingProducer struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *recordingProducer) PublishEvent(_ context.Context, _ string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ce)
	return nil
}

func (p *recordingProducer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// claimLimiter allows each key once.
type claimLimiter struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (l *claimLimiter) Allow(_ context.Context, key string, _ time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed == nil {
		l.claimed = make(map[string]bool)
	}
	if l.claimed[key] {
		return false
	}
	l.claimed[key] = true
	return true
}

func (l *claimLimiter) Release(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, key)
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStoreDown = errors.New("store unavailable")

type serviceFixture struct {
	svc      *BookingService
	repo     *memoryBookingRepo
	users    *memoryUsers
	notifier *mockNotifier
	producer *recordingProducer
	limiter  *claimLimiter
	clock    *testClock

	providers  *memoryProviders
	corporates *memoryCorporates
	directory  *DirectoryService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     newMemoryBookingRepo(),
		users:    newMemoryUsers(),
		notifier: &mockNotifier{},
		producer: &recordingProducer{},
		limiter:  &claimLimiter{},
		clock:    &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},

		providers:  newMemoryProviders(),
		corporates: newMemoryCorporates(),
	}
	f.directory = NewDirectoryService(f.providers, f.corporates, f.clock.Now, zap.NewNop())
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(notification.Result{Delivered: true})

	f.svc = NewBookingService(ServiceDependencies{
		Bookings:          f.repo,
		Users:             f.users,
		Directory:         f.directory,
		Notifier:          f.notifier,
		Producer:          f.producer,
		Limiter:           f.limiter,
		FrontendURL:       "https://mindsettler.test/",
		ResendWindow:      time.Minute,
		StatusEmailWindow: 5 * time.Minute,
		Now:               f.clock.Now,
		Logger:            zap.NewNop(),
	})
	return f
}

func validDraftRequest(email string) CreateDraftRequest {
	return CreateDraftRequest{
		Email:        email,
		ConsentGiven: true,
		FullName:     "Asha Rao",
		PhoneNumber:  "9876543210",
		Mode:         "online",
	}
}

// draftFor creates a draft through the service and returns it as stored.
func (f *serviceFixture) draftFor(t *testing.T, req CreateDraftRequest) *bookingDomain.Booking {
	t.Helper()
	result, err := f.svc.CreateDraft(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Existing)

	msgs := f.notifier.sent(notificationDomain.TemplateVerification)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	return f.repo.stored(t, last.BookingID)
}

// pendingFor creates a draft and follows its verification link.
func (f *serviceFixture) pendingFor(t *testing.T, req CreateDraftRequest) *bookingDomain.Booking {
	t.Helper()
	bk := f.draftFor(t, req)
	_, err := f.svc.VerifyEmail(context.Background(), bk.EmailVerificationToken().String())
	require.NoError(t, err)
	return f.repo.stored(t, bk.ID())
}

// seed stores a booking for email in status. Bookings past approval get a slot three
// days ahead and an amount of 500.
func (f *serviceFixture) seed(t *testing.T, email string, status bookingDomain.Status, mutate func(*bookingDomain.Snapshot)) *bookingDomain.Booking {
	t.Helper()
	user, err := f.users.GetOrCreate(context.Background(), email)
	require.NoError(t, err)

	now := f.clock.Now()
	s := bookingDomain.Snapshot{
		ID:                uuid.New(),
		AcknowledgementID: "MS-" + strings.ToUpper(uuid.NewString()[:6]),
		OwnerID:           user.ID(),
		Status:            status,
		Details:           bookingDomain.Details{FullName: "Asha Rao", PhoneNumber: "9876543210"},
		Mode:              bookingDomain.ModeOnline,
		EmailVerified:     status != bookingDomain.StatusDraft,
		ConsentGiven:      true,
		Version:           1,
		CreatedAt:         now.Add(-time.Hour),
		UpdatedAt:         now.Add(-time.Hour),
	}
	switch status {
	case bookingDomain.StatusApproved, bookingDomain.StatusPaymentPending, bookingDomain.StatusConfirmed:
		start := now.Add(72 * time.Hour)
		end := start.Add(time.Hour)
		amount := decimal.NewFromInt(500)
		s.ApprovedSlotStart = &start
		s.ApprovedSlotEnd = &end
		s.Amount = &amount
		s.ApprovedAt = &now
	}
	if status == bookingDomain.StatusPaymentPending {
		ref := "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
		s.PaymentReference = &ref
		s.PaymentRequestedAt = &now
	}
	if mutate != nil {
		mutate(&s)
	}

	bk := bookingDomain.Reconstruct(s)
	f.repo.put(bk)
	return bk
}
