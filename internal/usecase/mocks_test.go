package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"travel-booking/internal/credit"
	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
)

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn                func(ctx context.Context, booking *entity.Booking) error
	findByIDFn              func(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	findByReferenceFn       func(ctx context.Context, reference string) (*entity.Booking, error)
	findByOwnerIDFn         func(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	countByOwnerIDFn        func(ctx context.Context, ownerID uuid.UUID) (int64, error)
	updateStatusFromFn      func(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus) error
	findExpiredUnattendedFn func(ctx context.Context, asOf time.Time, limit int) ([]*entity.Booking, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	return m.createFn(ctx, booking)
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockBookingRepo) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return m.findByReferenceFn(ctx, reference)
}
func (m *mockBookingRepo) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	return m.findByOwnerIDFn(ctx, ownerID, limit, offset)
}
func (m *mockBookingRepo) CountByOwnerID(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return m.countByOwnerIDFn(ctx, ownerID)
}
func (m *mockBookingRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus) error {
	return m.updateStatusFromFn(ctx, id, from, to)
}
func (m *mockBookingRepo) FindExpiredUnattended(ctx context.Context, asOf time.Time, limit int) ([]*entity.Booking, error) {
	return m.findExpiredUnattendedFn(ctx, asOf, limit)
}

// --- Mock PaymentRepository ---

type mockPaymentRepo struct {
	createFn                    func(ctx context.Context, payment *entity.Payment) error
	findByIDFn                  func(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	findUnresolvedByBookingIDFn func(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	findByGatewayRefFn          func(ctx context.Context, gatewayRef string) (*entity.Payment, error)
	attachGatewaySessionFn      func(ctx context.Context, id uuid.UUID, gatewayRef, checkoutURL string) (bool, error)
	updateStatusFromFn          func(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) error
	createSettledFn             func(ctx context.Context, payment *entity.Payment) error
	resolveWithBookingFn        func(ctx context.Context, paymentID uuid.UUID, paymentStatus entity.PaymentStatus, bookingID uuid.UUID, bookingStatus entity.BookingStatus) error
	findAwaitingResolutionFn    func(ctx context.Context, bookingCreatedBefore time.Time, limit int) ([]*repository.ResolutionCandidate, error)
	countAwaitingWithinWindowFn func(ctx context.Context, bookingCreatedAfter time.Time) (int64, error)
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	return m.createFn(ctx, payment)
}
func (m *mockPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockPaymentRepo) FindUnresolvedByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return m.findUnresolvedByBookingIDFn(ctx, bookingID)
}
func (m *mockPaymentRepo) FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.Payment, error) {
	return m.findByGatewayRefFn(ctx, gatewayRef)
}
func (m *mockPaymentRepo) AttachGatewaySession(ctx context.Context, id uuid.UUID, gatewayRef, checkoutURL string) (bool, error) {
	return m.attachGatewaySessionFn(ctx, id, gatewayRef, checkoutURL)
}
func (m *mockPaymentRepo) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) error {
	return m.updateStatusFromFn(ctx, id, from, to)
}
func (m *mockPaymentRepo) CreateSettled(ctx context.Context, payment *entity.Payment) error {
	return m.createSettledFn(ctx, payment)
}
func (m *mockPaymentRepo) ResolveWithBooking(ctx context.Context, paymentID uuid.UUID, paymentStatus entity.PaymentStatus, bookingID uuid.UUID, bookingStatus entity.BookingStatus) error {
	return m.resolveWithBookingFn(ctx, paymentID, paymentStatus, bookingID, bookingStatus)
}
func (m *mockPaymentRepo) FindAwaitingResolution(ctx context.Context, bookingCreatedBefore time.Time, limit int) ([]*repository.ResolutionCandidate, error) {
	return m.findAwaitingResolutionFn(ctx, bookingCreatedBefore, limit)
}
func (m *mockPaymentRepo) CountAwaitingWithinWindow(ctx context.Context, bookingCreatedAfter time.Time) (int64, error) {
	return m.countAwaitingWithinWindowFn(ctx, bookingCreatedAfter)
}

// --- Mock ReconciliationRunRepository ---

type mockRunRepo struct {
	mu   sync.Mutex
	runs []*entity.ReconciliationRun

	createFn func(ctx context.Context, run *entity.ReconciliationRun) error
}

func (m *mockRunRepo) Create(ctx context.Context, run *entity.ReconciliationRun) error {
	if m.createFn != nil {
		return m.createFn(ctx, run)
	}
	m.mu.Lock()
	m.runs = append(m.runs, run)
	m.mu.Unlock()
	return nil
}

func (m *mockRunRepo) recorded() []*entity.ReconciliationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.ReconciliationRun{}, m.runs...)
}

// --- Mock gateway.Client ---

// mockGateway counts calls atomically because reconciliation workers
// hit it concurrently.
type mockGateway struct {
	createSessionFn func(ctx context.Context, input gateway.CreateSessionInput) (*gateway.Session, error)
	getStatusFn     func(ctx context.Context, sessionID string) (*gateway.Session, error)
	cancelFn        func(ctx context.Context, sessionID string) error

	createCalls atomic.Int32
	statusCalls atomic.Int32
	cancelCalls atomic.Int32
}

func (m *mockGateway) CreateSession(ctx context.Context, input gateway.CreateSessionInput) (*gateway.Session, error) {
	m.createCalls.Add(1)
	return m.createSessionFn(ctx, input)
}
func (m *mockGateway) GetStatus(ctx context.Context, sessionID string) (*gateway.Session, error) {
	m.statusCalls.Add(1)
	return m.getStatusFn(ctx, sessionID)
}
func (m *mockGateway) Cancel(ctx context.Context, sessionID string) error {
	m.cancelCalls.Add(1)
	if m.cancelFn != nil {
		return m.cancelFn(ctx, sessionID)
	}
	return nil
}

// --- Mock credit.Ledger ---

type mockLedger struct {
	debitFn  func(ctx context.Context, input credit.Transaction) error
	refundFn func(ctx context.Context, input credit.Transaction) error

	debitCalls  atomic.Int32
	refundCalls atomic.Int32
}

func (m *mockLedger) Debit(ctx context.Context, input credit.Transaction) error {
	m.debitCalls.Add(1)
	if m.debitFn != nil {
		return m.debitFn(ctx, input)
	}
	return nil
}
func (m *mockLedger) Refund(ctx context.Context, input credit.Transaction) error {
	m.refundCalls.Add(1)
	if m.refundFn != nil {
		return m.refundFn(ctx, input)
	}
	return nil
}

// --- Mock EventPublisher ---

type publishedEvent struct {
	Key     string
	Payload any
}

type mockEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockEvents) PublishJSON(ctx context.Context, key string, payload any) error {
	m.mu.Lock()
	m.events = append(m.events, publishedEvent{Key: key, Payload: payload})
	m.mu.Unlock()
	return nil
}

func (m *mockEvents) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.events))
	for i, e := range m.events {
		keys[i] = e.Key
	}
	return keys
}
