package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"
)

type ReconcileService interface {
	Run(ctx context.Context, trigger entity.TriggerSource) (*response.ReconciliationRunResponse, error)
	ProcessGatewayCallback(ctx context.Context, sessionID string) error
	RunScheduled(ctx context.Context)
}

type reconcileService struct {
	repo    *repository.Repository
	gateway gateway.Client
	events  EventPublisher
	config  utils.ReconcilerConfig
	log     *zap.Logger
	now     func() time.Time

	// running serialises sweeps: an overlapping trigger is rejected,
	// never queued behind the one in flight.
	running atomic.Bool
}

func NewReconcileService(repo *repository.Repository, gw gateway.Client, events EventPublisher, config *utils.Config, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo:    repo,
		gateway: gw,
		events:  events,
		config:  config.Reconciler,
		log:     log.With(zap.String("service", "reconcile")),
		now:     time.Now,
	}
}

// Run performs one full reconciliation sweep. At most one sweep is in
// flight at a time; concurrent triggers get ErrRunInProgress.
func (s *reconcileService) Run(ctx context.Context, trigger entity.TriggerSource) (*response.ReconciliationRunResponse, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	started := s.now()
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	counts := &runCounters{}
	detail := newRunDetail()

	s.log.Info("Reconciliation run started", zap.String("trigger", string(trigger)))

	// Bookings whose deadline passed with no settlement attempt are
	// expired outright. No gateway traffic happens for these.
	unattended, err := s.repo.Booking.FindExpiredUnattended(runCtx, started, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find expired unattended bookings: %w", err)
	}
	counts.checked.Add(int64(len(unattended)))
	runPool(s.config.Workers, unattended, func(b *entity.Booking) {
		s.expireUnattended(runCtx, b, counts, detail)
	})

	// Unresolved payments on bookings older than the safety window are
	// settled against what the gateway says, not the local copy.
	cutoff := started.Add(-s.config.SafetyWindow)
	candidates, err := s.repo.Payment.FindAwaitingResolution(runCtx, cutoff, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find payments awaiting resolution: %w", err)
	}
	counts.checked.Add(int64(len(candidates)))
	runPool(s.config.Workers, candidates, func(c *repository.ResolutionCandidate) {
		s.resolveCandidate(runCtx, c, counts, detail)
	})

	// Younger attempts are left alone so a member mid-checkout is
	// never raced by the sweep.
	within, err := s.repo.Payment.CountAwaitingWithinWindow(runCtx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count payments within safety window: %w", err)
	}
	counts.checked.Add(within)
	counts.skipped.Add(within)

	run := &entity.ReconciliationRun{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: started,
		},
		TriggerSource: trigger,
		Counts:        counts.snapshot(),
		DurationMs:    s.now().Sub(started).Milliseconds(),
		Detail:        detail.marshal(),
	}
	if err := s.repo.ReconciliationRun.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record reconciliation run: %w", err)
	}

	s.log.Info("Reconciliation run finished",
		zap.String("trigger", string(trigger)),
		zap.Int("checked", run.Counts.Checked),
		zap.Int("confirmed", run.Counts.Confirmed),
		zap.Int("expired", run.Counts.Expired),
		zap.Int("cancelled", run.Counts.Cancelled),
		zap.Int("deferred", run.Counts.Deferred),
		zap.Int("skipped", run.Counts.Skipped),
		zap.Int("errors", run.Counts.Errors),
		zap.Int64("duration_ms", run.DurationMs),
	)

	resp := response.RunToResponse(run)
	return &resp, nil
}

// ProcessGatewayCallback resolves the payment a gateway webhook points
// at. The callback body is never trusted: state is re-fetched from the
// gateway before anything changes. A session the member is still
// paying is left alone, unlike the sweep this path never cancels.
func (s *reconcileService) ProcessGatewayCallback(ctx context.Context, sessionID string) error {
	payment, err := s.repo.Payment.FindByGatewayRef(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get payment by gateway ref: %w", err)
	}
	if payment == nil {
		return fmt.Errorf("session %s: %w", sessionID, ErrPaymentNotFound)
	}
	if payment.Status != entity.PaymentStatusPending {
		s.log.Debug("Callback for already resolved payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	booking, err := s.repo.Booking.FindByID(ctx, payment.BookingID)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", payment.BookingID, ErrBookingNotFound)
	}

	session, err := s.gateway.GetStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			// The gateway no longer knows the session it told us
			// about. Close the attempt locally.
			session = &gateway.Session{ID: sessionID, Status: gateway.SessionStatusCancelled}
		} else if gateway.IsTransient(err) {
			return fmt.Errorf("get session status: %w", err)
		} else {
			session = &gateway.Session{ID: sessionID, Status: gateway.SessionStatusFailed}
		}
	}

	if session.Status == gateway.SessionStatusPending {
		s.log.Debug("Callback for still pending session",
			zap.String("payment_id", payment.ID.String()),
			zap.String("gateway_ref", sessionID),
		)
		return nil
	}

	counts := &runCounters{}
	detail := newRunDetail()
	counts.checked.Add(1)

	if booking.Status != entity.BookingStatusPending {
		// The pair fell out of sync, e.g. the booking expired while the
		// member paid. Record gateway truth on the payment and shout.
		s.resolvePaymentOnly(ctx, payment, booking, session.Status, counts, detail)
	} else {
		s.resolveOutcome(ctx, payment, booking, session.Status, false, counts, detail)
	}

	run := &entity.ReconciliationRun{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		TriggerSource: entity.TriggerWebhook,
		Counts:        counts.snapshot(),
		Detail:        detail.marshal(),
	}
	if err := s.repo.ReconciliationRun.Create(ctx, run); err != nil {
		return fmt.Errorf("record reconciliation run: %w", err)
	}
	return nil
}

// RunScheduled fires a sweep every configured interval until the
// context is cancelled. A tick that lands while a sweep is still in
// flight is dropped.
func (s *reconcileService) RunScheduled(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.log.Info("Reconciliation schedule started",
		zap.Duration("interval", s.config.Interval),
	)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reconciliation schedule stopped")
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, entity.TriggerSchedule); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					s.log.Debug("Previous run still in flight, skipping tick")
					continue
				}
				s.log.Error("Scheduled reconciliation failed", zap.Error(err))
			}
		}
	}
}

// expireUnattended closes a booking that ran out its grace period with
// no live settlement attempt.
func (s *reconcileService) expireUnattended(ctx context.Context, booking *entity.Booking, counts *runCounters, detail *runDetail) {
	defer func() {
		if r := recover(); r != nil {
			counts.errors.Add(1)
			s.log.Error("Panic while expiring booking",
				zap.Any("panic", r),
				zap.String("booking_id", booking.ID.String()),
			)
		}
	}()

	err := s.repo.Booking.UpdateStatusFrom(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusExpired)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			counts.skipped.Add(1)
			detail.add(booking.ID, uuid.Nil, "skipped", "resolved concurrently")
			return
		}
		counts.errors.Add(1)
		s.log.Error("Failed to expire booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		detail.add(booking.ID, uuid.Nil, "error", err.Error())
		return
	}

	booking.Status = entity.BookingStatusExpired
	counts.expired.Add(1)
	detail.add(booking.ID, uuid.Nil, "expired", "deadline passed with no settlement attempt")
	s.log.Info("Expired unattended booking",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
	)
	publishBookingEvent(ctx, s.events, s.log, EventBookingExpired, booking, nil)
}

// resolveCandidate settles one unresolved payment against gateway truth.
func (s *reconcileService) resolveCandidate(ctx context.Context, c *repository.ResolutionCandidate, counts *runCounters, detail *runDetail) {
	defer func() {
		if r := recover(); r != nil {
			counts.errors.Add(1)
			s.log.Error("Panic while resolving payment",
				zap.Any("panic", r),
				zap.String("booking_id", c.Booking.ID.String()),
				zap.String("payment_id", c.Payment.ID.String()),
			)
		}
	}()

	payment, booking := c.Payment, c.Booking

	if payment.GatewayRef == nil {
		// The attempt died before a session existed. Nothing at the
		// gateway to consult, close the pair locally.
		s.resolvePair(ctx, payment, booking, entity.PaymentStatusCancelled, entity.BookingStatusExpired, counts, detail, "no gateway session was ever opened")
		return
	}

	session, err := s.gateway.GetStatus(ctx, *payment.GatewayRef)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrSessionNotFound):
			session = &gateway.Session{ID: *payment.GatewayRef, Status: gateway.SessionStatusCancelled}
		case gateway.IsTransient(err):
			counts.deferred.Add(1)
			detail.add(booking.ID, payment.ID, "deferred", "gateway status unavailable")
			s.log.Warn("Deferred payment resolution",
				zap.Error(err),
				zap.String("payment_id", payment.ID.String()),
				zap.String("gateway_ref", *payment.GatewayRef),
			)
			return
		default:
			// The gateway permanently refuses to report this session.
			session = &gateway.Session{ID: *payment.GatewayRef, Status: gateway.SessionStatusFailed}
		}
	}

	s.resolveOutcome(ctx, payment, booking, session.Status, true, counts, detail)
}

// resolveOutcome maps a gateway session status onto the payment and
// booking pair. sweep controls what a still-pending session means: the
// sweep only sees attempts past the safety window and cancels them,
// the webhook path leaves an in-flight checkout untouched.
func (s *reconcileService) resolveOutcome(ctx context.Context, payment *entity.Payment, booking *entity.Booking, status gateway.SessionStatus, sweep bool, counts *runCounters, detail *runDetail) {
	switch status {
	case gateway.SessionStatusSucceeded:
		s.resolvePair(ctx, payment, booking, entity.PaymentStatusSucceeded, entity.BookingStatusConfirmed, counts, detail, "gateway reported success")
	case gateway.SessionStatusFailed:
		s.resolvePair(ctx, payment, booking, entity.PaymentStatusFailed, entity.BookingStatusExpired, counts, detail, "gateway reported failure")
	case gateway.SessionStatusCancelled, gateway.SessionStatusExpired:
		s.resolvePair(ctx, payment, booking, entity.PaymentStatusCancelled, entity.BookingStatusExpired, counts, detail, "gateway session closed")
	case gateway.SessionStatusPending:
		if sweep {
			s.cancelAwaiting(ctx, payment, booking, counts, detail)
		}
	}
}

// cancelAwaiting proactively closes a session the member abandoned.
// The cancel goes to the gateway first: only after the gateway accepts
// it is the local pair closed, so a payment that races to success in
// between is picked up by the next sweep instead of being clobbered.
func (s *reconcileService) cancelAwaiting(ctx context.Context, payment *entity.Payment, booking *entity.Booking, counts *runCounters, detail *runDetail) {
	if err := s.gateway.Cancel(ctx, *payment.GatewayRef); err != nil && !errors.Is(err, gateway.ErrSessionNotFound) {
		counts.deferred.Add(1)
		detail.add(booking.ID, payment.ID, "deferred", "gateway cancel failed")
		s.log.Warn("Deferred proactive cancel",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("gateway_ref", *payment.GatewayRef),
		)
		return
	}
	s.resolvePair(ctx, payment, booking, entity.PaymentStatusCancelled, entity.BookingStatusExpired, counts, detail, "cancelled session awaiting input past safety window")
}

// resolvePair commits a terminal payment status and booking status in
// one transaction, counts the outcome and emits the matching event.
func (s *reconcileService) resolvePair(ctx context.Context, payment *entity.Payment, booking *entity.Booking, paymentStatus entity.PaymentStatus, bookingStatus entity.BookingStatus, counts *runCounters, detail *runDetail, note string) {
	err := s.repo.Payment.ResolveWithBooking(ctx, payment.ID, paymentStatus, booking.ID, bookingStatus)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			counts.skipped.Add(1)
			detail.add(booking.ID, payment.ID, "skipped", "resolved concurrently")
			return
		}
		counts.errors.Add(1)
		s.log.Error("Failed to resolve payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		detail.add(booking.ID, payment.ID, "error", err.Error())
		return
	}

	payment.Status = paymentStatus
	booking.Status = bookingStatus

	switch bookingStatus {
	case entity.BookingStatusConfirmed:
		counts.confirmed.Add(1)
		publishBookingEvent(ctx, s.events, s.log, EventBookingConfirmed, booking, payment)
	case entity.BookingStatusExpired:
		counts.expired.Add(1)
		if paymentStatus == entity.PaymentStatusCancelled {
			counts.cancelled.Add(1)
		}
		publishBookingEvent(ctx, s.events, s.log, EventBookingExpired, booking, payment)
	}

	detail.add(booking.ID, payment.ID, string(bookingStatus), note)
	s.log.Info("Reconciled booking",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_status", string(bookingStatus)),
		zap.String("payment_status", string(paymentStatus)),
		zap.String("note", note),
	)
}

// resolvePaymentOnly records gateway truth on a payment whose booking
// already reached a terminal state through another path. Money may
// have moved for a booking that will not be honoured, which is an
// operator problem, not something this service can fix.
func (s *reconcileService) resolvePaymentOnly(ctx context.Context, payment *entity.Payment, booking *entity.Booking, status gateway.SessionStatus, counts *runCounters, detail *runDetail) {
	paymentStatus := entity.PaymentStatusCancelled
	if status == gateway.SessionStatusSucceeded {
		paymentStatus = entity.PaymentStatusSucceeded
	} else if status == gateway.SessionStatusFailed {
		paymentStatus = entity.PaymentStatusFailed
	}

	err := s.repo.Payment.UpdateStatusFrom(ctx, payment.ID, entity.PaymentStatusPending, paymentStatus)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			counts.skipped.Add(1)
			detail.add(booking.ID, payment.ID, "skipped", "resolved concurrently")
			return
		}
		counts.errors.Add(1)
		detail.add(booking.ID, payment.ID, "error", err.Error())
		return
	}

	payment.Status = paymentStatus
	detail.add(booking.ID, payment.ID, string(paymentStatus), "booking already terminal")
	if paymentStatus == entity.PaymentStatusSucceeded {
		counts.confirmed.Add(1)
		s.log.Error("Payment succeeded for terminal booking, manual review required",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_status", string(booking.Status)),
		)
	} else {
		counts.cancelled.Add(1)
		s.log.Warn("Closed payment for terminal booking",
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("payment_status", string(paymentStatus)),
		)
	}
}

// runCounters aggregates outcome counts across pool workers.
type runCounters struct {
	checked   atomic.Int64
	confirmed atomic.Int64
	expired   atomic.Int64
	cancelled atomic.Int64
	deferred  atomic.Int64
	skipped   atomic.Int64
	errors    atomic.Int64
}

func (c *runCounters) snapshot() entity.RunCounts {
	return entity.RunCounts{
		Checked:   int(c.checked.Load()),
		Confirmed: int(c.confirmed.Load()),
		Expired:   int(c.expired.Load()),
		Cancelled: int(c.cancelled.Load()),
		Deferred:  int(c.deferred.Load()),
		Skipped:   int(c.skipped.Load()),
		Errors:    int(c.errors.Load()),
	}
}

type runNote struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id,omitempty"`
	Action    string `json:"action"`
	Note      string `json:"note,omitempty"`
}

// runDetail collects per-item notes for the audit record.
type runDetail struct {
	mu    sync.Mutex
	notes []runNote
}

func newRunDetail() *runDetail {
	return &runDetail{notes: []runNote{}}
}

func (d *runDetail) add(bookingID, paymentID uuid.UUID, action, note string) {
	entry := runNote{
		BookingID: bookingID.String(),
		Action:    action,
		Note:      note,
	}
	if paymentID != uuid.Nil {
		entry.PaymentID = paymentID.String()
	}
	d.mu.Lock()
	d.notes = append(d.notes, entry)
	d.mu.Unlock()
}

func (d *runDetail) marshal() json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := json.Marshal(d.notes)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return raw
}
