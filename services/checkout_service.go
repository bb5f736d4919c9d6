package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Action identifiers offered to the UI layer at each step.
const (
	ActionCashbackApply = "checkout.cashback.apply"
	ActionCashbackSkip  = "checkout.cashback.skip"
	ActionPaymentCash   = "checkout.payment.cash"
	ActionPaymentCard   = "checkout.payment.card"
	ActionCancel        = "checkout.cancel"
)

const DeliveryWarning = "Your order is placed, but staff could not be notified yet. We will keep trying."

// CheckoutService drives one checkout per user from snapshot to commit.
type CheckoutService interface {
	Start(ctx context.Context, userID int64) (*models.SessionView, error)
	ChooseCashback(ctx context.Context, userID int64, choice string) (*models.SessionView, error)
	ChoosePaymentMethod(ctx context.Context, userID int64, method string) (*models.CommitResult, error)
	Current(ctx context.Context, userID int64) (*models.SessionView, error)
	Cancel(ctx context.Context, userID int64) error
}

type CheckoutDependencies struct {
	Carts    repository.CartRepository
	Catalog  Catalog
	Ledger   repository.CashbackRepository
	Profiles ProfileService
	Sessions repository.SessionRepository
	Store    repository.CheckoutStore
	Notifier Dispatcher
	Locker   *UserLocker
	Metrics  *awspkg.MetricsClient
	Logger   *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type checkoutService struct {
	CheckoutDependencies
}

func NewCheckoutService(deps CheckoutDependencies) CheckoutService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &checkoutService{CheckoutDependencies: deps}
}

// Start discards any unfinished session and snapshots the cart at current
// prices. Nothing else is mutated before commit.
func (s *checkoutService) Start(ctx context.Context, userID int64) (*models.SessionView, error) {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.Sessions.Delete(ctx, userID); err != nil {
		return nil, err
	}

	cart, err := s.Carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, &PreconditionError{Reason: ReasonCartEmpty}
	}
	complete, err := s.Profiles.HasCompleteProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, &PreconditionError{Reason: ReasonProfileMissing}
	}

	lines, total, err := s.snapshot(ctx, userID, cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &PreconditionError{Reason: ReasonCartEmpty}
	}

	balance, err := s.Ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	session := &models.CheckoutSession{
		ID:               uuid.New(),
		TelegramID:       userID,
		Lines:            lines,
		PreDiscountTotal: total,
		BalanceAtStart:   balance,
		CashbackApplied:  decimal.Zero,
		Step:             models.StepSnapshotTaken,
		StartedAt:        now,
		UpdatedAt:        now,
	}
	if balance.IsPositive() {
		session.Step = models.StepAwaitingCashbackChoice
	} else {
		session.Step = models.StepAwaitingPaymentMethod
	}

	if err := s.Sessions.Put(ctx, session); err != nil {
		return nil, err
	}

	s.Logger.Info("checkout started",
		zap.Int64("user_id", userID),
		zap.String("checkout_id", session.ID.String()),
		zap.String("pre_discount_total", total.StringFixed(models.MoneyPlaces)),
		zap.String("step", string(session.Step)),
	)
	s.record(ctx, awspkg.MetricCheckoutsStarted, 1)
	return session.View(actionsFor(session.Step)), nil
}

func (s *checkoutService) snapshot(ctx context.Context, userID int64, cart []models.CartLine) ([]models.SnapshotLine, decimal.Decimal, error) {
	lines := make([]models.SnapshotLine, 0, len(cart))
	total := decimal.Zero
	for _, line := range cart {
		p, err := s.Catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			s.Logger.Warn("dropping cart line for missing product",
				zap.Int64("user_id", userID),
				zap.Uint("product_id", line.ProductID),
			)
			continue
		}
		if err != nil {
			return nil, decimal.Zero, err
		}
		lineTotal := models.Money(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		lines = append(lines, models.SnapshotLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return lines, total, nil
}

// ChooseCashback records the redemption decision. The ledger is not touched
// until commit.
func (s *checkoutService) ChooseCashback(ctx context.Context, userID int64, choice string) (*models.SessionView, error) {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, ok := models.ParseCashbackChoice(choice)
	if session.Step != models.StepAwaitingCashbackChoice || !ok {
		return nil, &InvalidChoiceError{Step: session.Step, Input: choice, Allowed: allowedInputs(session.Step)}
	}

	if c == models.CashbackApply {
		session.CashbackApplied = session.MaxRedeemable()
	} else {
		session.CashbackApplied = decimal.Zero
	}
	session.Step = models.StepAwaitingPaymentMethod
	session.UpdatedAt = s.Now()

	if err := s.Sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	return session.View(actionsFor(session.Step)), nil
}

// ChoosePaymentMethod records the method and commits the checkout. A failed
// commit leaves the session where it was so the same choice can be retried.
// The staff notification is dispatched after the user's lock is released.
func (s *checkoutService) ChoosePaymentMethod(ctx context.Context, userID int64, method string) (*models.CommitResult, error) {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}

	session, outcome, plan, err := s.commit(ctx, userID, method)
	unlock()
	if err != nil {
		return nil, err
	}

	result := &models.CommitResult{
		CheckoutID:       session.ID,
		Orders:           outcome.Orders,
		PreDiscountTotal: session.PreDiscountTotal,
		CashbackApplied:  session.CashbackApplied,
		FinalTotal:       session.FinalTotal(),
		CashbackEarned:   plan.Credit,
		CashbackBalance:  outcome.BalanceAfter,
		PaymentMethod:    session.PaymentMethod,
		AlreadyCommitted: outcome.AlreadyCommitted,
	}
	if outcome.AlreadyCommitted {
		return result, nil
	}

	s.record(ctx, awspkg.MetricCheckoutsCommitted, 1)
	if plan.Debit.IsPositive() {
		s.record(ctx, awspkg.MetricCashbackRedeemed, plan.Debit.InexactFloat64())
	}
	if plan.Credit.IsPositive() {
		s.record(ctx, awspkg.MetricCashbackEarned, plan.Credit.InexactFloat64())
	}

	result.Delivery = s.notify(ctx, session, plan)
	return result, nil
}

func (s *checkoutService) commit(ctx context.Context, userID int64, method string) (*models.CheckoutSession, *models.CommitOutcome, *models.CommitPlan, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	m, ok := models.ParsePaymentMethod(method)
	if session.Step != models.StepAwaitingPaymentMethod || !ok {
		return nil, nil, nil, &InvalidChoiceError{Step: session.Step, Input: method, Allowed: allowedInputs(session.Step)}
	}

	pending := *session
	pending.PaymentMethod = m
	plan, err := Materialize(&pending, s.Now())
	if err != nil {
		s.Logger.Error("checkout does not materialize",
			zap.String("checkout_id", session.ID.String()),
			zap.Error(err),
		)
		return nil, nil, nil, err
	}

	outcome, err := s.Store.Commit(ctx, plan)
	if err != nil {
		s.Logger.Error("checkout commit failed",
			zap.Int64("user_id", userID),
			zap.String("checkout_id", session.ID.String()),
			zap.Error(err),
		)
		s.record(ctx, awspkg.MetricCheckoutCommitFailed, 1)
		return nil, nil, nil, fmt.Errorf("commit checkout %s: %w", session.ID, err)
	}

	if err := s.Sessions.Delete(ctx, userID); err != nil {
		// The store rejects a second commit of this checkout id.
		s.Logger.Warn("committed session not cleared",
			zap.String("checkout_id", session.ID.String()),
			zap.Error(err),
		)
	}

	pending.Step = models.StepCommitted
	s.Logger.Info("checkout committed",
		zap.Int64("user_id", userID),
		zap.String("checkout_id", session.ID.String()),
		zap.String("final_total", pending.FinalTotal().StringFixed(models.MoneyPlaces)),
		zap.String("cashback_applied", plan.Debit.StringFixed(models.MoneyPlaces)),
		zap.String("cashback_earned", plan.Credit.StringFixed(models.MoneyPlaces)),
		zap.Bool("already_committed", outcome.AlreadyCommitted),
	)
	return &pending, outcome, plan, nil
}

func (s *checkoutService) notify(ctx context.Context, session *models.CheckoutSession, plan *models.CommitPlan) <-chan error {
	if s.Notifier == nil {
		return nil
	}

	user, err := s.Profiles.GetUser(ctx, session.TelegramID)
	if err != nil {
		s.Logger.Warn("summary without user details", zap.Error(err))
	}
	profile, err := s.Profiles.GetProfile(ctx, session.TelegramID)
	if err != nil {
		s.Logger.Warn("summary without delivery profile", zap.Error(err))
	}

	text, err := NewOrderSummary(session, user, profile, plan.Credit, plan.CommittedAt).Render()
	if err != nil {
		s.Logger.Error("order summary not rendered", zap.Error(err))
		failed := make(chan error, 1)
		failed <- &NotificationDeliveryError{CheckoutID: session.ID, Err: err}
		close(failed)
		return failed
	}

	event := &models.OrderCommittedEvent{
		CheckoutID:      session.ID.String(),
		TelegramID:      session.TelegramID,
		PreDiscount:     session.PreDiscountTotal,
		CashbackApplied: plan.Debit,
		FinalTotal:      session.FinalTotal(),
		CashbackEarned:  plan.Credit,
		PaymentMethod:   plan.PaymentMethod,
		Timestamp:       plan.CommittedAt,
	}
	for _, line := range session.Lines {
		event.Items = append(event.Items, models.OrderEventItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	return s.Notifier.Dispatch(Notification{
		CheckoutID: session.ID,
		TelegramID: session.TelegramID,
		Text:       text,
		Event:      event,
	})
}

func (s *checkoutService) Current(ctx context.Context, userID int64) (*models.SessionView, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.View(actionsFor(session.Step)), nil
}

// Cancel discards the active session. Nothing was written, so there is
// nothing to undo.
func (s *checkoutService) Cancel(ctx context.Context, userID int64) error {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.Sessions.Delete(ctx, userID); err != nil {
		return err
	}
	s.Logger.Info("checkout cancelled", zap.Int64("user_id", userID))
	return nil
}

func (s *checkoutService) load(ctx context.Context, userID int64) (*models.CheckoutSession, error) {
	session, err := s.Sessions.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *checkoutService) record(ctx context.Context, metric string, value float64) {
	if !s.Metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.Metrics.RecordValue(mctx, metric, value, nil)
	}()
}

func actionsFor(step models.CheckoutStep) []string {
	switch step {
	case models.StepAwaitingCashbackChoice:
		return []string{ActionCashbackApply, ActionCashbackSkip, ActionCancel}
	case models.StepAwaitingPaymentMethod:
		return []string{ActionPaymentCash, ActionPaymentCard, ActionCancel}
	}
	return []string{}
}

func allowedInputs(step models.CheckoutStep) []string {
	switch step {
	case models.StepAwaitingCashbackChoice:
		return []string{string(models.CashbackApply), string(models.CashbackSkip)}
	case models.StepAwaitingPaymentMethod:
		return []string{string(models.PaymentCash), string(models.PaymentCard)}
	}
	return []string{}
}

// AwaitDelivery waits up to wait for the notification outcome and sets
// result.Warning if delivery failed within that window.
func AwaitDelivery(result *models.CommitResult, wait time.Duration) {
	if result == nil || result.Delivery == nil || wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case err := <-result.Delivery:
		if err != nil {
			result.Warning = DeliveryWarning
		}
	case <-timer.C:
	}
}
