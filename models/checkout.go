package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutStep is the position of a session in the checkout state machine.
// A user without a stored session is idle.
type CheckoutStep string

const (
	StepSnapshotTaken          CheckoutStep = "SNAPSHOT_TAKEN"
	StepAwaitingCashbackChoice CheckoutStep = "AWAITING_CASHBACK_CHOICE"
	StepAwaitingPaymentMethod  CheckoutStep = "AWAITING_PAYMENT_METHOD"
	StepCommitted              CheckoutStep = "COMMITTED"
	StepAborted                CheckoutStep = "ABORTED"
)

func (s CheckoutStep) IsTerminal() bool {
	return s == StepCommitted || s == StepAborted
}

// PaymentMethod is recorded for fulfillment staff; no payment is processed.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod accepts only the enumerated methods.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard:
		return PaymentMethod(s), true
	}
	return "", false
}

type CashbackChoice string

const (
	CashbackApply CashbackChoice = "apply"
	CashbackSkip  CashbackChoice = "skip"
)

func ParseCashbackChoice(s string) (CashbackChoice, bool) {
	switch CashbackChoice(s) {
	case CashbackApply, CashbackSkip:
		return CashbackChoice(s), true
	}
	return "", false
}

// SnapshotLine freezes a cart line and its unit price at checkout start.
type SnapshotLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CheckoutSession is the transient state of one checkout. It is
// self-contained: committing it needs nothing but the session itself.
type CheckoutSession struct {
	ID               uuid.UUID       `json:"id"`
	TelegramID       int64           `json:"telegram_id"`
	Lines            []SnapshotLine  `json:"lines"`
	PreDiscountTotal decimal.Decimal `json:"pre_discount_total"`
	BalanceAtStart   decimal.Decimal `json:"balance_at_start"`
	CashbackApplied  decimal.Decimal `json:"cashback_applied"`
	PaymentMethod    PaymentMethod   `json:"payment_method,omitempty"`
	Step             CheckoutStep    `json:"step"`
	StartedAt        time.Time       `json:"started_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// FinalTotal is the amount the customer pays.
func (s *CheckoutSession) FinalTotal() decimal.Decimal {
	return s.PreDiscountTotal.Sub(s.CashbackApplied)
}

// MaxRedeemable is min(balance at start, pre-discount total).
func (s *CheckoutSession) MaxRedeemable() decimal.Decimal {
	return decimal.Min(s.BalanceAtStart, s.PreDiscountTotal)
}

// SessionView is what clients see of a session.
type SessionView struct {
	CheckoutID       uuid.UUID       `json:"checkout_id"`
	Step             CheckoutStep    `json:"step"`
	Lines            []SnapshotLine  `json:"lines"`
	PreDiscountTotal decimal.Decimal `json:"pre_discount_total"`
	CashbackBalance  decimal.Decimal `json:"cashback_balance"`
	CashbackApplied  decimal.Decimal `json:"cashback_applied"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	CashbackToEarn   decimal.Decimal `json:"cashback_to_earn"`
	Actions          []string        `json:"actions"`
}

func (s *CheckoutSession) View(actions []string) *SessionView {
	return &SessionView{
		CheckoutID:       s.ID,
		Step:             s.Step,
		Lines:            s.Lines,
		PreDiscountTotal: s.PreDiscountTotal,
		CashbackBalance:  s.BalanceAtStart,
		CashbackApplied:  s.CashbackApplied,
		FinalTotal:       s.FinalTotal(),
		CashbackToEarn:   EarnedCashback(s.FinalTotal()),
		Actions:          actions,
	}
}

// CommitResult is returned once the payment method is recorded and the
// checkout committed. Warning is set when the staff notification failed.
type CommitResult struct {
	CheckoutID       uuid.UUID       `json:"checkout_id"`
	Orders           []Order         `json:"orders"`
	PreDiscountTotal decimal.Decimal `json:"pre_discount_total"`
	CashbackApplied  decimal.Decimal `json:"cashback_applied"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	CashbackEarned   decimal.Decimal `json:"cashback_earned"`
	CashbackBalance  decimal.Decimal `json:"cashback_balance"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	AlreadyCommitted bool            `json:"already_committed,omitempty"`
	Warning          string          `json:"warning,omitempty"`

	// Delivery yields the notification outcome once and is then closed. It is
	// nil when no notification was dispatched.
	Delivery <-chan error `json:"-"`
}

type CashbackChoiceRequest struct {
	Choice string `json:"choice" binding:"required"`
}

type PaymentMethodRequest struct {
	Method string `json:"method" binding:"required"`
}
