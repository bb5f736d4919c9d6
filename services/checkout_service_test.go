package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice int64 = 1001

func TestCheckout_NoBalanceSkipsCashbackStep(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 2))

	view, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingPaymentMethod, view.Step)
	assert.True(t, view.PreDiscountTotal.Equal(dec("20.00")))
	assert.Contains(t, view.Actions, services.ActionPaymentCash)

	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)

	assert.True(t, res.FinalTotal.Equal(dec("20.00")))
	assert.True(t, res.CashbackEarned.Equal(dec("1.00")))
	assert.True(t, res.CashbackBalance.Equal(dec("1.00")))
	assert.Equal(t, models.PaymentCash, res.PaymentMethod)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "ProductX", res.Orders[0].ProductName)
	assert.Equal(t, 2, res.Orders[0].Quantity)

	lines, _ := h.carts.List(ctx, alice)
	assert.Empty(t, lines)
	assert.True(t, h.ledger.balance(alice).Equal(dec("1.00")))
}

func TestCheckout_ApplyCoversWholeOrder(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "20.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productY, 1))

	view, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingCashbackChoice, view.Step)
	assert.Contains(t, view.Actions, services.ActionCashbackApply)

	view, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)
	assert.True(t, view.CashbackApplied.Equal(dec("15.00")))
	assert.True(t, view.FinalTotal.IsZero())
	// Nothing is debited before commit.
	assert.True(t, h.ledger.balance(alice).Equal(dec("20.00")))

	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "card")
	require.NoError(t, err)
	assert.True(t, res.CashbackApplied.Equal(dec("15.00")))
	assert.True(t, res.FinalTotal.IsZero())
	assert.True(t, res.CashbackEarned.IsZero())
	assert.True(t, res.CashbackBalance.Equal(dec("5.00")))
	assert.True(t, h.ledger.balance(alice).Equal(dec("5.00")))
}

func TestCheckout_ApplyIsClampedToBalance(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "5.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 2))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	view, err := h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)
	assert.True(t, view.CashbackApplied.Equal(dec("5.00")))
	assert.True(t, view.FinalTotal.Equal(dec("15.00")))
	assert.True(t, view.CashbackToEarn.Equal(dec("0.75")))

	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)
	assert.True(t, res.CashbackEarned.Equal(dec("0.75")))
	assert.True(t, h.ledger.balance(alice).Equal(dec("0.75")))
}

func TestCheckout_SkipKeepsBalance(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "5.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "skip")
	require.NoError(t, err)
	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)

	assert.True(t, res.CashbackApplied.IsZero())
	// 5.00 + 10.00 * 5%
	assert.True(t, h.ledger.balance(alice).Equal(dec("5.50")))
}

func TestCheckout_SnapshotIgnoresLaterPriceChange(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 2))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)

	h.catalog.setPrice(productX, "99.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productY, 5))

	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)
	assert.True(t, res.PreDiscountTotal.Equal(dec("20.00")))
	require.Len(t, res.Orders, 1)
	assert.True(t, res.Orders[0].UnitPrice.Equal(dec("10.00")))
	assert.True(t, res.Orders[0].Total.Equal(dec("20.00")))
}

func TestCheckout_NotificationFailureDoesNotRollBack(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	h.dispatcher.err = errors.New("staff chat unreachable")
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 2))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "card")
	require.NoError(t, err)
	require.NotNil(t, res.Delivery)

	services.AwaitDelivery(res, time.Second)
	assert.Equal(t, services.DeliveryWarning, res.Warning)

	assert.Equal(t, 1, h.store.orderCount())
	lines, _ := h.carts.List(ctx, alice)
	assert.Empty(t, lines)
	assert.True(t, h.ledger.balance(alice).Equal(dec("1.00")))
}

func TestCheckout_NotificationCarriesSummaryAndEvent(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 2))
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productZ, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)
	services.AwaitDelivery(res, time.Second)
	assert.Empty(t, res.Warning)

	sent := h.dispatcher.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, res.CheckoutID, sent[0].CheckoutID)
	assert.Contains(t, sent[0].Text, "ProductX x2 - $20.00")
	assert.Contains(t, sent[0].Text, "ProductZ x1 - $2.50")
	assert.Contains(t, sent[0].Text, "Alice (@alice)")
	assert.Contains(t, sent[0].Text, "1 Main St")
	assert.Contains(t, sent[0].Text, "Date: 2026-03-01 12:30:00 UTC")

	require.NotNil(t, sent[0].Event)
	assert.Len(t, sent[0].Event.Items, 2)
	assert.True(t, sent[0].Event.FinalTotal.Equal(dec("22.50")))
}

func TestCheckout_SecondCommitReportsNoSession(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "3.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)
	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)

	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	assert.ErrorIs(t, err, services.ErrNoActiveSession)

	// 3.00 - 3.00 + 7.00 * 5%
	assert.True(t, h.ledger.balance(alice).Equal(dec("0.35")))
	assert.Equal(t, 1, h.store.commits)
	entries, _ := h.ledger.Entries(ctx, alice, 10)
	assert.Len(t, entries, 2)
}

func TestCheckout_ConcurrentConfirmCommitsOnce(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "4.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 3))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var committed, noSession int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.ChoosePaymentMethod(ctx, alice, "card")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				committed++
			case errors.Is(err, services.ErrNoActiveSession):
				noSession++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, committed)
	assert.Equal(t, 7, noSession)
	assert.Equal(t, 1, h.store.commits)
	// 4.00 - 4.00 + 26.00 * 5%
	assert.True(t, h.ledger.balance(alice).Equal(dec("1.30")))
}

func TestCheckout_AbortAndRestartLeavesStateUnchanged(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "8.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productY, 2))

	cartBefore, _ := h.carts.List(ctx, alice)
	balanceBefore := h.ledger.balance(alice)

	first, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)
	require.NoError(t, h.svc.Cancel(ctx, alice))

	second, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	assert.NotEqual(t, first.CheckoutID, second.CheckoutID)
	assert.Equal(t, models.StepAwaitingCashbackChoice, second.Step)
	assert.True(t, second.CashbackApplied.IsZero())

	cartAfter, _ := h.carts.List(ctx, alice)
	assert.Equal(t, cartBefore, cartAfter)
	assert.True(t, h.ledger.balance(alice).Equal(balanceBefore))
	assert.Equal(t, 0, h.store.orderCount())
}

func TestCheckout_RestartSupersedesUnfinishedSession(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "8.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)

	view, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingCashbackChoice, view.Step)
	assert.True(t, view.CashbackApplied.IsZero())
	assert.True(t, h.ledger.balance(alice).Equal(dec("8.00")))
}

func TestCheckout_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		h := newCheckoutHarness(t)
		h.customer(t, alice)

		_, err := h.svc.Start(ctx, alice)
		var pe *services.PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, services.ReasonCartEmpty, pe.Reason)

		_, err = h.svc.Current(ctx, alice)
		assert.ErrorIs(t, err, services.ErrNoActiveSession)
	})

	t.Run("missing profile", func(t *testing.T) {
		h := newCheckoutHarness(t)
		require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

		_, err := h.svc.Start(ctx, alice)
		var pe *services.PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, services.ReasonProfileMissing, pe.Reason)
	})

	t.Run("failed start discards the previous session", func(t *testing.T) {
		h := newCheckoutHarness(t)
		h.customer(t, alice)
		require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))
		_, err := h.svc.Start(ctx, alice)
		require.NoError(t, err)

		require.NoError(t, h.carts.Clear(ctx, alice))
		_, err = h.svc.Start(ctx, alice)
		var pe *services.PreconditionError
		require.ErrorAs(t, err, &pe)

		_, err = h.svc.Current(ctx, alice)
		assert.ErrorIs(t, err, services.ErrNoActiveSession)
	})

	t.Run("only deleted products", func(t *testing.T) {
		h := newCheckoutHarness(t)
		h.customer(t, alice)
		require.NoError(t, h.carts.AddOrIncrement(ctx, alice, 999, 1))

		_, err := h.svc.Start(ctx, alice)
		var pe *services.PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, services.ReasonCartEmpty, pe.Reason)
	})
}

func TestCheckout_InvalidChoiceKeepsStep(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "1.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)

	_, err = h.svc.ChooseCashback(ctx, alice, "maybe")
	var ic *services.InvalidChoiceError
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, []string{"apply", "skip"}, ic.Allowed)

	// Payment is not accepted before the cashback decision.
	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, models.StepAwaitingCashbackChoice, ic.Step)

	_, err = h.svc.ChooseCashback(ctx, alice, "skip")
	require.NoError(t, err)

	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "bitcoin")
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, []string{"cash", "card"}, ic.Allowed)

	view, err := h.svc.Current(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingPaymentMethod, view.Step)
	assert.Equal(t, 0, h.store.orderCount())
}

func TestCheckout_CommitFailureIsRetryable(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)

	h.store.failErr = errors.New("connection reset")
	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.Error(t, err)

	view, err := h.svc.Current(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingPaymentMethod, view.Step)
	lines, _ := h.carts.List(ctx, alice)
	assert.Len(t, lines, 1)
	assert.True(t, h.ledger.balance(alice).IsZero())

	h.store.failErr = nil
	res, err := h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	require.NoError(t, err)
	assert.Equal(t, view.CheckoutID, res.CheckoutID)
	assert.True(t, h.ledger.balance(alice).Equal(dec("0.50")))
}

func TestCheckout_UnderflowFailsCommitLoudly(t *testing.T) {
	h := newCheckoutHarness(t)
	h.customer(t, alice)
	ctx := context.Background()
	h.ledger.set(alice, "6.00")
	require.NoError(t, h.carts.AddOrIncrement(ctx, alice, productX, 1))

	_, err := h.svc.Start(ctx, alice)
	require.NoError(t, err)
	_, err = h.svc.ChooseCashback(ctx, alice, "apply")
	require.NoError(t, err)

	// Balance drained outside the checkout between choice and commit.
	h.ledger.set(alice, "1.00")
	_, err = h.svc.ChoosePaymentMethod(ctx, alice, "cash")
	assert.ErrorIs(t, err, services.ErrLedgerUnderflow)
	assert.True(t, h.ledger.balance(alice).Equal(dec("1.00")))
	assert.Equal(t, 0, h.store.orderCount())
}

func TestCheckout_UsersDoNotBlockEachOther(t *testing.T) {
	h := newCheckoutHarness(t)
	const bob int64 = 2002
	h.customer(t, alice)
	h.customer(t, bob)
	ctx := context.Background()
	require.NoError(t, h.carts.AddOrIncrement(ctx, bob, productZ, 4))

	unlock, err := h.locker.Lock(ctx, alice)
	require.NoError(t, err)
	defer unlock()

	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	view, err := h.svc.Start(tctx, bob)
	require.NoError(t, err)
	assert.True(t, view.PreDiscountTotal.Equal(dec("10.00")))

	blocked, cancelBlocked := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancelBlocked()
	_, err = h.svc.Start(blocked, alice)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckout_CancelWithoutSession(t *testing.T) {
	h := newCheckoutHarness(t)
	err := h.svc.Cancel(context.Background(), alice)
	assert.ErrorIs(t, err, services.ErrNoActiveSession)
}

func TestAwaitDelivery_SlowNotificationHasNoWarning(t *testing.T) {
	block := make(chan struct{})
	d := &mockDispatcher{err: errors.New("late failure"), block: block}
	defer close(block)

	res := &models.CommitResult{Delivery: d.Dispatch(services.Notification{})}
	services.AwaitDelivery(res, 20*time.Millisecond)
	assert.Empty(t, res.Warning)
}
