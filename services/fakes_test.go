package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/ehson1111/chocoberry-bot/sender"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---- cart ----

type mockCartRepo struct {
	mu    sync.Mutex
	lines map[int64][]models.CartLine
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{lines: make(map[int64][]models.CartLine)}
}

func (m *mockCartRepo) List(_ context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CartLine, len(m.lines[userID]))
	copy(out, m.lines[userID])
	return out, nil
}

func (m *mockCartRepo) AddOrIncrement(_ context.Context, userID int64, productID uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[userID] {
		if l.ProductID == productID {
			m.lines[userID][i].Quantity += qty
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], models.CartLine{TelegramID: userID, ProductID: productID, Quantity: qty})
	return nil
}

func (m *mockCartRepo) SetQuantity(ctx context.Context, userID int64, productID uint, qty int) error {
	if qty <= 0 {
		return m.Remove(ctx, userID, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[userID] {
		if l.ProductID == productID {
			m.lines[userID][i].Quantity = qty
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], models.CartLine{TelegramID: userID, ProductID: productID, Quantity: qty})
	return nil
}

func (m *mockCartRepo) Remove(_ context.Context, userID int64, productID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.lines[userID][:0]
	for _, l := range m.lines[userID] {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	m.lines[userID] = kept
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, userID)
	return nil
}

// ---- catalog ----

type mockCatalog struct {
	mu       sync.Mutex
	products map[uint]*models.Product
	calls    int
}

func newMockCatalog(products ...models.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[uint]*models.Product)}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *mockCatalog) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) setPrice(id uint, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Price = dec(price)
}

// ---- ledger ----

type mockLedger struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal
	entries  map[int64][]models.CashbackEntry
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances: make(map[int64]decimal.Decimal),
		entries:  make(map[int64][]models.CashbackEntry),
	}
}

func (m *mockLedger) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = decimal.Zero
	}
	return m.balances[userID], nil
}

func (m *mockLedger) Debit(_ context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.IsNegative() {
		return decimal.Zero, repository.ErrNegativeAmount
	}
	debited := decimal.Min(amount, m.balances[userID])
	if debited.IsPositive() {
		m.apply(userID, models.EntryDebit, debited, checkoutID)
	}
	return debited, nil
}

func (m *mockLedger) Credit(_ context.Context, userID int64, amount decimal.Decimal, checkoutID *uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.IsNegative() {
		return decimal.Zero, repository.ErrNegativeAmount
	}
	if amount.IsPositive() {
		m.apply(userID, models.EntryCredit, amount, checkoutID)
	}
	return m.balances[userID], nil
}

func (m *mockLedger) Entries(_ context.Context, userID int64, _ int) ([]models.CashbackEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CashbackEntry, 0, len(m.entries[userID]))
	for i := len(m.entries[userID]) - 1; i >= 0; i-- {
		out = append(out, m.entries[userID][i])
	}
	return out, nil
}

// apply expects m.mu held.
func (m *mockLedger) apply(userID int64, kind models.EntryKind, amount decimal.Decimal, checkoutID *uuid.UUID) {
	next := m.balances[userID].Add(amount)
	if kind == models.EntryDebit {
		next = m.balances[userID].Sub(amount)
	}
	m.balances[userID] = next
	m.entries[userID] = append(m.entries[userID], models.CashbackEntry{
		TelegramID:   userID,
		CheckoutID:   checkoutID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: next,
	})
}

func (m *mockLedger) set(userID int64, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = dec(balance)
}

func (m *mockLedger) balance(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// ---- users ----

type mockUserRepo struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	profiles map[int64]*models.UserProfile
	upserts  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:    make(map[int64]*models.User),
		profiles: make(map[int64]*models.UserProfile),
	}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	u := *user
	m.users[user.TelegramID] = &u
	return nil
}

func (m *mockUserRepo) GetUser(_ context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *mockUserRepo) GetProfile(_ context.Context, userID int64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID], nil
}

func (m *mockUserRepo) SaveProfile(_ context.Context, profile *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *profile
	m.profiles[profile.TelegramID] = &p
	return nil
}

// ---- checkout store ----

// mockCheckoutStore applies a plan to the cart and ledger mocks as a unit.
type mockCheckoutStore struct {
	mu      sync.Mutex
	carts   *mockCartRepo
	ledger  *mockLedger
	orders  map[uuid.UUID][]models.Order
	failErr error
	commits int
}

func newMockCheckoutStore(carts *mockCartRepo, ledger *mockLedger) *mockCheckoutStore {
	return &mockCheckoutStore{carts: carts, ledger: ledger, orders: make(map[uuid.UUID][]models.Order)}
}

func (m *mockCheckoutStore) Commit(ctx context.Context, plan *models.CommitPlan) (*models.CommitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, m.failErr
	}
	if existing, ok := m.orders[plan.CheckoutID]; ok {
		bal, _ := m.ledger.Balance(ctx, plan.TelegramID)
		return &models.CommitOutcome{Orders: existing, BalanceAfter: bal, AlreadyCommitted: true}, nil
	}

	m.ledger.mu.Lock()
	if plan.Debit.GreaterThan(m.ledger.balances[plan.TelegramID]) {
		m.ledger.mu.Unlock()
		return nil, repository.ErrLedgerUnderflow
	}
	id := plan.CheckoutID
	if plan.Debit.IsPositive() {
		m.ledger.apply(plan.TelegramID, models.EntryDebit, plan.Debit, &id)
	}
	if plan.Credit.IsPositive() {
		m.ledger.apply(plan.TelegramID, models.EntryCredit, plan.Credit, &id)
	}
	balance := m.ledger.balances[plan.TelegramID]
	m.ledger.mu.Unlock()

	orders := make([]models.Order, len(plan.Orders))
	copy(orders, plan.Orders)
	for i := range orders {
		orders[i].ID = uint(len(m.orders)*100 + i + 1)
	}
	m.orders[plan.CheckoutID] = orders
	if plan.ClearCart {
		_ = m.carts.Clear(ctx, plan.TelegramID)
	}
	m.commits++

	return &models.CommitOutcome{Orders: orders, BalanceAfter: balance}, nil
}

func (m *mockCheckoutStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		n += len(o)
	}
	return n
}

// ---- notifications ----

type mockDispatcher struct {
	mu    sync.Mutex
	sent  []services.Notification
	err   error
	block chan struct{}
}

func (m *mockDispatcher) Dispatch(n services.Notification) <-chan error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	err := m.err
	block := m.block
	m.mu.Unlock()

	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		if block != nil {
			<-block
		}
		if err != nil {
			ch <- &services.NotificationDeliveryError{CheckoutID: n.CheckoutID, Err: err}
		}
	}()
	return ch
}

func (m *mockDispatcher) notifications() []services.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.Notification(nil), m.sent...)
}

type mockSender struct {
	mu    sync.Mutex
	texts []string
	fail  int
}

func (m *mockSender) Send(_ context.Context, text string) (sender.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return sender.SendResult{}, errors.New("staff chat unreachable")
	}
	m.texts = append(m.texts, text)
	return sender.SendResult{MessageID: "m1", SentAt: time.Now()}, nil
}

func (m *mockSender) Channel() string { return models.ChannelTelegram }

// blockingSender never answers; Send returns when its context expires.
type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ string) (sender.SendResult, error) {
	<-ctx.Done()
	return sender.SendResult{}, ctx.Err()
}

func (blockingSender) Channel() string { return models.ChannelTelegram }

type mockNotificationRepo struct {
	mu   sync.Mutex
	logs []models.NotificationLog
	err  error
}

func (m *mockNotificationRepo) SaveLog(ctx context.Context, log *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockNotificationRepo) FindByCheckoutID(_ context.Context, checkoutID uuid.UUID) ([]models.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NotificationLog
	for _, l := range m.logs {
		if l.CheckoutID == checkoutID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.logs {
		out = append(out, l.Status)
	}
	return out
}

type mockRetryQueue struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (m *mockRetryQueue) SendMessage(ctx context.Context, body string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.bodies = append(m.bodies, body)
	return nil
}

type mockEventPublisher struct {
	mu     sync.Mutex
	events []models.OrderCommittedEvent
}

func (m *mockEventPublisher) PublishOrderCommitted(_ context.Context, event models.OrderCommittedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// ---- harness ----

const (
	productX uint = 1
	productY uint = 2
	productZ uint = 3
)

type checkoutHarness struct {
	carts      *mockCartRepo
	catalog    *mockCatalog
	ledger     *mockLedger
	users      *mockUserRepo
	sessions   *repository.MemorySessionRepository
	store      *mockCheckoutStore
	dispatcher *mockDispatcher
	locker     *services.UserLocker
	profiles   services.ProfileService
	svc        services.CheckoutService
}

func newCheckoutHarness(t *testing.T) *checkoutHarness {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	h := &checkoutHarness{
		carts: newMockCartRepo(),
		catalog: newMockCatalog(
			models.Product{ID: productX, Name: "ProductX", Price: dec("10.00")},
			models.Product{ID: productY, Name: "ProductY", Price: dec("15.00")},
			models.Product{ID: productZ, Name: "ProductZ", Price: dec("2.50")},
		),
		ledger:     newMockLedger(),
		users:      newMockUserRepo(),
		sessions:   repository.NewMemorySessionRepository(),
		dispatcher: &mockDispatcher{},
		locker:     services.NewUserLocker(),
	}
	h.store = newMockCheckoutStore(h.carts, h.ledger)
	h.profiles = services.NewProfileService(h.users, h.ledger, logger)
	h.svc = services.NewCheckoutService(services.CheckoutDependencies{
		Carts:    h.carts,
		Catalog:  h.catalog,
		Ledger:   h.ledger,
		Profiles: h.profiles,
		Sessions: h.sessions,
		Store:    h.store,
		Notifier: h.dispatcher,
		Locker:   h.locker,
		Logger:   logger,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) },
	})
	return h
}

// customer registers a user with a complete delivery profile.
func (h *checkoutHarness) customer(t *testing.T, userID int64) {
	t.Helper()
	ctx := context.Background()
	if err := h.profiles.Register(ctx, &models.User{TelegramID: userID, Username: "alice", FirstName: "Alice"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.profiles.UpdateProfile(ctx, userID, models.UpdateProfileRequest{PhoneNumber: "+15550100", Address: "1 Main St"}); err != nil {
		t.Fatal(err)
	}
}
