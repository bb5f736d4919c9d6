package controllers_test

import (
	"context"
	"sync"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/shopspring/decimal"
)

// ---- services.CartService ----

type mockCartService struct {
	mu    sync.Mutex
	lines map[uint]int
	err   error
}

func newMockCartService() *mockCartService {
	return &mockCartService{lines: make(map[uint]int)}
}

func (m *mockCartService) view() *models.CartView {
	v := &models.CartView{Items: []models.CartItemView{}, Total: decimal.Zero}
	for id, qty := range m.lines {
		v.Items = append(v.Items, models.CartItemView{ProductID: id, Quantity: qty})
	}
	return v
}

func (m *mockCartService) View(ctx context.Context, userID int64) (*models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.view(), nil
}

func (m *mockCartService) Add(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if qty == 0 {
		qty = 1
	}
	m.lines[productID] += qty
	return m.view(), nil
}

func (m *mockCartService) Adjust(ctx context.Context, userID int64, productID uint, delta int) (*models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lines[productID] += delta
	if m.lines[productID] <= 0 {
		delete(m.lines, productID)
	}
	return m.view(), nil
}

func (m *mockCartService) SetQuantity(ctx context.Context, userID int64, productID uint, qty int) (*models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if qty == 0 {
		delete(m.lines, productID)
	} else {
		m.lines[productID] = qty
	}
	return m.view(), nil
}

func (m *mockCartService) Remove(ctx context.Context, userID int64, productID uint) (*models.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	delete(m.lines, productID)
	return m.view(), nil
}

func (m *mockCartService) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lines = make(map[uint]int)
	return nil
}

// ---- services.CheckoutService ----

type mockCheckoutService struct {
	view     *models.SessionView
	result   *models.CommitResult
	err      error
	choices  []string
	methods  []string
	canceled int
}

func (m *mockCheckoutService) Start(ctx context.Context, userID int64) (*models.SessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockCheckoutService) ChooseCashback(ctx context.Context, userID int64, choice string) (*models.SessionView, error) {
	m.choices = append(m.choices, choice)
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockCheckoutService) ChoosePaymentMethod(ctx context.Context, userID int64, method string) (*models.CommitResult, error) {
	m.methods = append(m.methods, method)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockCheckoutService) Current(ctx context.Context, userID int64) (*models.SessionView, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockCheckoutService) Cancel(ctx context.Context, userID int64) error {
	if m.err != nil {
		return m.err
	}
	m.canceled++
	return nil
}

// ---- services.LedgerService ----

type mockLedgerService struct {
	balance   decimal.Decimal
	lastLimit int
	err       error
}

func (m *mockLedgerService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return m.balance, m.err
}

func (m *mockLedgerService) ReserveAndDebit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Min(m.balance, amount), m.err
}

func (m *mockLedgerService) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	return m.balance.Add(amount), m.err
}

func (m *mockLedgerService) Overview(ctx context.Context, userID int64, limit int) (*models.CashbackBalanceView, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return &models.CashbackBalanceView{Balance: m.balance}, nil
}

// ---- services.OrderService ----

type mockOrderService struct {
	page, limit int
	err         error
}

func (m *mockOrderService) History(ctx context.Context, userID int64, page, limit int) (*models.OrderHistory, error) {
	m.page, m.limit = page, limit
	if m.err != nil {
		return nil, m.err
	}
	return &models.OrderHistory{Orders: []models.OrderHistoryItem{}, Meta: models.MetaData{Page: page, Limit: limit}}, nil
}

// ---- services.ProfileService ----

type mockProfileService struct {
	profiles map[int64]*models.UserProfile
	err      error
}

func newMockProfileService() *mockProfileService {
	return &mockProfileService{profiles: make(map[int64]*models.UserProfile)}
}

func (m *mockProfileService) Register(ctx context.Context, user *models.User) error {
	return m.err
}

func (m *mockProfileService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return &models.User{TelegramID: userID}, m.err
}

func (m *mockProfileService) HasCompleteProfile(ctx context.Context, userID int64) (bool, error) {
	return m.profiles[userID].IsComplete(), m.err
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return &models.UserProfile{TelegramID: userID}, nil
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := &models.UserProfile{TelegramID: userID, PhoneNumber: req.PhoneNumber, Address: req.Address}
	m.profiles[userID] = p
	return p, nil
}
