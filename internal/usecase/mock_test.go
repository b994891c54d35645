//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"pix-subscription/internal/domain"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/adapter"
	"pix-subscription/internal/domain/ports/repository"
	"pix-subscription/internal/infra/worker"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// =============================
// Adapters
// =============================

// ---- Mock OrderGateway ----

type MockOrderGateway struct {
	mu      sync.Mutex
	Created []adapter.PixOrderRequest
	Fetched []string

	CreatePixOrderFunc func(ctx context.Context, req adapter.PixOrderRequest) (*adapter.CreatedOrder, error)
	GetOrderFunc       func(ctx context.Context, orderID string) (*adapter.FetchedOrder, error)
}

var _ adapter.OrderGateway = (*MockOrderGateway)(nil)

func (m *MockOrderGateway) Name() string { return "mock" }

func (m *MockOrderGateway) CreatePixOrder(ctx context.Context, req adapter.PixOrderRequest) (*adapter.CreatedOrder, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	m.mu.Unlock()
	if m.CreatePixOrderFunc != nil {
		return m.CreatePixOrderFunc(ctx, req)
	}
	return &adapter.CreatedOrder{OrderID: "ORD-" + req.ExternalReference, PaymentID: "PAY-1", QRCode: "000201pix", QRCodeBase64: "iVBOR"}, nil
}

func (m *MockOrderGateway) GetOrder(ctx context.Context, orderID string) (*adapter.FetchedOrder, error) {
	m.mu.Lock()
	m.Fetched = append(m.Fetched, orderID)
	m.mu.Unlock()
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return &adapter.FetchedOrder{OrderID: orderID, Status: "processed", StatusDetail: "accredited"}, nil
}

func (m *MockOrderGateway) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Fetched)
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []string // "to|text"

	SendTextFunc func(ctx context.Context, to, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Name() string { return "mock" }

func (m *MockNotifier) SendText(ctx context.Context, to, text string) error {
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, to, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, to+"|"+text)
	return nil
}

// =============================
// Repositories
// =============================

// ---- In-memory PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.PaymentIntent

	SaveFunc               func(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error
	AttachProcessorIDsFunc func(ctx context.Context, tx repository.Tx, id, orderID string, paymentID *string) error
	ApproveIfPendingFunc   func(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error)
	FindByOrderFunc        func(ctx context.Context, tx repository.Tx, source, orderID string) (*model.PaymentIntent, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.PaymentIntent{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.PaymentIntent, error) {
	p, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *MockPaymentRepo) FindByProcessorOrderID(ctx context.Context, tx repository.Tx, source, orderID string) (*model.PaymentIntent, error) {
	if r.FindByOrderFunc != nil {
		return r.FindByOrderFunc(ctx, tx, source, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.Source == source && p.ProcessorOrderID != nil && *p.ProcessorOrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) AttachProcessorIDs(ctx context.Context, tx repository.Tx, id, orderID string, paymentID *string) error {
	if r.AttachProcessorIDsFunc != nil {
		return r.AttachProcessorIDsFunc(ctx, tx, id, orderID, paymentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProcessorOrderID = &orderID
	p.ProcessorPaymentID = paymentID
	return nil
}

func (r *MockPaymentRepo) ApproveIfPending(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error) {
	if r.ApproveIfPendingFunc != nil {
		return r.ApproveIfPendingFunc(ctx, tx, id, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return 0, nil
	}
	p.Status = model.PaymentStatusApproved
	p.ApprovedAt = &at
	p.UpdatedAt = at
	return 1, nil
}

func (r *MockPaymentRepo) RejectIfPending(ctx context.Context, tx repository.Tx, id, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return 0, nil
	}
	p.Status = model.PaymentStatusRejected
	p.RejectedReason = &reason
	return 1, nil
}

func (r *MockPaymentRepo) ListPendingBetween(ctx context.Context, tx repository.Tx, from, to time.Time, limit int) ([]*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentIntent
	for _, p := range r.data {
		if p.Status != model.PaymentStatusPending || p.ProcessorOrderID == nil {
			continue
		}
		if p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) MarkChecked(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	return nil
}

// Put seeds an intent directly.
func (r *MockPaymentRepo) Put(p *model.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

// Get returns a copy of the stored intent, or nil.
func (r *MockPaymentRepo) Get(id string) *model.PaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *MockPaymentRepo) snapshot() map[string]model.PaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.PaymentIntent, len(r.data))
	for k, v := range r.data {
		out[k] = *v
	}
	return out
}

func (r *MockPaymentRepo) restore(s map[string]model.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[string]*model.PaymentIntent, len(s))
	for k, v := range s {
		cp := v
		r.data[k] = &cp
	}
}

// ---- In-memory PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	FindActiveByIntervalFunc func(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.data[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) FindActiveByInterval(ctx context.Context, tx repository.Tx, interval model.PlanType) (*model.Plan, error) {
	if r.FindActiveByIntervalFunc != nil {
		return r.FindActiveByIntervalFunc(ctx, tx, interval)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.IsActive && p.Interval == interval {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- In-memory SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu    sync.Mutex
	data  []*model.Subscription
	Locks []string
	Saves int

	SaveFunc     func(ctx context.Context, tx repository.Tx, sub *model.Subscription) error
	LockUserFunc func(ctx context.Context, tx repository.Tx, userID string) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	cp := *sub
	for i, s := range r.data {
		if s.ID == sub.ID {
			r.data[i] = &cp
			return nil
		}
	}
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockSubscriptionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Subscription
	for _, s := range r.data {
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MockSubscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if r.LockUserFunc != nil {
		return r.LockUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Locks = append(r.Locks, userID)
	return nil
}

func (r *MockSubscriptionRepo) ForUser(userID string) []model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Subscription
	for _, s := range r.data {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

// ---- In-memory UserRepository ----

type MockUserRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.BillingProfile

	FindBillingProfileFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.BillingProfile, error)
	SetProfilePlanFunc     func(ctx context.Context, tx repository.Tx, userID, planID string) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{profiles: map[string]*model.BillingProfile{}}
}

func (r *MockUserRepo) Put(p *model.BillingProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.UserID] = &cp
}

func (r *MockUserRepo) FindBillingProfile(ctx context.Context, tx repository.Tx, userID string) (*model.BillingProfile, error) {
	if r.FindBillingProfileFunc != nil {
		return r.FindBillingProfileFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockUserRepo) SetProfilePlan(ctx context.Context, tx repository.Tx, userID, planID string) error {
	if r.SetProfilePlanFunc != nil {
		return r.SetProfilePlanFunc(ctx, tx, userID, planID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	p.PlanID = &planID
	return nil
}

// ---- Tx manager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// rollbackOn restores payments to their pre-transaction state when fn fails,
// so tests can observe the effect of a rolled back approval.
func rollbackOn(payments *MockPaymentRepo) *MockTxManager {
	var mu sync.Mutex
	return &MockTxManager{WithTxFunc: func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
		mu.Lock()
		defer mu.Unlock()
		snap := payments.snapshot()
		if err := fn(ctx, repository.NoTX); err != nil {
			payments.restore(snap)
			return err
		}
		return nil
	}}
}

// =============================
// Misc
// =============================

type MockLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func (l *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

type stubVerifier bool

func (v stubVerifier) Verify(signatureHeader, requestID, dataID string) bool { return bool(v) }

type MockReporter struct {
	mu       sync.Mutex
	Captured []error
}

func (r *MockReporter) Capture(ctx context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Captured = append(r.Captured, err)
}

// inlineSubmitter runs tasks synchronously so notification effects are visible to assertions.
type inlineSubmitter struct{ err error }

func (s inlineSubmitter) Submit(task worker.Task) error {
	if s.err != nil {
		return s.err
	}
	return task(context.Background())
}

var errStore = errors.New("store unavailable")

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func strPtr(s string) *string { return &s }
