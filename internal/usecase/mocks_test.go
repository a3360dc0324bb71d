package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

// In-memory fakes backing the use-case tests. Each store can snapshot and
// restore its state, which lets memTxManager emulate rollback: when the
// transactional function fails, every registered store is reset to the state
// it held before the transaction began.

type snapshotter interface {
	snapshot() interface{}
	restore(interface{})
}

type memTxManager struct {
	stores []snapshotter
}

func newMemTxManager(stores ...snapshotter) *memTxManager {
	return &memTxManager{stores: stores}
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	snaps := make([]interface{}, len(m.stores))
	for i, s := range m.stores {
		snaps[i] = s.snapshot()
	}
	if err := fn(ctx, repository.Tx("memtx")); err != nil {
		for i, s := range m.stores {
			s.restore(snaps[i])
		}
		return err
	}
	return nil
}

// --- orders ---

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]model.Order // keyed by order_no
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]model.Order)}
}

func (r *memOrderRepo) snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.Order, len(r.orders))
	for k, v := range r.orders {
		cp[k] = v
	}
	return cp
}

func (r *memOrderRepo) restore(s interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = s.(map[string]model.Order)
}

func (r *memOrderRepo) Save(_ context.Context, _ repository.Tx, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.OrderNo] = *o
	return nil
}

func (r *memOrderRepo) FindByOrderNo(_ context.Context, _ repository.Tx, orderNo string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			cp := o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memOrderRepo) MarkPaid(_ context.Context, _ repository.Tx, orderNo, transactionID string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok || o.Status != model.OrderStatusPending || o.TransactionID != "" {
		return false, nil
	}
	o.Status = model.OrderStatusPaid
	o.TransactionID = transactionID
	o.PaidAt = &paidAt
	r.orders[orderNo] = o
	return true, nil
}

func (r *memOrderRepo) MarkCancelled(_ context.Context, _ repository.Tx, orderNo string, status model.OrderStatus, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = status
	o.CancelReason = reason
	o.CancelledAt = &at
	r.orders[orderNo] = o
	return true, nil
}

func (r *memOrderRepo) MarkRefunded(_ context.Context, _ repository.Tx, orderNo, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok || o.Status != model.OrderStatusPaid {
		return false, nil
	}
	o.Status = model.OrderStatusRefunded
	o.CancelReason = reason
	o.CancelledAt = &at
	r.orders[orderNo] = o
	return true, nil
}

func (r *memOrderRepo) ExpirePendingBefore(_ context.Context, _ repository.Tx, cutoff time.Time, reason string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for no, o := range r.orders {
		if o.Status == model.OrderStatusPending && !o.CreatedAt.After(cutoff) {
			o.Status = model.OrderStatusExpired
			o.CancelReason = reason
			o.CancelledAt = &at
			r.orders[no] = o
			n++
		}
	}
	return n, nil
}

func (r *memOrderRepo) ListPendingCreatedBefore(_ context.Context, _ repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			cp := o
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.OrderRepository = (*memOrderRepo)(nil)

// --- products ---

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]model.Product
}

func newMemProductRepo(products ...*model.Product) *memProductRepo {
	r := &memProductRepo{products: make(map[string]model.Product)}
	for _, p := range products {
		r.products[p.ID] = *p
	}
	return r
}

func (r *memProductRepo) Save(_ context.Context, _ repository.Tx, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *memProductRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Product
	for _, p := range r.products {
		if p.Active {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ repository.ProductRepository = (*memProductRepo)(nil)

// --- users ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]model.User)}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *memUserRepo) snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.User, len(r.users))
	for k, v := range r.users {
		cp[k] = v
	}
	return cp
}

func (r *memUserRepo) restore(s interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = s.(map[string]model.User)
}

func (r *memUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (r *memUserRepo) UpdateVIP(_ context.Context, _ repository.Tx, userID string, vip model.VIPState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.VIP = vip
	r.users[userID] = u
	return nil
}

func (r *memUserRepo) DowngradeExpired(_ context.Context, _ repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, u := range r.users {
		next := model.Downgrade(u.VIP, now)
		if next != u.VIP {
			u.VIP = next
			r.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r *memUserRepo) ListExpiringBetween(_ context.Context, _ repository.Tx, from, to time.Time, limit int) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if u.VIP.Lifetime || u.VIP.ExpireAt == nil {
			continue
		}
		e := *u.VIP.ExpireAt
		if (e.Equal(from) || e.After(from)) && e.Before(to) {
			cp := u
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

// --- ledger ---

type memLedgerRepo struct {
	mu      sync.Mutex
	records map[string][]model.LedgerRecord // keyed by user id, append order
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{records: make(map[string][]model.LedgerRecord)}
}

func (r *memLedgerRepo) snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string][]model.LedgerRecord, len(r.records))
	for k, v := range r.records {
		cp[k] = append([]model.LedgerRecord(nil), v...)
	}
	return cp
}

func (r *memLedgerRepo) restore(s interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = s.(map[string][]model.LedgerRecord)
}

func (r *memLedgerRepo) Append(_ context.Context, _ repository.Tx, rec *model.LedgerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.UserID] = append(r.records[rec.UserID], *rec)
	return nil
}

func (r *memLedgerRepo) LatestForUpdate(_ context.Context, _ repository.Tx, userID string) (*model.LedgerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.records[userID]
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := recs[len(recs)-1]
	return &cp, nil
}

func (r *memLedgerRepo) CurrentBalance(_ context.Context, _ repository.Tx, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.records[userID]
	if len(recs) == 0 {
		return 0, nil
	}
	return recs[len(recs)-1].BalanceAfter, nil
}

func (r *memLedgerRepo) History(_ context.Context, _ repository.Tx, userID string, limit int) ([]*model.LedgerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.records[userID]
	var out []*model.LedgerRecord
	for i := len(recs) - 1; i >= 0; i-- {
		cp := recs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memLedgerRepo) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[userID])
}

var _ repository.LedgerRepository = (*memLedgerRepo)(nil)

// --- callbacks ---

type memCallbackRepo struct {
	mu      sync.Mutex
	records map[string]model.CallbackRecord // keyed by provider|transaction_id
}

func newMemCallbackRepo() *memCallbackRepo {
	return &memCallbackRepo{records: make(map[string]model.CallbackRecord)}
}

func callbackKey(provider, transactionID string) string {
	return provider + "|" + transactionID
}

func (r *memCallbackRepo) snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.CallbackRecord, len(r.records))
	for k, v := range r.records {
		cp[k] = v
	}
	return cp
}

func (r *memCallbackRepo) restore(s interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = s.(map[string]model.CallbackRecord)
}

func (r *memCallbackRepo) Insert(_ context.Context, _ repository.Tx, rec *model.CallbackRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := callbackKey(rec.Provider, rec.TransactionID)
	if _, ok := r.records[key]; ok {
		return fmt.Errorf("callback %s: %w", key, domain.ErrAlreadyExists)
	}
	r.records[key] = *rec
	return nil
}

func (r *memCallbackRepo) Find(_ context.Context, _ repository.Tx, provider, transactionID string) (*model.CallbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callbackKey(provider, transactionID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (r *memCallbackRepo) FindByOrderNo(_ context.Context, _ repository.Tx, orderNo string) (*model.CallbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.OrderNo == orderNo {
			cp := rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCallbackRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

var _ repository.CallbackRepository = (*memCallbackRepo)(nil)

// --- anomalies ---

type memAnomalyRepo struct {
	mu        sync.Mutex
	anomalies []model.Anomaly
}

func newMemAnomalyRepo() *memAnomalyRepo { return &memAnomalyRepo{} }

func (r *memAnomalyRepo) snapshot() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Anomaly(nil), r.anomalies...)
}

func (r *memAnomalyRepo) restore(s interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = s.([]model.Anomaly)
}

func (r *memAnomalyRepo) Save(_ context.Context, _ repository.Tx, a *model.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, *a)
	return nil
}

func (r *memAnomalyRepo) Exists(_ context.Context, _ repository.Tx, kind model.AnomalyKind, orderNo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.anomalies {
		if a.Kind == kind && a.OrderNo == orderNo && a.ResolvedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAnomalyRepo) ListUnresolved(_ context.Context, _ repository.Tx, limit int) ([]*model.Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Anomaly
	for i := range r.anomalies {
		if r.anomalies[i].ResolvedAt == nil {
			cp := r.anomalies[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memAnomalyRepo) byKind(kind model.AnomalyKind) []model.Anomaly {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Anomaly
	for _, a := range r.anomalies {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

var _ repository.AnomalyRepository = (*memAnomalyRepo)(nil)

// --- reminder log ---

type memReminderLogRepo struct {
	mu   sync.Mutex
	sent map[string]bool
}

func newMemReminderLogRepo() *memReminderLogRepo {
	return &memReminderLogRepo{sent: make(map[string]bool)}
}

func reminderKey(userID, kind string, thresholdDays int, period string) string {
	return fmt.Sprintf("%s|%s|%d|%s", userID, kind, thresholdDays, period)
}

func (r *memReminderLogRepo) Save(_ context.Context, _ repository.Tx, userID, kind string, thresholdDays int, period string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[reminderKey(userID, kind, thresholdDays, period)] = true
	return nil
}

func (r *memReminderLogRepo) Exists(_ context.Context, _ repository.Tx, userID, kind string, thresholdDays int, period string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[reminderKey(userID, kind, thresholdDays, period)], nil
}

var _ repository.ReminderLogRepository = (*memReminderLogRepo)(nil)

// --- notifier ---

type memNotifier struct {
	mu       sync.Mutex
	messages []string
	failErr  error
}

func (n *memNotifier) Notify(_ context.Context, userID, message string) error {
	if n.failErr != nil {
		return n.failErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, userID+": "+message)
	return nil
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}
