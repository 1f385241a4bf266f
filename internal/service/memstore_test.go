package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// memStore is an in-memory domain.LedgerStore. Transactions are fully
// serialized and a failed transaction restores the state it started from,
// which is enough to exercise the services' atomicity and ordering rules.
type memStore struct {
	mu   sync.Mutex
	data *memData

	// fail, when set, is consulted before every tx write. Returning an
	// error aborts that write.
	fail func(op string) error

	txCount int
}

type memData struct {
	users         map[uuid.UUID]domain.User
	clients       map[uuid.UUID]domain.Client
	charges       map[uuid.UUID]domain.UnpaidAmount
	invoices      map[uuid.UUID]domain.Invoice
	items         map[uuid.UUID][]domain.InvoiceItem
	reminders     map[uuid.UUID][]domain.InvoiceReminder
	paymentEvents map[string]domain.PaymentEvent
	seq           int64
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		users:         map[uuid.UUID]domain.User{},
		clients:       map[uuid.UUID]domain.Client{},
		charges:       map[uuid.UUID]domain.UnpaidAmount{},
		invoices:      map[uuid.UUID]domain.Invoice{},
		items:         map[uuid.UUID][]domain.InvoiceItem{},
		reminders:     map[uuid.UUID][]domain.InvoiceReminder{},
		paymentEvents: map[string]domain.PaymentEvent{},
	}}
}

func (d *memData) clone() *memData {
	cp := &memData{
		users:         make(map[uuid.UUID]domain.User, len(d.users)),
		clients:       make(map[uuid.UUID]domain.Client, len(d.clients)),
		charges:       make(map[uuid.UUID]domain.UnpaidAmount, len(d.charges)),
		invoices:      make(map[uuid.UUID]domain.Invoice, len(d.invoices)),
		items:         make(map[uuid.UUID][]domain.InvoiceItem, len(d.items)),
		reminders:     make(map[uuid.UUID][]domain.InvoiceReminder, len(d.reminders)),
		paymentEvents: make(map[string]domain.PaymentEvent, len(d.paymentEvents)),
		seq:           d.seq,
	}
	for k, v := range d.users {
		cp.users[k] = v
	}
	for k, v := range d.clients {
		cp.clients[k] = v
	}
	for k, v := range d.charges {
		cp.charges[k] = v
	}
	for k, v := range d.invoices {
		cp.invoices[k] = v
	}
	for k, v := range d.items {
		cp.items[k] = append([]domain.InvoiceItem(nil), v...)
	}
	for k, v := range d.reminders {
		cp.reminders[k] = append([]domain.InvoiceReminder(nil), v...)
	}
	for k, v := range d.paymentEvents {
		cp.paymentEvents[k] = v
	}
	return cp
}

// stamp returns a strictly increasing timestamp for created_at columns.
func (d *memData) stamp() time.Time {
	d.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(d.seq) * time.Second)
}

// ---------------------------------------------------------------------------
// Seeding and inspection helpers
// ---------------------------------------------------------------------------

func (s *memStore) addUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.data.users[u.ID] = u
	return u
}

func (s *memStore) addClient(userID uuid.UUID, name string) domain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Client{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Email:     "billing@" + name + ".test",
		CreatedAt: s.data.stamp(),
	}
	s.data.clients[c.ID] = c
	return c
}

func (s *memStore) addCharge(ua domain.UnpaidAmount) domain.UnpaidAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	if ua.Status == "" {
		ua.Status = domain.UnpaidAmountStatusUnpaid
	}
	if ua.IssueDate.IsZero() {
		ua.IssueDate = s.data.stamp()
	}
	ua.CreatedAt = s.data.stamp()
	s.data.charges[ua.ID] = ua
	return ua
}

func (s *memStore) charge(id uuid.UUID) domain.UnpaidAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.charges[id]
}

func (s *memStore) invoice(id uuid.UUID) domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.invoices[id]
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.invoices)
}

func (s *memStore) paymentEventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.paymentEvents)
}

// ---------------------------------------------------------------------------
// domain.LedgerStore
// ---------------------------------------------------------------------------

func (s *memStore) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	snapshot := s.data.clone()
	if err := fn(&memTx{store: s, data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) reader() *memTx {
	return &memTx{store: s, data: s.data}
}

func (s *memStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().GetUser(ctx, id)
}

func (s *memStore) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().GetClient(ctx, id)
}

func (s *memStore) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().GetInvoice(ctx, id)
}

func (s *memStore) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListInvoiceItems(ctx, invoiceID)
}

func (s *memStore) ListInvoicesByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListInvoicesByClient(ctx, clientID)
}

func (s *memStore) GetUnpaidAmount(ctx context.Context, id uuid.UUID) (*domain.UnpaidAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().GetUnpaidAmount(ctx, id)
}

func (s *memStore) ListUnpaidAmounts(ctx context.Context, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListUnpaidAmounts(ctx, clientID, status)
}

func (s *memStore) ListReminders(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader().ListReminders(ctx, invoiceID)
}

// ---------------------------------------------------------------------------
// domain.LedgerTx
// ---------------------------------------------------------------------------

// memTx runs with store.mu already held.
type memTx struct {
	store *memStore
	data  *memData
}

func (t *memTx) check(op string) error {
	if t.store.fail != nil {
		return t.store.fail(op)
	}
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (t *memTx) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	c, ok := t.data.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return &c, nil
}

func (t *memTx) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, ok := t.data.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	inv.UserID = t.data.clients[inv.ClientID].UserID
	return &inv, nil
}

func (t *memTx) LockInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	return t.GetInvoice(ctx, id)
}

func (t *memTx) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	return append([]domain.InvoiceItem(nil), t.data.items[invoiceID]...), nil
}

func (t *memTx) ListInvoicesByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range t.data.invoices {
		if inv.ClientID == clientID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) GetUnpaidAmount(ctx context.Context, id uuid.UUID) (*domain.UnpaidAmount, error) {
	ua, ok := t.data.charges[id]
	if !ok {
		return nil, domain.ErrUnpaidAmountNotFound
	}
	return &ua, nil
}

func (t *memTx) LockUnpaidAmount(ctx context.Context, id uuid.UUID) (*domain.UnpaidAmount, error) {
	return t.GetUnpaidAmount(ctx, id)
}

func (t *memTx) ListUnpaidAmounts(ctx context.Context, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
	var out []domain.UnpaidAmount
	for _, ua := range t.data.charges {
		if ua.ClientID != clientID {
			continue
		}
		if status != nil && ua.Status != *status {
			continue
		}
		out = append(out, ua)
	}
	sortCharges(out)
	return out, nil
}

func (t *memTx) ListReminders(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error) {
	out := append([]domain.InvoiceReminder(nil), t.data.reminders[invoiceID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (t *memTx) LockBillableUnpaidAmounts(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]domain.UnpaidAmount, error) {
	var out []domain.UnpaidAmount
	for _, id := range ids {
		ua, ok := t.data.charges[id]
		if ok && ua.ClientID == clientID && ua.Status == domain.UnpaidAmountStatusUnpaid {
			out = append(out, ua)
		}
	}
	sortCharges(out)
	return out, nil
}

func (t *memTx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	if err := t.check("InsertInvoice"); err != nil {
		return err
	}
	for _, existing := range t.data.invoices {
		if existing.Number == inv.Number {
			return domain.ErrInvoiceNumberTaken
		}
	}
	inv.CreatedAt = t.data.stamp()
	inv.UpdatedAt = inv.CreatedAt
	t.data.invoices[inv.ID] = *inv
	return nil
}

func (t *memTx) InsertInvoiceItems(ctx context.Context, items []domain.InvoiceItem) error {
	if err := t.check("InsertInvoiceItems"); err != nil {
		return err
	}
	for _, it := range items {
		t.data.items[it.InvoiceID] = append(t.data.items[it.InvoiceID], it)
	}
	return nil
}

func (t *memTx) MarkUnpaidAmountsInvoiced(ctx context.Context, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if err := t.check("MarkUnpaidAmountsInvoiced"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		ua, ok := t.data.charges[id]
		if !ok || ua.Status != domain.UnpaidAmountStatusUnpaid {
			continue
		}
		ua.Status = domain.UnpaidAmountStatusInvoiced
		inv := invoiceID
		ua.InvoiceID = &inv
		t.data.charges[id] = ua
		n++
	}
	return n, nil
}

func (t *memTx) MarkInvoiceSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	if err := t.check("MarkInvoiceSent"); err != nil {
		return false, err
	}
	inv, ok := t.data.invoices[id]
	if !ok || inv.Status != domain.InvoiceStatusDraft {
		return false, nil
	}
	inv.Status = domain.InvoiceStatusSent
	inv.SentAt = &sentAt
	t.data.invoices[id] = inv
	return true, nil
}

func (t *memTx) MarkInvoicePaid(ctx context.Context, p domain.Payment) (bool, error) {
	if err := t.check("MarkInvoicePaid"); err != nil {
		return false, err
	}
	inv, ok := t.data.invoices[p.InvoiceID]
	if !ok || inv.Status == domain.InvoiceStatusPaid {
		return false, nil
	}
	paidAt := p.PaidAt
	provider := p.Provider
	inv.Status = domain.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	inv.PaymentProvider = &provider
	if p.TransactionID != "" {
		txn := p.TransactionID
		inv.PaymentTransactionID = &txn
	}
	t.data.invoices[p.InvoiceID] = inv
	return true, nil
}

func (t *memTx) MarkInvoiceChargesPaid(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	if err := t.check("MarkInvoiceChargesPaid"); err != nil {
		return 0, err
	}
	var n int64
	for id, ua := range t.data.charges {
		if ua.InvoiceID == nil || *ua.InvoiceID != invoiceID || ua.Status == domain.UnpaidAmountStatusPaid {
			continue
		}
		ua.Status = domain.UnpaidAmountStatusPaid
		t.data.charges[id] = ua
		n++
	}
	return n, nil
}

func (t *memTx) InsertPaymentEvent(ctx context.Context, ev *domain.PaymentEvent) (bool, error) {
	if err := t.check("InsertPaymentEvent"); err != nil {
		return false, err
	}
	if _, ok := t.data.invoices[ev.InvoiceID]; !ok {
		return false, domain.ErrInvoiceNotFound
	}
	key := string(ev.Provider) + "/" + ev.EventID
	if _, ok := t.data.paymentEvents[key]; ok {
		return false, nil
	}
	t.data.paymentEvents[key] = *ev
	return true, nil
}

func (t *memTx) InsertUnpaidAmount(ctx context.Context, ua *domain.UnpaidAmount) error {
	if err := t.check("InsertUnpaidAmount"); err != nil {
		return err
	}
	ua.CreatedAt = t.data.stamp()
	ua.UpdatedAt = ua.CreatedAt
	t.data.charges[ua.ID] = *ua
	return nil
}

func (t *memTx) UpdateUnpaidAmount(ctx context.Context, ua *domain.UnpaidAmount) error {
	if err := t.check("UpdateUnpaidAmount"); err != nil {
		return err
	}
	t.data.charges[ua.ID] = *ua
	return nil
}

func (t *memTx) DeleteUnpaidAmount(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := t.check("DeleteUnpaidAmount"); err != nil {
		return false, err
	}
	ua, ok := t.data.charges[id]
	if !ok || ua.Status != domain.UnpaidAmountStatusUnpaid {
		return false, nil
	}
	delete(t.data.charges, id)
	return true, nil
}

func (t *memTx) InsertReminder(ctx context.Context, r *domain.InvoiceReminder) error {
	if err := t.check("InsertReminder"); err != nil {
		return err
	}
	t.data.reminders[r.InvoiceID] = append(t.data.reminders[r.InvoiceID], *r)
	return nil
}

func sortCharges(out []domain.UnpaidAmount) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
