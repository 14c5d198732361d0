package sales

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/cashsession"
	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/partner"
	salesdomain "github.com/pos/backend/internal/domain/sales"
	"github.com/pos/backend/internal/domain/shared"
)

// fakeStore is an in-memory backing store with transactional semantics:
// an Execute either commits all staged writes or none of them.
// Transactions are serialized by the store mutex.
type fakeStore struct {
	mu        sync.Mutex
	variants  map[uuid.UUID]catalog.ProductVariant
	customers map[uuid.UUID]partner.Customer
	balances  []partner.BalanceEntry
	sales     map[uuid.UUID]salesdomain.Sale
	returns   map[uuid.UUID]salesdomain.ReturnRecord
	cells     map[string]inventory.StockCell
	history   []inventory.StockHistoryEntry
	sessions  map[uuid.UUID]cashsession.CashSession
	failSaves int // SaveWithLock conflicts to inject before succeeding
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variants:  make(map[uuid.UUID]catalog.ProductVariant),
		customers: make(map[uuid.UUID]partner.Customer),
		sales:     make(map[uuid.UUID]salesdomain.Sale),
		returns:   make(map[uuid.UUID]salesdomain.ReturnRecord),
		cells:     make(map[string]inventory.StockCell),
		sessions:  make(map[uuid.UUID]cashsession.CashSession),
	}
}

func cellKey(tenantID, variantID, storeID uuid.UUID) string {
	return tenantID.String() + "/" + variantID.String() + "/" + storeID.String()
}

func cloneSale(s salesdomain.Sale) salesdomain.Sale {
	s.Items = append([]salesdomain.SaleItem(nil), s.Items...)
	s.Installments = append([]salesdomain.Installment(nil), s.Installments...)
	return s
}

func cloneReturn(r salesdomain.ReturnRecord) salesdomain.ReturnRecord {
	r.Lines = append([]salesdomain.ReturnLine(nil), r.Lines...)
	return r
}

func cloneSession(s cashsession.CashSession) cashsession.CashSession {
	s.Entries = append([]cashsession.CashEntry(nil), s.Entries...)
	return s
}

type fakeScope struct {
	store *fakeStore
}

func (s *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	tx := &fakeTx{
		store:     s.store,
		variants:  make(map[uuid.UUID]catalog.ProductVariant, len(s.store.variants)),
		customers: make(map[uuid.UUID]partner.Customer, len(s.store.customers)),
		balances:  append([]partner.BalanceEntry(nil), s.store.balances...),
		sales:     make(map[uuid.UUID]salesdomain.Sale, len(s.store.sales)),
		returns:   make(map[uuid.UUID]salesdomain.ReturnRecord, len(s.store.returns)),
		cells:     make(map[string]inventory.StockCell, len(s.store.cells)),
		history:   append([]inventory.StockHistoryEntry(nil), s.store.history...),
		sessions:  make(map[uuid.UUID]cashsession.CashSession, len(s.store.sessions)),
	}
	for k, v := range s.store.variants {
		tx.variants[k] = v
	}
	for k, v := range s.store.customers {
		tx.customers[k] = v
	}
	for k, v := range s.store.sales {
		tx.sales[k] = cloneSale(v)
	}
	for k, v := range s.store.returns {
		tx.returns[k] = cloneReturn(v)
	}
	for k, v := range s.store.cells {
		tx.cells[k] = v
	}
	for k, v := range s.store.sessions {
		tx.sessions[k] = cloneSession(v)
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.store.variants = tx.variants
	s.store.customers = tx.customers
	s.store.balances = tx.balances
	s.store.sales = tx.sales
	s.store.returns = tx.returns
	s.store.cells = tx.cells
	s.store.history = tx.history
	s.store.sessions = tx.sessions
	return nil
}

type fakeTx struct {
	store     *fakeStore
	variants  map[uuid.UUID]catalog.ProductVariant
	customers map[uuid.UUID]partner.Customer
	balances  []partner.BalanceEntry
	sales     map[uuid.UUID]salesdomain.Sale
	returns   map[uuid.UUID]salesdomain.ReturnRecord
	cells     map[string]inventory.StockCell
	history   []inventory.StockHistoryEntry
	sessions  map[uuid.UUID]cashsession.CashSession
}

func (t *fakeTx) SaleRepo() salesdomain.SaleRepository            { return (*fakeSaleRepo)(t) }
func (t *fakeTx) ReturnRepo() salesdomain.ReturnRecordRepository  { return (*fakeReturnRepo)(t) }
func (t *fakeTx) CellRepo() inventory.StockCellRepository         { return (*fakeCellRepo)(t) }
func (t *fakeTx) HistoryRepo() inventory.StockHistoryRepository   { return (*fakeHistoryRepo)(t) }
func (t *fakeTx) CustomerRepo() partner.CustomerRepository        { return (*fakeCustomerRepo)(t) }
func (t *fakeTx) BalanceRepo() partner.BalanceEntryRepository     { return (*fakeBalanceRepo)(t) }
func (t *fakeTx) SessionRepo() cashsession.CashSessionRepository  { return (*fakeSessionRepo)(t) }
func (t *fakeTx) VariantRepo() catalog.ProductVariantRepository   { return (*fakeVariantRepo)(t) }

func (t *fakeTx) lockConflict() bool {
	if t.store.failSaves > 0 {
		t.store.failSaves--
		return true
	}
	return false
}

type fakeSaleRepo fakeTx

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*salesdomain.Sale, error) {
	if s, ok := r.sales[id]; ok {
		c := cloneSale(s)
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSaleRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*salesdomain.Sale, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil || s.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeSaleRepo) FindByReceiptNumber(_ context.Context, tenantID uuid.UUID, receiptNumber string) (*salesdomain.Sale, error) {
	for _, s := range r.sales {
		if s.TenantID == tenantID && s.ReceiptNumber == receiptNumber {
			c := cloneSale(s)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSaleRepo) FindByCustomer(_ context.Context, tenantID, customerID uuid.UUID, _ shared.Filter) ([]salesdomain.Sale, error) {
	var out []salesdomain.Sale
	for _, s := range r.sales {
		if s.TenantID == tenantID && s.CustomerID != nil && *s.CustomerID == customerID {
			out = append(out, cloneSale(s))
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) FindByStore(_ context.Context, tenantID, storeID uuid.UUID, _ shared.Filter) ([]salesdomain.Sale, error) {
	var out []salesdomain.Sale
	for _, s := range r.sales {
		if s.TenantID == tenantID && s.StoreID == storeID {
			out = append(out, cloneSale(s))
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) FindNeedingReconciliation(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]salesdomain.Sale, error) {
	var out []salesdomain.Sale
	for _, s := range r.sales {
		if s.TenantID == tenantID && s.NeedsReconciliation {
			out = append(out, cloneSale(s))
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) Save(_ context.Context, sale *salesdomain.Sale) error {
	r.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (r *fakeSaleRepo) SaveWithLock(_ context.Context, sale *salesdomain.Sale) error {
	if (*fakeTx)(r).lockConflict() {
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.sales[sale.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if sale.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (r *fakeSaleRepo) CountForTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	for _, s := range r.sales {
		if s.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type fakeReturnRepo fakeTx

func (r *fakeReturnRepo) FindByID(_ context.Context, id uuid.UUID) (*salesdomain.ReturnRecord, error) {
	if rec, ok := r.returns[id]; ok {
		c := cloneReturn(rec)
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReturnRepo) FindBySale(_ context.Context, tenantID, saleID uuid.UUID) ([]salesdomain.ReturnRecord, error) {
	var out []salesdomain.ReturnRecord
	for _, rec := range r.returns {
		if rec.TenantID == tenantID && rec.SaleID == saleID {
			out = append(out, cloneReturn(rec))
		}
	}
	return out, nil
}

func (r *fakeReturnRepo) FindByStore(_ context.Context, tenantID, storeID uuid.UUID, _ shared.Filter) ([]salesdomain.ReturnRecord, error) {
	var out []salesdomain.ReturnRecord
	for _, rec := range r.returns {
		if rec.TenantID == tenantID && rec.StoreID == storeID {
			out = append(out, cloneReturn(rec))
		}
	}
	return out, nil
}

func (r *fakeReturnRepo) Save(_ context.Context, record *salesdomain.ReturnRecord) error {
	r.returns[record.ID] = cloneReturn(*record)
	return nil
}

type fakeCellRepo fakeTx

func (r *fakeCellRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockCell, error) {
	for _, cell := range r.cells {
		if cell.ID == id {
			c := cell
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCellRepo) FindByVariantAndStore(_ context.Context, tenantID, variantID, storeID uuid.UUID) (*inventory.StockCell, error) {
	if cell, ok := r.cells[cellKey(tenantID, variantID, storeID)]; ok {
		c := cell
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCellRepo) FindByVariant(_ context.Context, tenantID, variantID uuid.UUID) ([]inventory.StockCell, error) {
	var out []inventory.StockCell
	for _, cell := range r.cells {
		if cell.TenantID == tenantID && cell.VariantID == variantID {
			out = append(out, cell)
		}
	}
	return out, nil
}

func (r *fakeCellRepo) FindByStore(_ context.Context, tenantID, storeID uuid.UUID, _ shared.Filter) ([]inventory.StockCell, error) {
	var out []inventory.StockCell
	for _, cell := range r.cells {
		if cell.TenantID == tenantID && cell.StoreID == storeID {
			out = append(out, cell)
		}
	}
	return out, nil
}

func (r *fakeCellRepo) GetOrCreate(_ context.Context, tenantID, variantID, storeID uuid.UUID) (*inventory.StockCell, error) {
	key := cellKey(tenantID, variantID, storeID)
	if cell, ok := r.cells[key]; ok {
		c := cell
		return &c, nil
	}
	cell, err := inventory.NewStockCell(tenantID, variantID, storeID)
	if err != nil {
		return nil, err
	}
	r.cells[key] = *cell
	c := *cell
	return &c, nil
}

func (r *fakeCellRepo) Save(_ context.Context, cell *inventory.StockCell) error {
	r.cells[cellKey(cell.TenantID, cell.VariantID, cell.StoreID)] = *cell
	return nil
}

func (r *fakeCellRepo) SaveWithLock(_ context.Context, cell *inventory.StockCell) error {
	if (*fakeTx)(r).lockConflict() {
		return shared.ErrConcurrencyConflict
	}
	key := cellKey(cell.TenantID, cell.VariantID, cell.StoreID)
	stored, ok := r.cells[key]
	if !ok {
		return shared.ErrNotFound
	}
	if cell.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.cells[key] = *cell
	return nil
}

func (r *fakeCellRepo) SumQuantityByVariant(_ context.Context, tenantID, variantID uuid.UUID) (int, error) {
	total := 0
	for _, cell := range r.cells {
		if cell.TenantID == tenantID && cell.VariantID == variantID {
			total += cell.Quantity
		}
	}
	return total, nil
}

type fakeHistoryRepo fakeTx

func (r *fakeHistoryRepo) Append(_ context.Context, entry *inventory.StockHistoryEntry) error {
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeHistoryRepo) FindByCell(_ context.Context, tenantID, cellID uuid.UUID, _ shared.Filter) ([]inventory.StockHistoryEntry, error) {
	var out []inventory.StockHistoryEntry
	for _, e := range r.history {
		if e.TenantID == tenantID && e.StockCellID == cellID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) FindByVariant(_ context.Context, tenantID, variantID uuid.UUID, _ shared.Filter) ([]inventory.StockHistoryEntry, error) {
	var out []inventory.StockHistoryEntry
	for _, e := range r.history {
		if e.TenantID == tenantID && e.VariantID == variantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) CountByCell(_ context.Context, tenantID, cellID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range r.history {
		if e.TenantID == tenantID && e.StockCellID == cellID {
			n++
		}
	}
	return n, nil
}

type fakeCustomerRepo fakeTx

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	if c, ok := r.customers[id]; ok {
		cc := c
		return &cc, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	c, err := r.FindByID(ctx, id)
	if err != nil || c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *fakeCustomerRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*partner.Customer, error) {
	for _, c := range r.customers {
		if c.TenantID == tenantID && c.Code == code {
			cc := c
			return &cc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]partner.Customer, error) {
	var out []partner.Customer
	for _, c := range r.customers {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) SaveWithLock(_ context.Context, customer *partner.Customer) error {
	if (*fakeTx)(r).lockConflict() {
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.customers[customer.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if customer.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) CountForTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	for _, c := range r.customers {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type fakeBalanceRepo fakeTx

func (r *fakeBalanceRepo) Append(_ context.Context, entry *partner.BalanceEntry) error {
	r.balances = append(r.balances, *entry)
	return nil
}

func (r *fakeBalanceRepo) FindByCustomer(_ context.Context, tenantID, customerID uuid.UUID, _ shared.Filter) ([]partner.BalanceEntry, error) {
	var out []partner.BalanceEntry
	for _, e := range r.balances {
		if e.TenantID == tenantID && e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) FindBySale(_ context.Context, tenantID, saleID uuid.UUID) ([]partner.BalanceEntry, error) {
	var out []partner.BalanceEntry
	for _, e := range r.balances {
		if e.TenantID == tenantID && e.SaleID != nil && *e.SaleID == saleID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSessionRepo fakeTx

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*cashsession.CashSession, error) {
	if s, ok := r.sessions[id]; ok {
		c := cloneSession(s)
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*cashsession.CashSession, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil || s.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) FindOpenByStore(_ context.Context, tenantID, storeID uuid.UUID) (*cashsession.CashSession, error) {
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.StoreID == storeID && s.IsOpen() {
			c := cloneSession(s)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSessionRepo) FindByStore(_ context.Context, tenantID, storeID uuid.UUID, _ shared.Filter) ([]cashsession.CashSession, error) {
	var out []cashsession.CashSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.StoreID == storeID {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *cashsession.CashSession) error {
	r.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (r *fakeSessionRepo) SaveWithLock(_ context.Context, session *cashsession.CashSession) error {
	if (*fakeTx)(r).lockConflict() {
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.sessions[session.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if session.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.sessions[session.ID] = cloneSession(*session)
	return nil
}

type fakeVariantRepo fakeTx

func (r *fakeVariantRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	if v, ok := r.variants[id]; ok {
		vv := v
		return &vv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeVariantRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.ProductVariant, error) {
	v, err := r.FindByID(ctx, id)
	if err != nil || v.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return v, nil
}

func (r *fakeVariantRepo) FindBySKU(_ context.Context, tenantID uuid.UUID, sku string) (*catalog.ProductVariant, error) {
	for _, v := range r.variants {
		if v.TenantID == tenantID && v.SKU == sku {
			vv := v
			return &vv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeVariantRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.ProductVariant, error) {
	var out []catalog.ProductVariant
	for _, id := range ids {
		if v, ok := r.variants[id]; ok && v.TenantID == tenantID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVariantRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]catalog.ProductVariant, error) {
	var out []catalog.ProductVariant
	for _, v := range r.variants {
		if v.TenantID == tenantID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVariantRepo) Save(_ context.Context, variant *catalog.ProductVariant) error {
	r.variants[variant.ID] = *variant
	return nil
}

func (r *fakeVariantRepo) SaveWithLock(_ context.Context, variant *catalog.ProductVariant) error {
	if (*fakeTx)(r).lockConflict() {
		return shared.ErrConcurrencyConflict
	}
	stored, ok := r.variants[variant.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if variant.GetVersion() <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.variants[variant.ID] = *variant
	return nil
}

func (r *fakeVariantRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	var n int64
	for _, v := range r.variants {
		if v.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// fakeIdempotency remembers keys forever; good enough for tests.
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]bool)}
}

func (f *fakeIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *fakeIdempotency) Close() error { return nil }
