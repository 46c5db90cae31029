// Package postgrestest provides an in-memory postgres.Store for tests.
package postgrestest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/storefront/internal/postgres"
	"github.com/dukerupert/storefront/internal/repository"
)

// MemStore is an in-memory postgres.Store for unit tests. Transactions are
// serialized and a failed ExecTx restores the state it started from, so
// rollback behavior can be asserted without a database.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	clock      time.Time
	products   map[uuid.UUID]repository.Product
	cartLines  map[uuid.UUID]repository.CartLine
	settlement map[string]repository.OrderSettlement
	jobs       []repository.Job

	calls    map[string]int
	lockKeys []string

	errors map[string]error
}

var _ postgres.Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		clock:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		products:   make(map[uuid.UUID]repository.Product),
		cartLines:  make(map[uuid.UUID]repository.CartLine),
		settlement: make(map[string]repository.OrderSettlement),
		calls:      make(map[string]int),
		errors:     make(map[string]error),
	}
}

// ExecTx implements Store.
func (m *MemStore) ExecTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.calls["ExecTx"]++
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	products   map[uuid.UUID]repository.Product
	cartLines  map[uuid.UUID]repository.CartLine
	settlement map[string]repository.OrderSettlement
	jobs       []repository.Job
}

func (m *MemStore) snapshot() memSnapshot {
	s := memSnapshot{
		products:   make(map[uuid.UUID]repository.Product, len(m.products)),
		cartLines:  make(map[uuid.UUID]repository.CartLine, len(m.cartLines)),
		settlement: make(map[string]repository.OrderSettlement, len(m.settlement)),
		jobs:       slices.Clone(m.jobs),
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.cartLines {
		s.cartLines[k] = v
	}
	for k, v := range m.settlement {
		s.settlement[k] = v
	}
	return s
}

func (m *MemStore) restore(s memSnapshot) {
	m.products = s.products
	m.cartLines = s.cartLines
	m.settlement = s.settlement
	m.jobs = s.jobs
}

// FailOn makes the named method return err until ClearFailure is called.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method] = err
}

// ClearFailure undoes FailOn.
func (m *MemStore) ClearFailure(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errors, method)
}

// begin records the call and returns any injected error. Caller holds no lock.
func (m *MemStore) begin(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	return m.errors[name]
}

func (m *MemStore) tick() pgtype.Timestamptz {
	m.clock = m.clock.Add(time.Millisecond)
	return pgtype.Timestamptz{Time: m.clock, Valid: true}
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// AddProduct inserts a product with the given decimal price.
func (m *MemStore) AddProduct(name, category, price string) repository.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := repository.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Pictures:  []string{},
		CreatedAt: m.tick(),
	}
	m.products[p.ID] = p
	return p
}

// SetPrice changes a product's price.
func (m *MemStore) SetPrice(id uuid.UUID, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.products[id]
	p.Price = decimal.RequireFromString(price)
	m.products[id] = p
}

// DeleteProduct removes a product, leaving any cart lines that reference it.
func (m *MemStore) DeleteProduct(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// Product returns the current state of a product.
func (m *MemStore) Product(id uuid.UUID) repository.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

// CartLines returns user's lines ordered by creation.
func (m *MemStore) CartLines(user string) []repository.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linesFor(user)
}

// Settlement returns the record for a session, if any.
func (m *MemStore) Settlement(sessionRef string) (repository.OrderSettlement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlement[sessionRef]
	return s, ok
}

// Jobs returns all enqueued jobs.
func (m *MemStore) Jobs() []repository.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.jobs)
}

// Calls returns how many times a method ran.
func (m *MemStore) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// LockKeys returns every advisory lock key taken.
func (m *MemStore) LockKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lockKeys)
}

func (m *MemStore) linesFor(user string) []repository.CartLine {
	var lines []repository.CartLine
	for _, l := range m.cartLines {
		if l.UserEmail == user {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].CreatedAt.Time.Before(lines[j].CreatedAt.Time)
	})
	return lines
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *MemStore) GetProduct(ctx context.Context, id uuid.UUID) (repository.Product, error) {
	if err := m.begin("GetProduct"); err != nil {
		return repository.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *MemStore) CreateProduct(ctx context.Context, arg repository.CreateProductParams) (repository.Product, error) {
	if err := m.begin("CreateProduct"); err != nil {
		return repository.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := repository.Product{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Category:    arg.Category,
		Price:       arg.Price,
		Pictures:    arg.Pictures,
		CreatedAt:   m.tick(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *MemStore) ListProductsByCategory(ctx context.Context, arg repository.ListProductsByCategoryParams) ([]repository.Product, error) {
	if err := m.begin("ListProductsByCategory"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []repository.Product
	for _, p := range m.products {
		if p.Category == arg.Category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return limitProducts(out, arg.Limit), nil
}

func (m *MemStore) ListTopSellingProducts(ctx context.Context, limit int32) ([]repository.Product, error) {
	if err := m.begin("ListTopSellingProducts"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]repository.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QtySold != out[j].QtySold {
			return out[i].QtySold > out[j].QtySold
		}
		return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time)
	})
	return limitProducts(out, limit), nil
}

func limitProducts(ps []repository.Product, limit int32) []repository.Product {
	if limit >= 0 && int(limit) < len(ps) {
		return ps[:limit]
	}
	return ps
}

func (m *MemStore) IncrementProductQtySold(ctx context.Context, arg repository.IncrementProductQtySoldParams) (repository.Product, error) {
	if err := m.begin("IncrementProductQtySold"); err != nil {
		return repository.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[arg.ID]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	p.QtySold += arg.Quantity
	m.products[arg.ID] = p
	return p, nil
}

// =============================================================================
// CART
// =============================================================================

func (m *MemStore) UpsertCartLine(ctx context.Context, arg repository.UpsertCartLineParams) (repository.CartLine, error) {
	if err := m.begin("UpsertCartLine"); err != nil {
		return repository.CartLine{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, l := range m.cartLines {
		if l.UserEmail == arg.UserEmail && l.ProductID == arg.ProductID {
			l.Quantity = arg.Quantity
			l.UpdatedAt = m.tick()
			m.cartLines[id] = l
			return l, nil
		}
	}

	now := m.tick()
	l := repository.CartLine{
		ID:        uuid.New(),
		UserEmail: arg.UserEmail,
		ProductID: arg.ProductID,
		Quantity:  arg.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.cartLines[l.ID] = l
	return l, nil
}

func (m *MemStore) GetCartLine(ctx context.Context, arg repository.GetCartLineParams) (repository.CartLine, error) {
	if err := m.begin("GetCartLine"); err != nil {
		return repository.CartLine{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.cartLines[arg.ID]
	if !ok || l.UserEmail != arg.UserEmail {
		return repository.CartLine{}, pgx.ErrNoRows
	}
	return l, nil
}

func (m *MemStore) UpdateCartLineQuantity(ctx context.Context, arg repository.UpdateCartLineQuantityParams) (repository.CartLine, error) {
	if err := m.begin("UpdateCartLineQuantity"); err != nil {
		return repository.CartLine{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.cartLines[arg.ID]
	if !ok || l.UserEmail != arg.UserEmail {
		return repository.CartLine{}, pgx.ErrNoRows
	}
	l.Quantity = arg.Quantity
	l.UpdatedAt = m.tick()
	m.cartLines[arg.ID] = l
	return l, nil
}

func (m *MemStore) DeleteCartLine(ctx context.Context, arg repository.DeleteCartLineParams) (int64, error) {
	if err := m.begin("DeleteCartLine"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.cartLines[arg.ID]
	if !ok || l.UserEmail != arg.UserEmail {
		return 0, nil
	}
	delete(m.cartLines, arg.ID)
	return 1, nil
}

func (m *MemStore) ClearCart(ctx context.Context, userEmail string) (int64, error) {
	if err := m.begin("ClearCart"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, l := range m.cartLines {
		if l.UserEmail == userEmail {
			delete(m.cartLines, id)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) ListCartItems(ctx context.Context, userEmail string) ([]repository.ListCartItemsRow, error) {
	if err := m.begin("ListCartItems"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.linesFor(userEmail)
	slices.Reverse(lines)

	rows := make([]repository.ListCartItemsRow, 0, len(lines))
	for _, l := range lines {
		row := repository.ListCartItemsRow{
			LineID:    l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			CreatedAt: l.CreatedAt,
		}
		if p, ok := m.products[l.ProductID]; ok {
			row.ProductName = pgtype.Text{String: p.Name, Valid: true}
			row.ProductPrice = decimal.NullDecimal{Decimal: p.Price, Valid: true}
			row.ProductPictures = p.Pictures
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MemStore) ListCartLinesForUpdate(ctx context.Context, userEmail string) ([]repository.CartLine, error) {
	if err := m.begin("ListCartLinesForUpdate"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linesFor(userEmail), nil
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

func (m *MemStore) CreateSettlement(ctx context.Context, arg repository.CreateSettlementParams) (repository.OrderSettlement, error) {
	if err := m.begin("CreateSettlement"); err != nil {
		return repository.OrderSettlement{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.settlement[arg.SessionRef]; exists {
		return repository.OrderSettlement{}, pgx.ErrNoRows
	}

	now := m.tick()
	s := repository.OrderSettlement{
		ID:         uuid.New(),
		UserEmail:  arg.UserEmail,
		SessionRef: arg.SessionRef,
		Status:     arg.Status,
		Lines:      arg.Lines,
		Subtotal:   arg.Subtotal,
		Currency:   arg.Currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.settlement[arg.SessionRef] = s
	return s, nil
}

func (m *MemStore) GetSettlementBySessionRef(ctx context.Context, sessionRef string) (repository.OrderSettlement, error) {
	if err := m.begin("GetSettlementBySessionRef"); err != nil {
		return repository.OrderSettlement{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settlement[sessionRef]
	if !ok {
		return repository.OrderSettlement{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *MemStore) GetSettlementBySessionRefForUpdate(ctx context.Context, sessionRef string) (repository.OrderSettlement, error) {
	if err := m.begin("GetSettlementBySessionRefForUpdate"); err != nil {
		return repository.OrderSettlement{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settlement[sessionRef]
	if !ok {
		return repository.OrderSettlement{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *MemStore) ConfirmSettlement(ctx context.Context, id uuid.UUID) (repository.OrderSettlement, error) {
	if err := m.begin("ConfirmSettlement"); err != nil {
		return repository.OrderSettlement{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for ref, s := range m.settlement {
		if s.ID != id || s.Status != "pending" {
			continue
		}
		now := m.tick()
		s.Status = "confirmed"
		s.SettledAt = now
		s.UpdatedAt = now
		m.settlement[ref] = s
		return s, nil
	}
	return repository.OrderSettlement{}, pgx.ErrNoRows
}

func (m *MemStore) MarkSettlementFailed(ctx context.Context, sessionRef string) (int64, error) {
	if err := m.begin("MarkSettlementFailed"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settlement[sessionRef]
	if !ok || s.Status != "pending" {
		return 0, nil
	}
	s.Status = "failed"
	s.UpdatedAt = m.tick()
	m.settlement[sessionRef] = s
	return 1, nil
}

func (m *MemStore) GetLatestFailedSettlementRef(ctx context.Context, userEmail string) (string, error) {
	if err := m.begin("GetLatestFailedSettlementRef"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *repository.OrderSettlement
	for _, s := range m.settlement {
		if s.UserEmail != userEmail || s.Status != "failed" {
			continue
		}
		if latest == nil || s.UpdatedAt.Time.After(latest.UpdatedAt.Time) {
			latest = &s
		}
	}
	if latest == nil {
		return "", pgx.ErrNoRows
	}
	return latest.SessionRef, nil
}

func (m *MemStore) AcquireSettlementLock(ctx context.Context, lockKey string) error {
	if err := m.begin("AcquireSettlementLock"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockKeys = append(m.lockKeys, lockKey)
	return nil
}

// =============================================================================
// JOBS
// =============================================================================

func (m *MemStore) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	if err := m.begin("EnqueueJob"); err != nil {
		return repository.Job{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	j := repository.Job{
		ID:             uuid.New(),
		JobType:        arg.JobType,
		Payload:        arg.Payload,
		Status:         "pending",
		MaxRetries:     arg.MaxRetries,
		TimeoutSeconds: arg.TimeoutSeconds,
		RunAt:          now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.jobs = append(m.jobs, j)
	return j, nil
}

func (m *MemStore) ClaimNextJob(ctx context.Context, workerID pgtype.Text) (repository.Job, error) {
	if err := m.begin("ClaimNextJob"); err != nil {
		return repository.Job{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, j := range m.jobs {
		if j.Status != "pending" || j.RunAt.Time.After(m.clock) {
			continue
		}
		j.Status = "running"
		j.WorkerID = workerID
		j.UpdatedAt = m.tick()
		m.jobs[i] = j
		return j, nil
	}
	return repository.Job{}, pgx.ErrNoRows
}

func (m *MemStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	if err := m.begin("CompleteJob"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, j := range m.jobs {
		if j.ID == id {
			j.Status = "completed"
			j.UpdatedAt = m.tick()
			m.jobs[i] = j
		}
	}
	return nil
}

func (m *MemStore) FailJob(ctx context.Context, arg repository.FailJobParams) (repository.Job, error) {
	if err := m.begin("FailJob"); err != nil {
		return repository.Job{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, j := range m.jobs {
		if j.ID != arg.ID {
			continue
		}
		j.RetryCount++
		j.LastError = arg.LastError
		j.WorkerID = pgtype.Text{}
		j.Status = "pending"
		if j.RetryCount >= j.MaxRetries {
			j.Status = "failed"
		}
		j.RunAt = pgtype.Timestamptz{Time: m.clock.Add(time.Duration(1<<j.RetryCount) * time.Second), Valid: true}
		j.UpdatedAt = m.tick()
		m.jobs[i] = j
		return j, nil
	}
	return repository.Job{}, pgx.ErrNoRows
}

// JobsOfType filters Jobs by type prefix.
func (m *MemStore) JobsOfType(prefix string) []repository.Job {
	var out []repository.Job
	for _, j := range m.Jobs() {
		if strings.HasPrefix(j.JobType, prefix) {
			out = append(out, j)
		}
	}
	return out
}
