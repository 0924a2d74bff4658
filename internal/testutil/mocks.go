package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// MockTx is a stand-in pgx.Tx for exercising transactional service paths
// against in-memory repositories. Only Commit and Rollback are implemented;
// the mocks never touch the other methods.
type MockTx struct {
	pgx.Tx
	Committed  bool
	RolledBack bool
}

// Commit marks the transaction committed
func (t *MockTx) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

// Rollback marks the transaction rolled back unless already committed
func (t *MockTx) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTxBeginner hands out MockTx transactions
type MockTxBeginner struct {
	LastTx   *MockTx
	BeginErr error
}

// Begin returns a new MockTx
func (m *MockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	m.LastTx = &MockTx{}
	return m.LastTx, nil
}

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans     map[uuid.UUID]*domain.Loan
	CreateErr error
	UpdateErr error
	UpsertErr error
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{Loans: make(map[uuid.UUID]*domain.Loan)}
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	m.Loans[loan.ID] = loan
}

// Create creates a new loan
func (m *MockLoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	now := time.Now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	m.Loans[loan.ID] = loan
	return loan, nil
}

// CreateTx creates a new loan, ignoring the transaction
func (m *MockLoanRepository) CreateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	return m.Create(loan)
}

// GetByID retrieves a loan by ID within a workspace
func (m *MockLoanRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.Loan, error) {
	if loan, ok := m.Loans[id]; ok && loan.WorkspaceID == workspaceID {
		return loan, nil
	}
	return nil, domain.ErrLoanNotFound
}

// GetAllByWorkspace retrieves all loans for a workspace
func (m *MockLoanRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Loan, error) {
	loans := []*domain.Loan{}
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID {
			loans = append(loans, loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].CreatedAt.After(loans[j].CreatedAt) })
	return loans, nil
}

// GetByStatus retrieves loans with the given persisted status
func (m *MockLoanRepository) GetByStatus(workspaceID int32, status string) ([]*domain.Loan, error) {
	loans := []*domain.Loan{}
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID && loan.Status == status {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

// SearchByClientName retrieves loans whose client name contains the term
func (m *MockLoanRepository) SearchByClientName(workspaceID int32, term string) ([]*domain.Loan, error) {
	loans := []*domain.Loan{}
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID &&
			strings.Contains(strings.ToLower(loan.ClientName), strings.ToLower(term)) {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

// Update updates an existing loan
func (m *MockLoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	if _, ok := m.Loans[loan.ID]; !ok {
		return nil, domain.ErrLoanNotFound
	}
	loan.UpdatedAt = time.Now().UTC()
	m.Loans[loan.ID] = loan
	return loan, nil
}

// UpdateTx updates a loan, ignoring the transaction
func (m *MockLoanRepository) UpdateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	return m.Update(loan)
}

// Upsert writes a loan record as-is
func (m *MockLoanRepository) Upsert(loan *domain.Loan) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.Loans[loan.ID] = loan
	return nil
}

// DeleteTx removes a loan, ignoring the transaction
func (m *MockLoanRepository) DeleteTx(tx interface{}, workspaceID int32, id uuid.UUID) error {
	if loan, ok := m.Loans[id]; ok && loan.WorkspaceID == workspaceID {
		delete(m.Loans, id)
		return nil
	}
	return domain.ErrLoanNotFound
}

// MockCycleRepository is a mock implementation of domain.CycleRepository
type MockCycleRepository struct {
	Cycles    map[uuid.UUID]*domain.Cycle
	CreateErr error
	CloseErr  error
}

// NewMockCycleRepository creates a new MockCycleRepository
func NewMockCycleRepository() *MockCycleRepository {
	return &MockCycleRepository{Cycles: make(map[uuid.UUID]*domain.Cycle)}
}

// AddCycle adds a cycle to the mock repository (helper for tests)
func (m *MockCycleRepository) AddCycle(cycle *domain.Cycle) {
	m.Cycles[cycle.ID] = cycle
}

// Create creates a new cycle
func (m *MockCycleRepository) Create(cycle *domain.Cycle) (*domain.Cycle, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if cycle.ID == uuid.Nil {
		cycle.ID = uuid.New()
	}
	cycle.CreatedAt = time.Now().UTC()
	m.Cycles[cycle.ID] = cycle
	return cycle, nil
}

// CreateTx creates a new cycle, ignoring the transaction
func (m *MockCycleRepository) CreateTx(tx interface{}, cycle *domain.Cycle) (*domain.Cycle, error) {
	return m.Create(cycle)
}

// GetByID retrieves a cycle by ID
func (m *MockCycleRepository) GetByID(id uuid.UUID) (*domain.Cycle, error) {
	if cycle, ok := m.Cycles[id]; ok {
		return cycle, nil
	}
	return nil, domain.ErrCycleNotFound
}

// GetByLoanID retrieves all cycles of a loan in cycle order
func (m *MockCycleRepository) GetByLoanID(loanID uuid.UUID) ([]*domain.Cycle, error) {
	cycles := []*domain.Cycle{}
	for _, cycle := range m.Cycles {
		if cycle.LoanID == loanID {
			cycles = append(cycles, cycle)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].CycleNumber < cycles[j].CycleNumber })
	return cycles, nil
}

// GetActiveByLoanID retrieves the active cycle of a loan
func (m *MockCycleRepository) GetActiveByLoanID(loanID uuid.UUID) (*domain.Cycle, error) {
	for _, cycle := range m.Cycles {
		if cycle.LoanID == loanID && cycle.Status == domain.CycleStatusActive {
			return cycle, nil
		}
	}
	return nil, domain.ErrCycleNotFound
}

// GetAllByWorkspace retrieves all cycles for a workspace
func (m *MockCycleRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Cycle, error) {
	cycles := []*domain.Cycle{}
	for _, cycle := range m.Cycles {
		if cycle.WorkspaceID == workspaceID {
			cycles = append(cycles, cycle)
		}
	}
	return cycles, nil
}

// CloseTx marks a cycle completed, ignoring the transaction
func (m *MockCycleRepository) CloseTx(tx interface{}, id uuid.UUID, endDate time.Time) error {
	if m.CloseErr != nil {
		return m.CloseErr
	}
	cycle, ok := m.Cycles[id]
	if !ok {
		return domain.ErrCycleNotFound
	}
	cycle.Status = domain.CycleStatusCompleted
	cycle.EndDate = &endDate
	return nil
}

// Upsert writes a cycle record as-is
func (m *MockCycleRepository) Upsert(cycle *domain.Cycle) error {
	m.Cycles[cycle.ID] = cycle
	return nil
}

// DeleteByLoanIDTx removes all cycles of a loan, ignoring the transaction
func (m *MockCycleRepository) DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error {
	for id, cycle := range m.Cycles {
		if cycle.LoanID == loanID {
			delete(m.Cycles, id)
		}
	}
	return nil
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository
type MockPaymentRepository struct {
	Payments  map[uuid.UUID]*domain.Payment
	CreateErr error
}

// NewMockPaymentRepository creates a new MockPaymentRepository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{Payments: make(map[uuid.UUID]*domain.Payment)}
}

// AddPayment adds a payment to the mock repository (helper for tests)
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.Payments[payment.ID] = payment
}

// CreateTx inserts a payment, ignoring the transaction
func (m *MockPaymentRepository) CreateTx(tx interface{}, payment *domain.Payment) (*domain.Payment, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now().UTC()
	m.Payments[payment.ID] = payment
	return payment, nil
}

// GetByID retrieves a payment by ID
func (m *MockPaymentRepository) GetByID(id uuid.UUID) (*domain.Payment, error) {
	if payment, ok := m.Payments[id]; ok {
		return payment, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// GetByLoanID retrieves all payments of a loan, newest first
func (m *MockPaymentRepository) GetByLoanID(loanID uuid.UUID) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	for _, payment := range m.Payments {
		if payment.LoanID == loanID {
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaymentDate.After(payments[j].PaymentDate) })
	return payments, nil
}

// GetByCycleID retrieves all payments recorded against a cycle
func (m *MockPaymentRepository) GetByCycleID(cycleID uuid.UUID) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	for _, payment := range m.Payments {
		if payment.CycleID == cycleID {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

// GetRecent retrieves the most recent payments across a workspace
func (m *MockPaymentRepository) GetRecent(workspaceID int32, limit int) ([]*domain.Payment, error) {
	payments, err := m.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaymentDate.After(payments[j].PaymentDate) })
	if len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

// GetAllByWorkspace retrieves all payments for a workspace
func (m *MockPaymentRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	for _, payment := range m.Payments {
		if payment.WorkspaceID == workspaceID {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

// SumAmountByType sums payment amounts of one type across a workspace
func (m *MockPaymentRepository) SumAmountByType(workspaceID int32, paymentType string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, payment := range m.Payments {
		if payment.WorkspaceID == workspaceID && payment.PaymentType == paymentType {
			sum = sum.Add(payment.Amount)
		}
	}
	return sum, nil
}

// Upsert writes a payment record as-is
func (m *MockPaymentRepository) Upsert(payment *domain.Payment) error {
	m.Payments[payment.ID] = payment
	return nil
}

// DeleteByLoanIDTx removes all payments of a loan, ignoring the transaction
func (m *MockPaymentRepository) DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error {
	for id, payment := range m.Payments {
		if payment.LoanID == loanID {
			delete(m.Payments, id)
		}
	}
	return nil
}

// MockWorkspaceRepository is a mock implementation of domain.WorkspaceRepository
type MockWorkspaceRepository struct {
	Workspaces    map[int32]*domain.Workspace
	ByUserAuth0ID map[string]*domain.Workspace
	NextID        int32
}

// NewMockWorkspaceRepository creates a new MockWorkspaceRepository
func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{
		Workspaces:    make(map[int32]*domain.Workspace),
		ByUserAuth0ID: make(map[string]*domain.Workspace),
		NextID:        1,
	}
}

// AddWorkspace adds a workspace to the mock repository (helper for tests)
func (m *MockWorkspaceRepository) AddWorkspace(ws *domain.Workspace, auth0ID string) {
	m.Workspaces[ws.ID] = ws
	m.ByUserAuth0ID[auth0ID] = ws
}

// GetByID retrieves a workspace by ID
func (m *MockWorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	if ws, ok := m.Workspaces[id]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetByUserAuth0ID retrieves a workspace by user's Auth0 ID
func (m *MockWorkspaceRepository) GetByUserAuth0ID(auth0ID string) (*domain.Workspace, error) {
	if ws, ok := m.ByUserAuth0ID[auth0ID]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetAllIDs lists every workspace ID
func (m *MockWorkspaceRepository) GetAllIDs() ([]int32, error) {
	ids := []int32{}
	for id := range m.Workspaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CreateForUser provisions a user and workspace
func (m *MockWorkspaceRepository) CreateForUser(auth0ID, email string, name *string) (*domain.Workspace, error) {
	wsName := email
	if name != nil && *name != "" {
		wsName = *name
	}
	ws := &domain.Workspace{
		ID:     m.NextID,
		UserID: uuid.New(),
		Name:   wsName,
	}
	m.NextID++
	m.Workspaces[ws.ID] = ws
	m.ByUserAuth0ID[auth0ID] = ws
	return ws, nil
}

// MockReplicaStore is a mock implementation of domain.ReplicaStore
type MockReplicaStore struct {
	Loans    map[uuid.UUID]*domain.Loan
	Cycles   map[uuid.UUID]*domain.Cycle
	Payments map[uuid.UUID]*domain.Payment

	SnapshotErr error
	PushErr     error
}

// NewMockReplicaStore creates a new MockReplicaStore
func NewMockReplicaStore() *MockReplicaStore {
	return &MockReplicaStore{
		Loans:    make(map[uuid.UUID]*domain.Loan),
		Cycles:   make(map[uuid.UUID]*domain.Cycle),
		Payments: make(map[uuid.UUID]*domain.Payment),
	}
}

// Snapshot pulls every record of a workspace
func (m *MockReplicaStore) Snapshot(workspaceID int32) (*domain.WorkspaceSnapshot, error) {
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	snap := &domain.WorkspaceSnapshot{
		Loans:    []*domain.Loan{},
		Cycles:   []*domain.Cycle{},
		Payments: []*domain.Payment{},
	}
	for _, loan := range m.Loans {
		if loan.WorkspaceID == workspaceID {
			snap.Loans = append(snap.Loans, loan)
		}
	}
	for _, cycle := range m.Cycles {
		if cycle.WorkspaceID == workspaceID {
			snap.Cycles = append(snap.Cycles, cycle)
		}
	}
	for _, payment := range m.Payments {
		if payment.WorkspaceID == workspaceID {
			snap.Payments = append(snap.Payments, payment)
		}
	}
	return snap, nil
}

// PushLoan writes a loan to the replica
func (m *MockReplicaStore) PushLoan(loan *domain.Loan) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Loans[loan.ID] = loan
	return nil
}

// PushCycle writes a cycle to the replica
func (m *MockReplicaStore) PushCycle(cycle *domain.Cycle) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Cycles[cycle.ID] = cycle
	return nil
}

// PushPayment writes a payment to the replica
func (m *MockReplicaStore) PushPayment(payment *domain.Payment) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Payments[payment.ID] = payment
	return nil
}

// DeleteLoan removes a loan and its dependent records from the replica
func (m *MockReplicaStore) DeleteLoan(workspaceID int32, id uuid.UUID) error {
	delete(m.Loans, id)
	for cid, cycle := range m.Cycles {
		if cycle.LoanID == id {
			delete(m.Cycles, cid)
		}
	}
	for pid, payment := range m.Payments {
		if payment.LoanID == id {
			delete(m.Payments, pid)
		}
	}
	return nil
}

// CapturingPublisher records every published event (helper for tests)
type CapturingPublisher struct {
	Events []websocket.Event
}

// Publish appends the event to the captured list
func (p *CapturingPublisher) Publish(workspaceID int32, event websocket.Event) {
	p.Events = append(p.Events, event)
}
