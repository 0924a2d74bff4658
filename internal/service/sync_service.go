package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// SyncService reconciles the local database with the replica using
// last-writer-wins. It only ever runs in the background or on explicit
// request; a failing replica never blocks a local operation.
type SyncService struct {
	loanRepo       domain.LoanRepository
	cycleRepo      domain.CycleRepository
	paymentRepo    domain.PaymentRepository
	workspaceRepo  domain.WorkspaceRepository
	replica        domain.ReplicaStore
	eventPublisher websocket.EventPublisher
	now            func() time.Time

	mu         sync.Mutex
	lastReport *domain.SyncReport
}

// NewSyncService creates a new SyncService
func NewSyncService(loanRepo domain.LoanRepository, cycleRepo domain.CycleRepository, paymentRepo domain.PaymentRepository, workspaceRepo domain.WorkspaceRepository, replica domain.ReplicaStore) *SyncService {
	return &SyncService{
		loanRepo:      loanRepo,
		cycleRepo:     cycleRepo,
		paymentRepo:   paymentRepo,
		workspaceRepo: workspaceRepo,
		replica:       replica,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *SyncService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SyncWorkspace reconciles one workspace with the replica.
//
// Pull phase: every remote record missing locally is adopted, and a remote
// loan with a newer updated_at overwrites the local one (remote wins ties
// go to the newer write, never to a merge). Push phase: everything the
// replica is missing or holds stale is written back.
func (s *SyncService) SyncWorkspace(workspaceID int32) (*domain.SyncReport, error) {
	snap, err := s.replica.Snapshot(workspaceID)
	if err != nil {
		return nil, err
	}

	report := &domain.SyncReport{}

	// Index local state once
	localLoans, err := s.loanRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	localCycles, err := s.cycleRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	localPayments, err := s.paymentRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}

	loanByID := make(map[uuid.UUID]*domain.Loan, len(localLoans))
	for _, loan := range localLoans {
		loanByID[loan.ID] = loan
	}
	cycleByID := make(map[uuid.UUID]*domain.Cycle, len(localCycles))
	for _, cycle := range localCycles {
		cycleByID[cycle.ID] = cycle
	}
	paymentByID := make(map[uuid.UUID]*domain.Payment, len(localPayments))
	for _, payment := range localPayments {
		paymentByID[payment.ID] = payment
	}

	remoteLoanByID := make(map[uuid.UUID]*domain.Loan, len(snap.Loans))
	remoteCycleByID := make(map[uuid.UUID]*domain.Cycle, len(snap.Cycles))
	remotePaymentByID := make(map[uuid.UUID]*domain.Payment, len(snap.Payments))

	// Pull: adopt remote records that are missing or newer
	for _, remote := range snap.Loans {
		remoteLoanByID[remote.ID] = remote
		local, exists := loanByID[remote.ID]
		if exists && !remote.UpdatedAt.After(local.UpdatedAt) {
			continue
		}
		if err := s.loanRepo.Upsert(remote); err != nil {
			log.Warn().Err(err).Str("loan_id", remote.ID.String()).Msg("Sync pull failed for loan")
			continue
		}
		report.PulledLoans++
	}

	for _, remote := range snap.Cycles {
		remoteCycleByID[remote.ID] = remote
		local, exists := cycleByID[remote.ID]
		// Cycles only ever move from active to completed, so the completed
		// side is the newer one
		if exists && !(local.Status == domain.CycleStatusActive && remote.Status == domain.CycleStatusCompleted) {
			continue
		}
		if err := s.cycleRepo.Upsert(remote); err != nil {
			log.Warn().Err(err).Str("cycle_id", remote.ID.String()).Msg("Sync pull failed for cycle")
			continue
		}
		report.PulledCycles++
	}

	for _, remote := range snap.Payments {
		remotePaymentByID[remote.ID] = remote
		// Payments are immutable: only missing ones need pulling
		if _, exists := paymentByID[remote.ID]; exists {
			continue
		}
		if err := s.paymentRepo.Upsert(remote); err != nil {
			log.Warn().Err(err).Str("payment_id", remote.ID.String()).Msg("Sync pull failed for payment")
			continue
		}
		report.PulledPayments++
	}

	// Push: send everything the replica is missing or holds stale
	for _, local := range localLoans {
		remote, exists := remoteLoanByID[local.ID]
		if exists && !local.UpdatedAt.After(remote.UpdatedAt) {
			continue
		}
		if err := s.replica.PushLoan(local); err != nil {
			log.Warn().Err(err).Str("loan_id", local.ID.String()).Msg("Sync push failed for loan")
			continue
		}
		report.PushedLoans++
	}

	for _, local := range localCycles {
		remote, exists := remoteCycleByID[local.ID]
		if exists && !(remote.Status == domain.CycleStatusActive && local.Status == domain.CycleStatusCompleted) {
			continue
		}
		if err := s.replica.PushCycle(local); err != nil {
			log.Warn().Err(err).Str("cycle_id", local.ID.String()).Msg("Sync push failed for cycle")
			continue
		}
		report.PushedCycles++
	}

	for _, local := range localPayments {
		if _, exists := remotePaymentByID[local.ID]; exists {
			continue
		}
		if err := s.replica.PushPayment(local); err != nil {
			log.Warn().Err(err).Str("payment_id", local.ID.String()).Msg("Sync push failed for payment")
			continue
		}
		report.PushedPayments++
	}

	report.CompletedAt = s.now().UTC()

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, websocket.ReplicaSynced(report))
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int("pulled_loans", report.PulledLoans).
		Int("pushed_loans", report.PushedLoans).
		Int("pulled_payments", report.PulledPayments).
		Int("pushed_payments", report.PushedPayments).
		Msg("Workspace sync completed")

	return report, nil
}

// LastReport returns the report of the most recent completed pass, or nil
// when none has run yet
func (s *SyncService) LastReport() *domain.SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// SyncAll reconciles every workspace. Per-workspace failures are logged and
// skipped so one bad workspace cannot stall the rest.
func (s *SyncService) SyncAll() {
	ids, err := s.workspaceRepo.GetAllIDs()
	if err != nil {
		log.Error().Err(err).Msg("Sync could not list workspaces")
		return
	}

	for _, id := range ids {
		if _, err := s.SyncWorkspace(id); err != nil {
			log.Warn().Err(err).Int32("workspace_id", id).Msg("Workspace sync failed")
		}
	}
}

// RunPeriodic reconciles all workspaces on a fixed interval until the
// context is cancelled. Run in a goroutine.
func (s *SyncService) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Replica sync started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Replica sync stopped")
			return
		case <-ticker.C:
			s.SyncAll()
		}
	}
}
