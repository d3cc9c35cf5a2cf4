package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/docstore/internal/domain"
)

// RecordRepository is the storage contract required by the record
// service. Getters follow a tri-state convention: a nil record with a
// nil error means the id does not exist.
type RecordRepository interface {
	CreateClient(ctx context.Context, input domain.ClientInput) (int64, error)
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateTaxReturn(ctx context.Context, input domain.TaxReturnInput) (int64, error)
	GetTaxReturn(ctx context.Context, id int64) (*domain.TaxReturn, error)
	ListTaxReturnsForClient(ctx context.Context, clientID int64) ([]domain.TaxReturn, error)
	ListTaxReturns(ctx context.Context, clientID *int64) ([]domain.TaxReturn, error)
}

// ErrInvalidInput marks request-level validation failures.
var ErrInvalidInput = errors.New("invalid input")

// RecordService validates inputs and delegates client and tax return
// persistence to the repository.
type RecordService struct {
	repo RecordRepository
}

// NewRecordService constructs a RecordService.
func NewRecordService(repo RecordRepository) *RecordService {
	return &RecordService{repo: repo}
}

// CreateClient persists a new client and returns the assigned id.
// All string fields are stored verbatim.
func (s *RecordService) CreateClient(ctx context.Context, input domain.ClientInput) (int64, error) {
	if input.FirstName == "" && input.LastName == "" {
		return 0, fmt.Errorf("%w: a client name is required", ErrInvalidInput)
	}
	return s.repo.CreateClient(ctx, input)
}

// GetClient fetches one client; (nil, nil) when absent.
func (s *RecordService) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns all clients.
func (s *RecordService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.repo.ListClients(ctx)
}

// CreateTaxReturn persists a new tax return. The referenced client
// must exist; storage.ErrClientNotFound propagates otherwise. Nil
// category mappings default to empty.
func (s *RecordService) CreateTaxReturn(ctx context.Context, input domain.TaxReturnInput) (int64, error) {
	if input.ClientID <= 0 {
		return 0, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	if input.TaxYear <= 0 {
		return 0, fmt.Errorf("%w: tax_year is required", ErrInvalidInput)
	}
	if input.IncomeSources == nil {
		input.IncomeSources = map[string]float64{}
	}
	if input.Deductions == nil {
		input.Deductions = map[string]float64{}
	}
	if input.Credits == nil {
		input.Credits = map[string]float64{}
	}
	return s.repo.CreateTaxReturn(ctx, input)
}

// GetTaxReturn fetches one tax return; (nil, nil) when absent.
func (s *RecordService) GetTaxReturn(ctx context.Context, id int64) (*domain.TaxReturn, error) {
	return s.repo.GetTaxReturn(ctx, id)
}

// ListTaxReturns returns tax returns, optionally filtered to one
// client. The filtered listing is ordered by tax year descending.
func (s *RecordService) ListTaxReturns(ctx context.Context, clientID *int64) ([]domain.TaxReturn, error) {
	return s.repo.ListTaxReturns(ctx, clientID)
}

// ListTaxReturnsForClient returns one client's tax returns ordered by
// tax year descending.
func (s *RecordService) ListTaxReturnsForClient(ctx context.Context, clientID int64) ([]domain.TaxReturn, error) {
	return s.repo.ListTaxReturnsForClient(ctx, clientID)
}
