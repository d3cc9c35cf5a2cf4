package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vanshika/docstore/internal/domain"
)

// MemoryStore is a simple in-memory implementation of the record
// repository used for unit testing handler and service logic without a
// database file. It mirrors the Store's contracts: tri-state getters,
// server-assigned ids and timestamps, referential integrity on tax
// return creation, and year-descending per-client listings.
type MemoryStore struct {
	mu           sync.Mutex
	clients      map[int64]domain.Client
	returns      map[int64]domain.TaxReturn
	nextClientID int64
	nextReturnID int64
	err          error
}

// NewMemoryStore instantiates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:      map[int64]domain.Client{},
		returns:      map[int64]domain.TaxReturn{},
		nextClientID: 1,
		nextReturnID: 1,
	}
}

// WithError configures the store to return the provided error for all
// subsequent calls.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) CreateClient(_ context.Context, input domain.ClientInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}

	now := time.Now().UTC()
	id := m.nextClientID
	m.nextClientID++
	m.clients[id] = domain.Client{
		ID:                   id,
		FirstName:            input.FirstName,
		LastName:             input.LastName,
		SocialSecurityNumber: input.SocialSecurityNumber,
		Address:              input.Address,
		PhoneNumber:          input.PhoneNumber,
		Email:                input.Email,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	return id, nil
}

func (m *MemoryStore) GetClient(_ context.Context, id int64) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	client, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &client, nil
}

func (m *MemoryStore) ListClients(_ context.Context) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	clients := make([]domain.Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (m *MemoryStore) CreateTaxReturn(_ context.Context, input domain.TaxReturnInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.clients[input.ClientID]; !ok {
		return 0, ErrClientNotFound
	}

	now := time.Now().UTC()
	id := m.nextReturnID
	m.nextReturnID++
	m.returns[id] = domain.TaxReturn{
		ID:                id,
		ClientID:          input.ClientID,
		TaxYear:           input.TaxYear,
		FilingStatus:      input.FilingStatus,
		IncomeSources:     cloneAmounts(input.IncomeSources),
		Deductions:        cloneAmounts(input.Deductions),
		Credits:           cloneAmounts(input.Credits),
		TaxesPaid:         input.TaxesPaid,
		TaxLiability:      input.TaxLiability,
		RefundOrAmountDue: input.RefundOrAmountDue,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return id, nil
}

func (m *MemoryStore) GetTaxReturn(_ context.Context, id int64) (*domain.TaxReturn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	ret, ok := m.returns[id]
	if !ok {
		return nil, nil
	}
	return &ret, nil
}

func (m *MemoryStore) ListTaxReturnsForClient(_ context.Context, clientID int64) ([]domain.TaxReturn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.returnsForClient(&clientID), nil
}

func (m *MemoryStore) ListTaxReturns(_ context.Context, clientID *int64) ([]domain.TaxReturn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.returnsForClient(clientID), nil
}

func (m *MemoryStore) returnsForClient(clientID *int64) []domain.TaxReturn {
	returns := []domain.TaxReturn{}
	for _, ret := range m.returns {
		if clientID != nil && ret.ClientID != *clientID {
			continue
		}
		returns = append(returns, ret)
	}
	sort.Slice(returns, func(i, j int) bool {
		if returns[i].TaxYear != returns[j].TaxYear {
			return returns[i].TaxYear > returns[j].TaxYear
		}
		return returns[i].ID < returns[j].ID
	})
	return returns
}

func cloneAmounts(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
