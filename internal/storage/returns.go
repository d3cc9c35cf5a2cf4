package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/docstore/internal/domain"
)

const taxReturnColumns = `tax_return_id, client_id, tax_year, filing_status,
	income_sources, deductions, credits,
	taxes_paid, tax_liability, refund_or_amount_due,
	created_at, updated_at`

// CreateTaxReturn inserts a new tax return and returns the assigned id.
// The referenced client must exist; ErrClientNotFound is returned
// otherwise. The three category mappings are serialized to JSON text
// before storage, with nil mappings stored as empty objects.
func (s *Store) CreateTaxReturn(ctx context.Context, input domain.TaxReturnInput) (int64, error) {
	incomeJSON, err := encodeAmounts(input.IncomeSources)
	if err != nil {
		return 0, fmt.Errorf("insert tax return: %w", err)
	}
	deductionsJSON, err := encodeAmounts(input.Deductions)
	if err != nil {
		return 0, fmt.Errorf("insert tax return: %w", err)
	}
	creditsJSON, err := encodeAmounts(input.Credits)
	if err != nil {
		return 0, fmt.Errorf("insert tax return: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert tax return: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM clients WHERE client_id = ?`, input.ClientID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrClientNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check client %d: %w", input.ClientID, err)
	}

	now := formatTime(time.Now())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tax_returns
		(client_id, tax_year, filing_status, income_sources, deductions, credits,
		 taxes_paid, tax_liability, refund_or_amount_due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		input.ClientID,
		input.TaxYear,
		input.FilingStatus,
		incomeJSON,
		deductionsJSON,
		creditsJSON,
		input.TaxesPaid,
		input.TaxLiability,
		input.RefundOrAmountDue,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tax return: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert tax return: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert tax return: commit: %w", err)
	}
	return id, nil
}

// GetTaxReturn returns the tax return with the given id, or (nil, nil)
// if no such record exists. Each mapping column is decoded
// independently per the store's decode policy.
func (s *Store) GetTaxReturn(ctx context.Context, id int64) (*domain.TaxReturn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taxReturnColumns+`
		FROM tax_returns
		WHERE tax_return_id = ?
	`, id)

	ret, err := s.scanTaxReturn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query tax return %d: %w", id, err)
	}
	return ret, nil
}

// ListTaxReturnsForClient returns all tax returns for one client,
// ordered by tax year descending. Ties within a year may appear in any
// order.
func (s *Store) ListTaxReturnsForClient(ctx context.Context, clientID int64) ([]domain.TaxReturn, error) {
	return s.listTaxReturns(ctx, `
		SELECT `+taxReturnColumns+`
		FROM tax_returns
		WHERE client_id = ?
		ORDER BY tax_year DESC
	`, clientID)
}

// ListTaxReturns returns all tax returns, optionally filtered to one
// client. The filtered listing is ordered by tax year descending; the
// unfiltered listing has no ordering guarantee.
func (s *Store) ListTaxReturns(ctx context.Context, clientID *int64) ([]domain.TaxReturn, error) {
	if clientID != nil {
		return s.ListTaxReturnsForClient(ctx, *clientID)
	}
	return s.listTaxReturns(ctx, `
		SELECT `+taxReturnColumns+`
		FROM tax_returns
	`)
}

func (s *Store) listTaxReturns(ctx context.Context, query string, args ...any) ([]domain.TaxReturn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tax returns: %w", err)
	}
	defer rows.Close()

	returns := []domain.TaxReturn{}
	for rows.Next() {
		ret, err := s.scanTaxReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tax return: %w", err)
		}
		returns = append(returns, *ret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax returns: %w", err)
	}
	return returns, nil
}

func (s *Store) scanTaxReturn(row rowScanner) (*domain.TaxReturn, error) {
	var (
		ret                                  domain.TaxReturn
		incomeRaw, deductionsRaw, creditsRaw string
		createdAt, updatedAt                 string
	)
	if err := row.Scan(
		&ret.ID,
		&ret.ClientID,
		&ret.TaxYear,
		&ret.FilingStatus,
		&incomeRaw,
		&deductionsRaw,
		&creditsRaw,
		&ret.TaxesPaid,
		&ret.TaxLiability,
		&ret.RefundOrAmountDue,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if ret.IncomeSources, err = s.amountsColumn(ret.ID, "income_sources", incomeRaw); err != nil {
		return nil, err
	}
	if ret.Deductions, err = s.amountsColumn(ret.ID, "deductions", deductionsRaw); err != nil {
		return nil, err
	}
	if ret.Credits, err = s.amountsColumn(ret.ID, "credits", creditsRaw); err != nil {
		return nil, err
	}

	ret.CreatedAt = parseTime(createdAt)
	ret.UpdatedAt = parseTime(updatedAt)
	return &ret, nil
}
