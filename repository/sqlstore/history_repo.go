// Package sqlstore reads customer history through database/sql. It serves the
// MySQL and SQLite deployments; both drivers accept "?" placeholders.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/engine"
	"github.com/fastygo/crm-analytics/repository"
)

type historyRepository struct {
	db *sql.DB

	ordersQuery      string
	invoicesQuery    string
	credentialsQuery string
	auditQuery       string
}

// NewHistoryRepository returns a database/sql implementation of HistoryRepository.
func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{
		db:               db,
		ordersQuery:      selectFor("orders", repository.OrderColumns, "order_date"),
		invoicesQuery:    selectFor("invoices", repository.InvoiceColumns, "issued_date"),
		credentialsQuery: selectFor("credentials", repository.CredentialColumns, "expiry_date"),
		auditQuery:       selectFor("audit_entries", repository.AuditColumns, "occurred_at"),
	}
}

// selectFor builds a tenant scoped query ordered with undated rows last,
// which MySQL cannot express with NULLS LAST.
func selectFor(table string, columns []string, dateColumn string) string {
	return fmt.Sprintf(
		`SELECT %s FROM %s WHERE tenant_id = ? AND customer_id = ? ORDER BY %s IS NULL, %s, id`,
		strings.Join(columns, ", "), table, dateColumn, dateColumn,
	)
}

func (r *historyRepository) GetCustomer(ctx context.Context, tenantID, customerID string) (*domain.Customer, error) {
	const query = `SELECT id, tenant_id, name, created_at FROM customers WHERE tenant_id = ? AND id = ?`

	var (
		c       domain.Customer
		created sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, tenantID, customerID).Scan(&c.ID, &c.TenantID, &c.Name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if created.Valid {
		if t := engine.ParseDate(&created.String); t != nil {
			c.CreatedAt = *t
		}
	}
	return &c, nil
}

func (r *historyRepository) ListCustomerIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM customers WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return collect(rows, func(row repository.RowScanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func (r *historyRepository) ListOrders(ctx context.Context, tenantID, customerID string) ([]domain.OrderRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.ordersQuery, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collect(rows, repository.ScanOrder)
}

func (r *historyRepository) ListInvoices(ctx context.Context, tenantID, customerID string) ([]domain.InvoiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.invoicesQuery, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return collect(rows, repository.ScanInvoice)
}

func (r *historyRepository) ListCredentials(ctx context.Context, tenantID, customerID string) ([]domain.CredentialRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.credentialsQuery, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return collect(rows, repository.ScanCredential)
}

func (r *historyRepository) ListAuditEntries(ctx context.Context, tenantID, customerID string) ([]domain.AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.auditQuery, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return collect(rows, repository.ScanAuditEntry)
}

func collect[T any](rows *sql.Rows, scan func(repository.RowScanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
