package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/crm-analytics/domain"
	"github.com/fastygo/crm-analytics/repository"
)

type historyRepository struct {
	pool *pgxpool.Pool

	ordersQuery      string
	invoicesQuery    string
	credentialsQuery string
	auditQuery       string
}

// NewHistoryRepository returns a Postgres-backed implementation of HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) repository.HistoryRepository {
	return &historyRepository{
		pool:             pool,
		ordersQuery:      fmt.Sprintf(`SELECT %s FROM orders WHERE tenant_id = $1 AND customer_id = $2 ORDER BY order_date NULLS LAST, id`, textColumns(repository.OrderColumns)),
		invoicesQuery:    fmt.Sprintf(`SELECT %s FROM invoices WHERE tenant_id = $1 AND customer_id = $2 ORDER BY issued_date NULLS LAST, id`, textColumns(repository.InvoiceColumns)),
		credentialsQuery: fmt.Sprintf(`SELECT %s FROM credentials WHERE tenant_id = $1 AND customer_id = $2 ORDER BY expiry_date NULLS LAST, id`, textColumns(repository.CredentialColumns)),
		auditQuery:       fmt.Sprintf(`SELECT %s FROM audit_entries WHERE tenant_id = $1 AND customer_id = $2 ORDER BY occurred_at NULLS LAST, id`, textColumns(repository.AuditColumns)),
	}
}

func (r *historyRepository) GetCustomer(ctx context.Context, tenantID, customerID string) (*domain.Customer, error) {
	const query = `
	SELECT id, tenant_id, name, created_at
	FROM customers
	WHERE tenant_id = $1 AND id = $2
	`
	var c domain.Customer
	err := r.pool.QueryRow(ctx, query, tenantID, customerID).Scan(&c.ID, &c.TenantID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *historyRepository) ListCustomerIDs(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM customers WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row repository.RowScanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func (r *historyRepository) ListOrders(ctx context.Context, tenantID, customerID string) ([]domain.OrderRecord, error) {
	rows, err := r.pool.Query(ctx, r.ordersQuery, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, repository.ScanOrder)
}

func (r *historyRepository) ListInvoices(ctx context.Context, tenantID, customerID string) ([]domain.InvoiceRecord, error) {
	rows, err := r.pool.Query(ctx, r.invoicesQuery, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, repository.ScanInvoice)
}

func (r *historyRepository) ListCredentials(ctx context.Context, tenantID, customerID string) ([]domain.CredentialRecord, error) {
	rows, err := r.pool.Query(ctx, r.credentialsQuery, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, repository.ScanCredential)
}

func (r *historyRepository) ListAuditEntries(ctx context.Context, tenantID, customerID string) ([]domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx, r.auditQuery, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, repository.ScanAuditEntry)
}
