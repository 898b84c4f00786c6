package repository

import (
	"context"

	"github.com/fastygo/crm-analytics/domain"
)

// HistoryRepository reads a customer's transactional history. Every call is
// scoped to a tenant; records of other tenants are never returned.
type HistoryRepository interface {
	GetCustomer(ctx context.Context, tenantID, customerID string) (*domain.Customer, error)
	ListCustomerIDs(ctx context.Context, tenantID string) ([]string, error)
	ListOrders(ctx context.Context, tenantID, customerID string) ([]domain.OrderRecord, error)
	ListInvoices(ctx context.Context, tenantID, customerID string) ([]domain.InvoiceRecord, error)
	ListCredentials(ctx context.Context, tenantID, customerID string) ([]domain.CredentialRecord, error)
	ListAuditEntries(ctx context.Context, tenantID, customerID string) ([]domain.AuditRecord, error)
}
