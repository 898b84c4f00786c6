package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the tenant-scoped owner of a transactional history.
type Customer struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderRecord is an order row as stored. Dates and numerics stay textual until normalized.
type OrderRecord struct {
	ID             string  `json:"id"`
	OrderNumber    string  `json:"orderNumber"`
	OrderDate      *string `json:"orderDate,omitempty"`
	Species        string  `json:"species"`
	Strain         *string `json:"strain,omitempty"`
	Quantity       *string `json:"quantity,omitempty"`
	TotalValue     *string `json:"totalValue,omitempty"`
	ShipmentStatus string  `json:"shipmentStatus"`
	QualityFlag    string  `json:"qualityFlag"`
	ShipmentDate   *string `json:"shipmentDate,omitempty"`
	ShippedDate    *string `json:"shippedDate,omitempty"`
}

type InvoiceRecord struct {
	ID         string  `json:"id"`
	Amount     *string `json:"amount,omitempty"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
	IssuedDate *string `json:"issuedDate,omitempty"`
	PaidDate   *string `json:"paidDate,omitempty"`
}

type CredentialRecord struct {
	ID         string  `json:"id,omitempty"`
	Type       string  `json:"type"`
	Number     *string `json:"number,omitempty"`
	IssuedDate *string `json:"issuedDate,omitempty"`
	ExpiryDate *string `json:"expiryDate,omitempty"`
}

type AuditRecord struct {
	ID         string  `json:"id,omitempty"`
	EntityType string  `json:"entityType"`
	EntityID   string  `json:"entityId"`
	Action     string  `json:"action"`
	Timestamp  *string `json:"timestamp,omitempty"`
	Actor      *string `json:"actor,omitempty"`
}

// Source names used when an optional part of the history cannot be loaded.
const (
	SourceOrders       = "orders"
	SourceInvoices     = "invoices"
	SourceCredentials  = "credentials"
	SourceAuditEntries = "audit_entries"
)

// CustomerHistory bundles every raw row the analytics engine consumes for one customer.
type CustomerHistory struct {
	Orders       []OrderRecord      `json:"orders"`
	Invoices     []InvoiceRecord    `json:"invoices"`
	Credentials  []CredentialRecord `json:"credentials"`
	AuditEntries []AuditRecord      `json:"auditEntries"`
	// Unavailable lists optional sources that failed to load.
	Unavailable []string `json:"unavailable,omitempty"`
}

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentProblem   ShipmentStatus = "problem"
)

// IsOpen reports whether the shipment still needs attention.
func (s ShipmentStatus) IsOpen() bool {
	return s == ShipmentPending || s == ShipmentProblem
}

type QualityFlag string

const (
	QualityOK            QualityFlag = "ok"
	QualityMinorIssue    QualityFlag = "minor_issue"
	QualityCriticalIssue QualityFlag = "critical_issue"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// IsOutstanding reports whether the invoice still counts as money owed.
func (s InvoiceStatus) IsOutstanding() bool {
	return s == InvoicePending || s == InvoiceOverdue
}

type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// Order is a normalized order.
type Order struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	OrderDate      *time.Time      `json:"orderDate"`
	Species        string          `json:"species"`
	Strain         string          `json:"strain,omitempty"`
	Quantity       int64           `json:"quantity"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	ShipmentStatus ShipmentStatus  `json:"shipmentStatus"`
	QualityFlag    QualityFlag     `json:"qualityFlag"`
	ShipmentDate   *time.Time      `json:"shipmentDate,omitempty"`
	ShippedDate    *time.Time      `json:"shippedDate,omitempty"`
}

type Invoice struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     InvoiceStatus   `json:"status"`
	IssuedDate *time.Time      `json:"issuedDate"`
	PaidDate   *time.Time      `json:"paidDate,omitempty"`
}

type Credential struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Number     string     `json:"number,omitempty"`
	IssuedDate *time.Time `json:"issuedDate,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

type AuditEntry struct {
	ID         string      `json:"id"`
	EntityType string      `json:"entityType"`
	EntityID   string      `json:"entityId"`
	Action     AuditAction `json:"action"`
	Timestamp  *time.Time  `json:"timestamp"`
	Actor      string      `json:"actor,omitempty"`
}
