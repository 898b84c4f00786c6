package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAnalytics is the derived snapshot for one customer at one instant.
// It is rebuilt on every request and never updated in place.
type CustomerAnalytics struct {
	CustomerID          string              `json:"customerId"`
	GeneratedAt         time.Time           `json:"generatedAt"`
	Summary             Summary             `json:"summary"`
	PerformanceByPeriod []PeriodPerformance `json:"performanceByPeriod"`
	TopSpecies          []SpeciesStat       `json:"topSpecies"`
	RecentOrders        []Order             `json:"recentOrders"`
	RecentInvoices      []Invoice           `json:"recentInvoices"`
	CredentialStatus    CredentialStatus    `json:"credentialStatus"`
	Timeline            []TimelineEvent     `json:"timeline"`
	Warnings            []Warning           `json:"warnings"`
	UnavailableSources  []string            `json:"unavailableSources,omitempty"`
	// HistoryAsOf is set when the history came from the local mirror rather
	// than the live store, and tells when that copy was taken.
	HistoryAsOf         *time.Time          `json:"historyAsOf,omitempty"`
}

type RetentionRisk string

const (
	RetentionLow    RetentionRisk = "low"
	RetentionMedium RetentionRisk = "medium"
	RetentionHigh   RetentionRisk = "high"
)

type Summary struct {
	TotalOrders              int             `json:"totalOrders"`
	TotalValue               decimal.Decimal `json:"totalValue"`
	AverageOrderValue        decimal.Decimal `json:"averageOrderValue"`
	LastOrderDate            *time.Time      `json:"lastOrderDate"`
	DaysSinceLastOrder       *int            `json:"daysSinceLastOrder"`
	AverageDaysBetweenOrders *float64        `json:"averageDaysBetweenOrders"`
	OrderFrequencyPerQuarter *float64        `json:"orderFrequencyPerQuarter"`
	OpenShipmentCount        int             `json:"openShipmentCount"`
	OpenIssuesCount          int             `json:"openIssuesCount"`
	OutstandingInvoiceValue  decimal.Decimal `json:"outstandingInvoiceValue"`
	OutstandingInvoiceCount  int             `json:"outstandingInvoiceCount"`
	OverdueInvoiceCount      int             `json:"overdueInvoiceCount"`
	RetentionRisk            RetentionRisk   `json:"retentionRisk"`
}

type PeriodPerformance struct {
	Period       string          `json:"period"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	OrderCount   int             `json:"orderCount"`
	AverageValue decimal.Decimal `json:"averageValue"`
}

type SpeciesStat struct {
	Species       string          `json:"species"`
	OrderCount    int             `json:"orderCount"`
	TotalQuantity int64           `json:"totalQuantity"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

type CredentialState string

const (
	CredentialValid    CredentialState = "valid"
	CredentialExpiring CredentialState = "expiring"
	CredentialExpired  CredentialState = "expired"
)

type CredentialStatus struct {
	Total          int                `json:"total"`
	Valid          int                `json:"valid"`
	Expiring       int                `json:"expiring"`
	Expired        int                `json:"expired"`
	NextExpiryDate *time.Time         `json:"nextExpiryDate,omitempty"`
	Credentials    []CredentialDetail `json:"credentials"`
}

type CredentialDetail struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Number          string          `json:"number,omitempty"`
	Status          CredentialState `json:"status"`
	IssuedDate      *time.Time      `json:"issuedDate,omitempty"`
	ExpiryDate      *time.Time      `json:"expiryDate,omitempty"`
	DaysUntilExpiry *int            `json:"daysUntilExpiry,omitempty"`
}

type EventType string

const (
	EventPayment    EventType = "payment"
	EventInvoice    EventType = "invoice"
	EventShipment   EventType = "shipment"
	EventOrder      EventType = "order"
	EventCredential EventType = "credential"
	EventAudit      EventType = "audit"
	EventNote       EventType = "note"
)

// Priority orders events sharing a timestamp; lower sorts first.
func (t EventType) Priority() int {
	switch t {
	case EventPayment:
		return 0
	case EventInvoice:
		return 1
	case EventShipment:
		return 2
	case EventOrder:
		return 3
	case EventCredential:
		return 4
	case EventAudit:
		return 5
	case EventNote:
		return 6
	default:
		return 7
	}
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank grows with urgency.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

type TimelineEvent struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	RelatedID     string            `json:"relatedId,omitempty"`
	RelatedEntity string            `json:"relatedEntity,omitempty"`
	Severity      Severity          `json:"severity"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type WarningCode string

const (
	WarnRetentionRiskHigh      WarningCode = "RETENTION_RISK_HIGH"
	WarnCredentialExpired      WarningCode = "CREDENTIAL_EXPIRED"
	WarnCredentialExpiring     WarningCode = "CREDENTIAL_EXPIRING"
	WarnInvoicesOverdue        WarningCode = "INVOICES_OVERDUE"
	WarnQualityIssuesOpen      WarningCode = "QUALITY_ISSUES_OPEN"
	WarnRecentCriticalActivity WarningCode = "RECENT_CRITICAL_ACTIVITY"
)

type Warning struct {
	Code     WarningCode `json:"code"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
}
