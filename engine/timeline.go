package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

// BuildTimeline merges every dated source record into one event stream ordered
// newest first, then by event type priority, then by event id.
func BuildTimeline(n Normalized, credentials domain.CredentialStatus) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, 0, len(n.Orders)+len(n.Invoices)+len(credentials.Credentials)+len(n.AuditEntries))

	for _, o := range n.Orders {
		if o.OrderDate != nil {
			events = append(events, orderEvent(o))
		}
		if o.ShippedDate != nil {
			events = append(events, shipmentEvent(o))
		}
	}
	for _, inv := range n.Invoices {
		events = append(events, invoiceEvents(inv)...)
	}
	for _, c := range credentials.Credentials {
		if ev, ok := credentialEvent(c); ok {
			events = append(events, ev)
		}
	}
	for _, a := range n.AuditEntries {
		if a.Timestamp != nil {
			events = append(events, auditEvent(a))
		}
	}

	SortTimeline(events)
	return events
}

// SortTimeline orders events by timestamp descending, type priority, then id.
func SortTimeline(events []domain.TimelineEvent) {
	slices.SortStableFunc(events, func(a, b domain.TimelineEvent) int {
		return cmp.Or(
			b.Timestamp.Compare(a.Timestamp),
			cmp.Compare(a.Type.Priority(), b.Type.Priority()),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func eventID(t domain.EventType, sourceID string) string {
	return string(t) + ":" + sourceID
}

func orderLabel(o domain.Order) string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

func orderEvent(o domain.Order) domain.TimelineEvent {
	severity := domain.SeverityInfo
	switch {
	case o.QualityFlag == domain.QualityCriticalIssue:
		severity = domain.SeverityCritical
	case o.QualityFlag == domain.QualityMinorIssue, o.ShipmentStatus == domain.ShipmentProblem:
		severity = domain.SeverityWarning
	}

	description := fmt.Sprintf("%d x %s", o.Quantity, o.Species)
	if o.Strain != "" {
		description += " (" + o.Strain + ")"
	}
	description += ", " + o.TotalValue.String()

	metadata := map[string]string{
		"orderNumber":    o.OrderNumber,
		"species":        o.Species,
		"quantity":       strconv.FormatInt(o.Quantity, 10),
		"totalValue":     o.TotalValue.String(),
		"shipmentStatus": string(o.ShipmentStatus),
		"qualityFlag":    string(o.QualityFlag),
	}
	if o.Strain != "" {
		metadata["strain"] = o.Strain
	}

	return domain.TimelineEvent{
		ID:            eventID(domain.EventOrder, o.ID),
		Type:          domain.EventOrder,
		Timestamp:     *o.OrderDate,
		Title:         "Order " + orderLabel(o) + " placed",
		Description:   description,
		RelatedID:     o.ID,
		RelatedEntity: "order",
		Severity:      severity,
		Metadata:      metadata,
	}
}

func shipmentEvent(o domain.Order) domain.TimelineEvent {
	severity := domain.SeverityInfo
	title := "Order " + orderLabel(o) + " shipped"
	if o.ShipmentStatus == domain.ShipmentProblem {
		severity = domain.SeverityWarning
		title = "Shipment problem on order " + orderLabel(o)
	}
	return domain.TimelineEvent{
		ID:            eventID(domain.EventShipment, o.ID),
		Type:          domain.EventShipment,
		Timestamp:     *o.ShippedDate,
		Title:         title,
		Description:   fmt.Sprintf("%d x %s, status %s", o.Quantity, o.Species, o.ShipmentStatus),
		RelatedID:     o.ID,
		RelatedEntity: "order",
		Severity:      severity,
		Metadata: map[string]string{
			"orderNumber":    o.OrderNumber,
			"shipmentStatus": string(o.ShipmentStatus),
		},
	}
}

// invoiceEvents emits the issue event and, once paid, the payment event. An
// invoice paid on the day it was issued yields only the payment event.
func invoiceEvents(inv domain.Invoice) []domain.TimelineEvent {
	severity := domain.SeverityInfo
	if inv.Status == domain.InvoiceOverdue {
		severity = domain.SeverityWarning
	}
	amount := strings.TrimSpace(inv.Amount.String() + " " + inv.Currency)
	metadata := func() map[string]string {
		return map[string]string{
			"amount":   inv.Amount.String(),
			"currency": inv.Currency,
			"status":   string(inv.Status),
		}
	}

	var events []domain.TimelineEvent
	sameDay := inv.IssuedDate != nil && inv.PaidDate != nil && startOfDay(*inv.IssuedDate).Equal(startOfDay(*inv.PaidDate))

	if inv.IssuedDate != nil && !sameDay {
		events = append(events, domain.TimelineEvent{
			ID:            eventID(domain.EventInvoice, inv.ID),
			Type:          domain.EventInvoice,
			Timestamp:     *inv.IssuedDate,
			Title:         "Invoice " + inv.ID + " issued",
			Description:   amount + ", " + string(inv.Status),
			RelatedID:     inv.ID,
			RelatedEntity: "invoice",
			Severity:      severity,
			Metadata:      metadata(),
		})
	}
	if inv.PaidDate != nil {
		events = append(events, domain.TimelineEvent{
			ID:            eventID(domain.EventPayment, inv.ID),
			Type:          domain.EventPayment,
			Timestamp:     *inv.PaidDate,
			Title:         "Invoice " + inv.ID + " paid",
			Description:   amount,
			RelatedID:     inv.ID,
			RelatedEntity: "invoice",
			Severity:      severity,
			Metadata:      metadata(),
		})
	}
	return events
}

// credentialEvent places expiring and expired credentials at their expiry date
// and valid ones at their issue date.
func credentialEvent(c domain.CredentialDetail) (domain.TimelineEvent, bool) {
	name := strings.TrimSpace(c.Type + " " + c.Number)

	var (
		ts       *time.Time
		title    string
		severity = domain.SeverityInfo
	)
	switch c.Status {
	case domain.CredentialExpired:
		ts, severity = c.ExpiryDate, domain.SeverityCritical
		title = name + " expired"
	case domain.CredentialExpiring:
		ts, severity = c.ExpiryDate, domain.SeverityWarning
		title = name + " expires in " + pluralize(*c.DaysUntilExpiry, "day")
		if *c.DaysUntilExpiry == 0 {
			title = name + " expires today"
		}
	default:
		ts = c.IssuedDate
		title = name + " issued"
		if ts == nil {
			ts = c.ExpiryDate
			title = name + " valid until " + formatDay(c.ExpiryDate)
		}
	}
	if ts == nil {
		return domain.TimelineEvent{}, false
	}

	metadata := map[string]string{
		"type":   c.Type,
		"status": string(c.Status),
	}
	if c.Number != "" {
		metadata["number"] = c.Number
	}
	if c.ExpiryDate != nil {
		metadata["expiryDate"] = formatDay(c.ExpiryDate)
	}

	return domain.TimelineEvent{
		ID:            eventID(domain.EventCredential, c.ID),
		Type:          domain.EventCredential,
		Timestamp:     *ts,
		Title:         title,
		RelatedID:     c.ID,
		RelatedEntity: "credential",
		Severity:      severity,
		Metadata:      metadata,
	}, true
}

func auditEvent(a domain.AuditEntry) domain.TimelineEvent {
	verb := string(a.Action)
	switch a.Action {
	case domain.AuditCreate:
		verb = "created"
	case domain.AuditUpdate:
		verb = "updated"
	case domain.AuditDelete:
		verb = "deleted"
	}

	ev := domain.TimelineEvent{
		ID:            eventID(domain.EventAudit, a.ID),
		Type:          domain.EventAudit,
		Timestamp:     *a.Timestamp,
		Title:         strings.TrimSpace(a.EntityType + " " + verb),
		RelatedID:     a.EntityID,
		RelatedEntity: a.EntityType,
		Severity:      domain.SeverityInfo,
		Metadata:      map[string]string{"action": string(a.Action)},
	}
	if a.Actor != "" {
		ev.Description = "by " + a.Actor
		ev.Metadata["actor"] = a.Actor
	}
	return ev
}

func pluralize(n int, noun string) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
