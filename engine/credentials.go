package engine

import (
	"time"

	"github.com/fastygo/crm-analytics/domain"
)

// EvaluateCredentials classifies every credential against now and tallies the results.
func EvaluateCredentials(credentials []domain.Credential, now time.Time) domain.CredentialStatus {
	status := domain.CredentialStatus{
		Total:       len(credentials),
		Credentials: make([]domain.CredentialDetail, 0, len(credentials)),
	}

	for _, c := range credentials {
		detail := domain.CredentialDetail{
			ID:         c.ID,
			Type:       c.Type,
			Number:     c.Number,
			Status:     domain.CredentialValid,
			IssuedDate: c.IssuedDate,
			ExpiryDate: c.ExpiryDate,
		}
		if c.ExpiryDate != nil {
			days := daysBetween(now, *c.ExpiryDate)
			detail.DaysUntilExpiry = &days
			detail.Status = credentialState(days)
		}

		switch detail.Status {
		case domain.CredentialExpired:
			status.Expired++
		case domain.CredentialExpiring:
			status.Expiring++
		default:
			status.Valid++
		}

		if detail.Status != domain.CredentialExpired && c.ExpiryDate != nil {
			if status.NextExpiryDate == nil || c.ExpiryDate.Before(*status.NextExpiryDate) {
				next := *c.ExpiryDate
				status.NextExpiryDate = &next
			}
		}
		status.Credentials = append(status.Credentials, detail)
	}
	return status
}

func credentialState(daysUntilExpiry int) domain.CredentialState {
	switch {
	case daysUntilExpiry < 0:
		return domain.CredentialExpired
	case daysUntilExpiry <= expiringWindowDays:
		return domain.CredentialExpiring
	default:
		return domain.CredentialValid
	}
}
