package providers

import (
	"strings"

	"github.com/affiliateops/backend/internal/models"
)

// statusVocabularies maps each network's raw status strings to canonical statuses.
// Lookups are exact after trimming surrounding whitespace.
var statusVocabularies = map[models.NetworkName]map[string]models.ConversionStatus{
	models.NetworkImpact: {
		"APPROVED": models.StatusApproved,
		"PENDING":  models.StatusPending,
		"REVERSED": models.StatusReversed,
		"REJECTED": models.StatusRejected,
	},
	models.NetworkAwin: {
		"pending":  models.StatusPending,
		"approved": models.StatusApproved,
		"paid":     models.StatusApproved,
		"declined": models.StatusRejected,
		"deleted":  models.StatusRejected,
	},
	models.NetworkShareASaleLegacy: {
		"pending":  models.StatusPending,
		"approved": models.StatusApproved,
		"paid":     models.StatusApproved,
		"void":     models.StatusRejected,
		"reversed": models.StatusRejected,
	},
	models.NetworkPartnerStack: {
		"paid": models.StatusApproved,
	},
	models.NetworkManualTest: {
		"pending":  models.StatusPending,
		"approved": models.StatusApproved,
		"rejected": models.StatusRejected,
		"reversed": models.StatusReversed,
	},
}

// Normalize maps a network's raw status to the canonical status. Unknown networks
// and unmapped values yield pending so payout and dates still reach the ledger.
func Normalize(network models.NetworkName, rawStatus string) models.ConversionStatus {
	vocab, ok := statusVocabularies[network]
	if !ok {
		return models.StatusPending
	}
	if status, ok := vocab[strings.TrimSpace(rawStatus)]; ok {
		return status
	}
	return models.StatusPending
}
