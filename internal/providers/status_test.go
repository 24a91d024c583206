package providers

import (
	"testing"

	"github.com/affiliateops/backend/internal/models"
)

func TestNormalize_DeclaredVocabularies(t *testing.T) {
	cases := []struct {
		network models.NetworkName
		raw     string
		want    models.ConversionStatus
	}{
		{models.NetworkImpact, "APPROVED", models.StatusApproved},
		{models.NetworkImpact, "PENDING", models.StatusPending},
		{models.NetworkImpact, "REVERSED", models.StatusReversed},
		{models.NetworkImpact, "REJECTED", models.StatusRejected},

		{models.NetworkAwin, "pending", models.StatusPending},
		{models.NetworkAwin, "approved", models.StatusApproved},
		{models.NetworkAwin, "paid", models.StatusApproved},
		{models.NetworkAwin, "declined", models.StatusRejected},
		{models.NetworkAwin, "deleted", models.StatusRejected},

		{models.NetworkShareASaleLegacy, "pending", models.StatusPending},
		{models.NetworkShareASaleLegacy, "approved", models.StatusApproved},
		{models.NetworkShareASaleLegacy, "paid", models.StatusApproved},
		{models.NetworkShareASaleLegacy, "void", models.StatusRejected},
		{models.NetworkShareASaleLegacy, "reversed", models.StatusRejected},

		{models.NetworkPartnerStack, "paid", models.StatusApproved},
		{models.NetworkPartnerStack, "pending", models.StatusPending},
		{models.NetworkPartnerStack, "declined", models.StatusPending},

		{models.NetworkManualTest, "reversed", models.StatusReversed},
	}
	for _, tc := range cases {
		if got := Normalize(tc.network, tc.raw); got != tc.want {
			t.Errorf("Normalize(%s, %q) = %s, want %s", tc.network, tc.raw, got, tc.want)
		}
	}
}

func TestNormalize_UnknownValuesFallBackToPending(t *testing.T) {
	for _, raw := range []string{"", "clicked", "approved", "Paid", "???"} {
		if got := Normalize(models.NetworkImpact, raw); got != models.StatusPending {
			t.Errorf("Normalize(impact, %q) = %s, want pending", raw, got)
		}
	}
	if got := Normalize("unknown-network", "APPROVED"); got != models.StatusPending {
		t.Errorf("unknown network: got %s, want pending", got)
	}
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	if got := Normalize(models.NetworkImpact, "  APPROVED\n"); got != models.StatusApproved {
		t.Errorf("got %s, want approved", got)
	}
}
