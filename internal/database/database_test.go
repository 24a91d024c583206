package database

import (
	"strings"
	"testing"
)

func TestSchema_LedgerConstraints(t *testing.T) {
	s := Schema()
	for _, want := range []string{
		"UNIQUE (network, network_transaction_id)",
		"CHECK (status IN ('pending', 'approved', 'rejected', 'reversed'))",
		"CREATE TABLE IF NOT EXISTS video_attributions",
		"CREATE TABLE IF NOT EXISTS sync_runs",
		"CREATE TABLE IF NOT EXISTS operators",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestSchema_Idempotent(t *testing.T) {
	for _, line := range strings.Split(Schema(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "CREATE ") && !strings.Contains(line, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %s", line)
		}
	}
}
