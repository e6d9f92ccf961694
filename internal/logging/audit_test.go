package logging

import (
	"encoding/json"
	"testing"
)

func TestAudit(t *testing.T) {
	buf := captureLogs(t, "info", "json")

	Audit(AuditEvent{
		Operation: "stake",
		Actor:     "0x2222222222222222222222222222222222222222",
		Target:    "0xc3039ee6993608c56ffAAcDb892b1ca5857858dD",
		Amount:    "10",
		Result:    "success",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if entry["audit"] != true {
		t.Errorf("audit = %v, want true", entry["audit"])
	}
	if entry["operation"] != "stake" || entry["amount"] != "10" || entry["result"] != "success" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestAuditOmitsEmptyAmount(t *testing.T) {
	buf := captureLogs(t, "info", "json")

	Audit(AuditEvent{Operation: "claim", Result: "success"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if _, ok := entry["amount"]; ok {
		t.Error("amount should be omitted when empty")
	}
}
