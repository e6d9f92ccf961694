package logging

// AuditEvent records an operation that moves funds or key material.
type AuditEvent struct {
	Operation string // e.g. "stake", "withdraw", "claim", "wallet_created"
	Actor     string // wallet address
	Target    string // contract address or keystore directory
	Amount    string // raw amount text, empty when not applicable
	Result    string // "success" or an outcome label
}

// Audit logs event at Info level with an "audit" attribute so audit lines
// can be filtered from regular logs.
func Audit(event AuditEvent) {
	args := []any{
		"audit", true,
		"operation", event.Operation,
		"actor", event.Actor,
		"target", event.Target,
		"result", event.Result,
	}
	if event.Amount != "" {
		args = append(args, "amount", event.Amount)
	}
	Logger().Info("audit", args...)
}
