package plan

import "strings"

// Idempotency key construction. The key is passed on every external write
// so retrying the same logical action does not duplicate side effects;
// dedup enforcement is the platform's responsibility, this builder only
// guarantees determinism and stability.
const (
	idempotencyNamespace = "bokpilot"
	maxIdempotencyKeyLen = 64
)

// IdempotencyKey derives the deterministic, bounded-length key for one
// (scope, operation, resource) triple. Identical triples always yield
// byte-identical keys. Truncation drops trailing characters only, keeping
// the most distinguishing leading segments; callers must choose resource
// ids distinguishing enough to fit.
func IdempotencyKey(scopeID string, operation ActionType, resourceID string) string {
	key := strings.Join([]string{idempotencyNamespace, scopeID, string(operation), resourceID}, ":")
	if len(key) > maxIdempotencyKeyLen {
		key = key[:maxIdempotencyKeyLen]
	}
	return key
}
