package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// CheckSpec is the cache-relevant shape of one permission check.
type CheckSpec struct {
	Subjects []string `json:"subjects"`
	Scope    string   `json:"scope"`
	Action   string   `json:"action"`
	TenantID string   `json:"tenant_id"`
	ObjectID string   `json:"object_id"`
	CheckID  string   `json:"check_id"`
}

// Manager owns the permission cache keys and the invalidation protocol.
// Keys are deterministic: subjects are sorted before joining, so two checks
// naming the same subject set in different orders share one entry.
type Manager struct {
	store  Store
	prefix string
	logger hclog.Logger
}

// NewManager wraps a Store with permission-specific key handling.
func NewManager(store Store, prefix string, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Manager{store: store, prefix: prefix, logger: logger}
}

// CheckKey builds the deterministic key for a single permission check, e.g.
// "permkit:check:role:2|user:1:docs:read:org:456:null".
func (m *Manager) CheckKey(subjects []string, scope, action, tenantID, objectID string) string {
	sorted := make([]string, len(subjects))
	copy(sorted, subjects)
	sort.Strings(sorted)

	parts := []string{
		m.prefix,
		"check",
		strings.Join(sorted, "|"),
		scope,
		action,
		orNull(tenantID),
		orNull(objectID),
	}
	return strings.Join(parts, ":")
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// checkManyKey keys a batch by a stable hash so the key length stays bounded
// regardless of batch size.
func (m *Manager) checkManyKey(checks []CheckSpec) string {
	return m.prefix + ":check_many:" + hashChecks(checks)
}

// hashChecks produces a 16-hex-char digest that is independent of both the
// batch order and each check's subject order.
func hashChecks(checks []CheckSpec) string {
	normalized := make([]string, 0, len(checks))
	for _, check := range checks {
		sorted := make([]string, len(check.Subjects))
		copy(sorted, check.Subjects)
		sort.Strings(sorted)
		canonical, _ := json.Marshal(CheckSpec{
			Subjects: sorted,
			Scope:    check.Scope,
			Action:   check.Action,
			TenantID: check.TenantID,
			ObjectID: check.ObjectID,
			CheckID:  check.CheckID,
		})
		normalized = append(normalized, string(canonical))
	}
	sort.Strings(normalized)

	content, _ := json.Marshal(normalized)
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// subjectPattern matches every check key whose subject list contains the
// given subject anywhere. Substring matching deliberately over-matches when
// one subject identifier is a prefix of another ("user:1" vs "user:12");
// deleting too much is safe, deleting too little is not.
func (m *Manager) subjectPattern(subject string) string {
	return m.prefix + ":check:*" + subject + "*"
}

// GetCheckResult returns the cached decision for a check, or false when
// nothing usable is cached.
func (m *Manager) GetCheckResult(ctx context.Context, subjects []string, scope, action, tenantID, objectID string) (result, ok bool) {
	key := m.CheckKey(subjects, scope, action, tenantID, objectID)
	value, ok := m.store.Get(ctx, key)
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	if !ok {
		return false, false
	}
	return b, true
}

// SetCheckResult caches the decision for a check.
func (m *Manager) SetCheckResult(ctx context.Context, subjects []string, scope, action, tenantID, objectID string, result bool, ttl time.Duration) bool {
	key := m.CheckKey(subjects, scope, action, tenantID, objectID)
	return m.store.Set(ctx, key, result, ttl)
}

// GetCheckManyResult returns the cached results payload for a batch check.
func (m *Manager) GetCheckManyResult(ctx context.Context, checks []CheckSpec) (any, bool) {
	return m.store.Get(ctx, m.checkManyKey(checks))
}

// SetCheckManyResult caches the results payload for a batch check.
func (m *Manager) SetCheckManyResult(ctx context.Context, checks []CheckSpec, results any, ttl time.Duration) bool {
	return m.store.Set(ctx, m.checkManyKey(checks), results, ttl)
}

// InvalidateSubject removes every cached check whose key mentions the
// subject. Called after each successful grant or revoke naming it.
func (m *Manager) InvalidateSubject(ctx context.Context, subject string) int {
	deleted := m.store.DeletePattern(ctx, m.subjectPattern(subject))
	m.logger.Debug("invalidated cached checks for subject", "subject", subject, "keys_deleted", deleted)
	return deleted
}

// InvalidateSubjects invalidates each subject independently and returns the
// summed count. Duplicate subjects are not de-duplicated; the count is a
// metric, not a guarantee of distinct keys.
func (m *Manager) InvalidateSubjects(ctx context.Context, subjects []string) int {
	total := 0
	for _, subject := range subjects {
		total += m.InvalidateSubject(ctx, subject)
	}
	m.logger.Debug("invalidated cached checks for subjects", "subject_count", len(subjects), "keys_deleted", total)
	return total
}

// InvalidateAllChecks removes every check entry under the prefix, including
// batch entries. Administrative use only.
func (m *Manager) InvalidateAllChecks(ctx context.Context) int {
	deleted := m.store.DeletePattern(ctx, m.prefix+":check:*")
	deleted += m.store.DeletePattern(ctx, m.prefix+":check_many:*")
	m.logger.Info("invalidated all cached permission checks", "keys_deleted", deleted)
	return deleted
}

// Clear empties the underlying store.
func (m *Manager) Clear(ctx context.Context) bool {
	return m.store.Clear(ctx)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
