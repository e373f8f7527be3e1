package models

// ConnectionProfile is the per-organization connection record resolved from
// the stored credential bundle. Bundles are dialect-specific maps; each
// adapter's config knows how to pull its own fields out.
type ConnectionProfile struct {
	OrgID   int64
	Dialect Dialect
	// Bundle is the decoded JSON credential bundle. Read-only within the
	// engine; credential rotation happens through the admin surface.
	Bundle map[string]any
}
