// Package domain owns the answer moderation lifecycle: the Answer aggregate and
// its append-only action log, role capabilities, parent question bookkeeping,
// and the Manager that sequences storage, syndication, and notification side
// effects for each transition.
package domain
