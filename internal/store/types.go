package store

import "time"

// Transform execution statuses. queued -> running -> {success | failed};
// skipped is reported to callers on cache hits and never stored.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Review statuses. Independent of the execution state machine: a failed
// transform can still be acknowledged by a reviewer.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Output kinds.
const (
	OutputSemanticHTML = "semantic_html"
	OutputMetrics      = "metrics"
)

// Usage events.
const (
	EventRequest   = "request"
	EventCacheHit  = "cache_hit"
	EventGenerated = "generated"
	EventError     = "error"
	EventReviewed  = "reviewed"
)

// Domain is a verified binding of a tenant to a hostname, used as the
// authorization gate for ingestion.
type Domain struct {
	ID                string    `json:"id"`
	OrgID             string    `json:"org_id"`
	Domain            string    `json:"domain"`
	Verified          bool      `json:"verified"`
	VerificationToken string    `json:"verification_token"`
	CreatedAt         time.Time `json:"created_at"`
}

// Page is a tracked URL within a tenant.
type Page struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Type        string    `json:"type,omitempty"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transform is one execution of the rewrite pipeline against a page for a
// specific input fingerprint. (PageID, InputHash) is the idempotency key.
type Transform struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	PageID       string     `json:"page_id"`
	InputHash    string     `json:"input_hash"`
	Engine       string     `json:"engine"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	ReviewStatus string     `json:"review_status"`
	ReviewerID   string     `json:"reviewer_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Output is one named artifact produced by a transform.
type Output struct {
	ID          string    `json:"id"`
	TransformID string    `json:"transform_id"`
	Kind        string    `json:"kind"`
	Body        []byte    `json:"body"`
	Confidence  string    `json:"confidence,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Change records one element reclassification made during a transform.
// Informational only; the output bodies are authoritative.
type Change struct {
	TransformID string `json:"transform_id"`
	FromTag     string `json:"from_tag"`
	ToTag       string `json:"to_tag"`
	Reason      string `json:"reason"`
	Confidence  string `json:"confidence,omitempty"`
}
