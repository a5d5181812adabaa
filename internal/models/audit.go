package models

import "time"

// AuditAction names a reviewed transition.
type AuditAction string

const (
	AuditApprove AuditAction = "APPROVE"
	AuditReject  AuditAction = "REJECT"
)

// AuditEvent records one approve/reject decision on a product version.
type AuditEvent struct {
	ID               string        `db:"id" json:"id"`
	Action           AuditAction   `db:"action" json:"action"`
	ProductID        string        `db:"product_id" json:"productId"`
	VersionID        string        `db:"version_id" json:"versionId"`
	ReviewerID       string        `db:"reviewer_id" json:"reviewerId"`
	FromStatus       VersionStatus `db:"from_status" json:"fromStatus"`
	ToStatus         VersionStatus `db:"to_status" json:"toStatus"`
	DemotedVersionID *string       `db:"demoted_version_id" json:"demotedVersionId,omitempty"`
	Reason           *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
}
