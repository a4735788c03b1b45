package models

import (
	"time"
)

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantKey is the composite identifier used for all isolation and pooling
// boundaries in the core.
type TenantKey struct {
	TenantID     string `json:"tenant_id"`
	EngagementID string `json:"engagement_id"`
}

// String renders the key in tenant/engagement form for log output and
// pool map keys.
func (k TenantKey) String() string {
	return k.TenantID + "/" + k.EngagementID
}
