package service

import (
	"fmt"

	"vaultd/internal/models"
)

// Principal identifies the caller of a blob operation.
type Principal struct {
	TenantID string
	Role     models.Role
}

// AccessDecision is the outcome of a policy check. Reason is set only on
// denial and uses the stable uppercase spellings below.
type AccessDecision struct {
	Allowed bool
	Reason  string
}

// Denial reasons.
const (
	ReasonRoleDenied                  = "ROLE_DENIED"
	ReasonCrossTenantDenied           = "CROSS_TENANT_DENIED"
	ReasonBilateralAcceptanceRequired = "BILATERAL_ACCEPTANCE_REQUIRED"
)

// AccessPolicy decides who may upload and download blobs. It is pure
// decision logic; enforcement lives in BlobService.
type AccessPolicy struct {
	uploadRoles map[models.Role]struct{}
}

// NewAccessPolicy builds a policy allowing uploads for the given roles.
// A nil or empty set defaults to admin and member.
func NewAccessPolicy(uploadRoles []models.Role) *AccessPolicy {
	if len(uploadRoles) == 0 {
		uploadRoles = []models.Role{models.RoleAdmin, models.RoleMember}
	}
	allowed := make(map[models.Role]struct{}, len(uploadRoles))
	for _, role := range uploadRoles {
		allowed[role] = struct{}{}
	}
	return &AccessPolicy{uploadRoles: allowed}
}

// DecideUpload gates blob creation: the caller must hold an upload-capable
// role and may only write into their own tenant.
func (p *AccessPolicy) DecideUpload(caller Principal, targetTenantID string) AccessDecision {
	if _, ok := p.uploadRoles[caller.Role]; !ok {
		return AccessDecision{Reason: ReasonRoleDenied}
	}
	if caller.TenantID != targetTenantID {
		return AccessDecision{Reason: ReasonCrossTenantDenied}
	}
	return AccessDecision{Allowed: true}
}

// DecideDownload gates blob reads. Same-tenant reads are always allowed.
// Cross-tenant reads are allowed for the lowest confidentiality tier, and
// for higher tiers only when both tenants have accepted a sharing
// relationship.
func (p *AccessPolicy) DecideDownload(caller Principal, blobTenantID string, tier models.ConfidentialityTier, bilateralAccepted bool) AccessDecision {
	if caller.TenantID == blobTenantID {
		return AccessDecision{Allowed: true}
	}
	if tier == models.TierL1 {
		return AccessDecision{Allowed: true}
	}
	if !bilateralAccepted {
		return AccessDecision{Reason: ReasonBilateralAcceptanceRequired}
	}
	return AccessDecision{Allowed: true}
}

// AssertCanUpload converts an upload denial into a forbidden service error.
func (p *AccessPolicy) AssertCanUpload(caller Principal, targetTenantID string) error {
	decision := p.DecideUpload(caller, targetTenantID)
	if decision.Allowed {
		return nil
	}
	return denialError(decision, fmt.Sprintf("tenant %s may not upload to tenant %s", caller.TenantID, targetTenantID))
}

// AssertCanDownload converts a download denial into a forbidden service error.
func (p *AccessPolicy) AssertCanDownload(caller Principal, blobTenantID string, tier models.ConfidentialityTier, bilateralAccepted bool) error {
	decision := p.DecideDownload(caller, blobTenantID, tier, bilateralAccepted)
	if decision.Allowed {
		return nil
	}
	return denialError(decision, fmt.Sprintf("tenant %s may not read tier %s blobs of tenant %s", caller.TenantID, tier, blobTenantID))
}

func denialError(decision AccessDecision, detail string) error {
	errCode := ErrCodeForbidden
	switch decision.Reason {
	case ReasonRoleDenied:
		errCode = ErrCodeRoleDenied
	case ReasonCrossTenantDenied:
		errCode = ErrCodeCrossTenantDenied
	case ReasonBilateralAcceptanceRequired:
		errCode = ErrCodeBilateralAcceptanceRequired
	}
	return forbiddenError(fmt.Errorf("%s: %s", decision.Reason, detail), errCode)
}
