package service

import (
	"testing"

	"vaultd/internal/models"
)

func TestDecideUpload(t *testing.T) {
	policy := NewAccessPolicy(nil)

	cases := []struct {
		name       string
		caller     Principal
		target     string
		allowed    bool
		wantReason string
	}{
		{
			name:    "admin uploads to own tenant",
			caller:  Principal{TenantID: "org-1", Role: models.RoleAdmin},
			target:  "org-1",
			allowed: true,
		},
		{
			name:    "member uploads to own tenant",
			caller:  Principal{TenantID: "org-1", Role: models.RoleMember},
			target:  "org-1",
			allowed: true,
		},
		{
			name:       "viewer may not upload",
			caller:     Principal{TenantID: "org-1", Role: models.RoleViewer},
			target:     "org-1",
			wantReason: ReasonRoleDenied,
		},
		{
			name:       "member may not upload cross-tenant",
			caller:     Principal{TenantID: "org-1", Role: models.RoleMember},
			target:     "org-2",
			wantReason: ReasonCrossTenantDenied,
		},
		{
			name:       "admin may not upload cross-tenant",
			caller:     Principal{TenantID: "org-1", Role: models.RoleAdmin},
			target:     "org-2",
			wantReason: ReasonCrossTenantDenied,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.DecideUpload(tc.caller, tc.target)
			if decision.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%t, got %t (reason %s)", tc.allowed, decision.Allowed, decision.Reason)
			}
			if decision.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, decision.Reason)
			}
		})
	}
}

func TestDecideUploadCustomRoles(t *testing.T) {
	policy := NewAccessPolicy([]models.Role{models.RoleAdmin})

	caller := Principal{TenantID: "org-1", Role: models.RoleMember}
	decision := policy.DecideUpload(caller, "org-1")
	if decision.Allowed {
		t.Fatal("expected member to be denied under admin-only policy")
	}
	if decision.Reason != ReasonRoleDenied {
		t.Fatalf("expected reason %s, got %s", ReasonRoleDenied, decision.Reason)
	}
}

func TestDecideDownload(t *testing.T) {
	policy := NewAccessPolicy(nil)

	cases := []struct {
		name       string
		caller     Principal
		blobTenant string
		tier       models.ConfidentialityTier
		accepted   bool
		allowed    bool
		wantReason string
	}{
		{
			name:       "same tenant any tier",
			caller:     Principal{TenantID: "org-1", Role: models.RoleViewer},
			blobTenant: "org-1",
			tier:       models.TierL3,
			allowed:    true,
		},
		{
			name:       "cross tenant lowest tier",
			caller:     Principal{TenantID: "org-2", Role: models.RoleViewer},
			blobTenant: "org-1",
			tier:       models.TierL1,
			allowed:    true,
		},
		{
			name:       "cross tenant high tier without acceptance",
			caller:     Principal{TenantID: "org-2", Role: models.RoleMember},
			blobTenant: "org-1",
			tier:       models.TierL2,
			wantReason: ReasonBilateralAcceptanceRequired,
		},
		{
			name:       "cross tenant high tier with acceptance",
			caller:     Principal{TenantID: "org-2", Role: models.RoleMember},
			blobTenant: "org-1",
			tier:       models.TierL2,
			accepted:   true,
			allowed:    true,
		},
		{
			name:       "cross tenant highest tier without acceptance",
			caller:     Principal{TenantID: "org-2", Role: models.RoleAdmin},
			blobTenant: "org-1",
			tier:       models.TierL3,
			wantReason: ReasonBilateralAcceptanceRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.DecideDownload(tc.caller, tc.blobTenant, tc.tier, tc.accepted)
			if decision.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%t, got %t (reason %s)", tc.allowed, decision.Allowed, decision.Reason)
			}
			if decision.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, decision.Reason)
			}
		})
	}
}

func TestAssertHelpersMapToForbidden(t *testing.T) {
	policy := NewAccessPolicy(nil)

	err := policy.AssertCanUpload(Principal{TenantID: "org-1", Role: models.RoleViewer}, "org-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusFromError(err) != 403 {
		t.Fatalf("expected 403, got %d", StatusFromError(err))
	}
	if NumericCodeFromError(err) != ErrCodeRoleDenied {
		t.Fatalf("expected code %d, got %d", ErrCodeRoleDenied, NumericCodeFromError(err))
	}

	err = policy.AssertCanDownload(Principal{TenantID: "org-2", Role: models.RoleMember}, "org-1", models.TierL2, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if NumericCodeFromError(err) != ErrCodeBilateralAcceptanceRequired {
		t.Fatalf("expected code %d, got %d", ErrCodeBilateralAcceptanceRequired, NumericCodeFromError(err))
	}
}
