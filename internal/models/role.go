package models

import (
	"fmt"
	"strings"
)

// Role describes what a caller is allowed to do within its tenant.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:  {},
	RoleMember: {},
	RoleViewer: {},
}

func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if _, ok := validRoles[value]; !ok {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}
