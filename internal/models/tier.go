package models

import (
	"fmt"
	"strings"
)

// ConfidentialityTier is the ordered classification that drives encryption
// and cross-tenant gating. Higher values are more restrictive.
type ConfidentialityTier int

const (
	TierL1 ConfidentialityTier = iota + 1
	TierL2
	TierL3
)

var tierNames = map[ConfidentialityTier]string{
	TierL1: "L1",
	TierL2: "L2",
	TierL3: "L3",
}

func (t ConfidentialityTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func (t ConfidentialityTier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

func ParseConfidentialityTier(raw string) (ConfidentialityTier, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return 0, fmt.Errorf("confidentiality tier is required")
	}
	for tier, name := range tierNames {
		if name == value {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("invalid confidentiality tier: %s", raw)
}
