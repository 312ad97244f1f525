// Package model defines domain entities for the application.
package model

import "strings"

// Plan is a named service tier.
type Plan string

// Plan constants.
const (
	PlanSource Plan = "source"
	PlanFlow   Plan = "flow"
	PlanPulse  Plan = "pulse"
	PlanNexus  Plan = "nexus"
	PlanAdmin  Plan = "admin"
)

// DefaultPlan is the tier assigned when a plan name is empty or unknown.
const DefaultPlan = PlanSource

// PlanQuotas maps each plan to its display quota of credits.
// This is the only quota table; the quota never caps or refills a balance.
var PlanQuotas = map[Plan]int64{
	PlanSource: 200,
	PlanFlow:   1000,
	PlanPulse:  2500,
	PlanNexus:  6000,
	PlanAdmin:  1000000,
}

// IsValid reports whether the plan is a known tier.
func (p Plan) IsValid() bool {
	_, ok := PlanQuotas[p]
	return ok
}

// NormalizePlan maps a free-form plan name to a known tier.
// Empty and unrecognized names fall back to DefaultPlan.
func NormalizePlan(name string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(name)))
	if !p.IsValid() {
		return DefaultPlan
	}
	return p
}

// QuotaFor returns the quota of a plan, using the default tier for unknown plans.
func QuotaFor(p Plan) int64 {
	if q, ok := PlanQuotas[p]; ok {
		return q
	}
	return PlanQuotas[DefaultPlan]
}

// PlanAssignment is the result of setting a user's plan.
type PlanAssignment struct {
	Plan  Plan  `json:"plan"`
	Quota int64 `json:"quota"`
}
