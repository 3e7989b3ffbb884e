package model

import "time"

// Template is stored markup with {{token}} placeholders. One template per
// kind is active at a time; the lookup key is (kind, is_active).
type Template struct {
	ID                 string    `json:"id"`
	Kind               Kind      `json:"kind"`
	Name               string    `json:"name"`
	Content            string    `json:"content"`
	ExternalTemplateID string    `json:"external_template_id,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FallbackChains declares, per kind, the ordered list of kinds whose active
// template stands in when the kind has no active template of its own. New
// kinds declare their own chain here instead of branching in the
// orchestrator.
var FallbackChains = map[Kind][]Kind{
	KindFreelancerAgreement: {KindClientAgreement},
}
