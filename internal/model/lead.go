// Package model defines the core types shared across the lead pipeline.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Stage represents a lead's position in the sales funnel.
type Stage string

const (
	StageLead      Stage = "lead"
	StageQualified Stage = "qualified"
	StageScheduled Stage = "scheduled"
	StageHeld      Stage = "held"
	StageWon       Stage = "won"
)

// Stages lists all funnel stages in funnel order. Funnel aggregation and
// display both rely on this ordering.
var Stages = []Stage{StageLead, StageQualified, StageScheduled, StageHeld, StageWon}

// ParseStage validates a raw stage string.
func ParseStage(raw string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", eris.Errorf("model: unknown stage %q", raw)
}

// Valid reports whether s is one of the five funnel stages.
func (s Stage) Valid() bool {
	_, err := ParseStage(string(s))
	return err == nil
}

// Lead is a sales lead moving through the qualification funnel.
//
// IsQualified and QualificationScore are derived values written only by the
// scoring engine; Stage is mutated only through the stage pipeline. Attributes
// is an open bag of externally-sourced key/value pairs whose key spelling
// varies by import source.
type Lead struct {
	ID                 string            `json:"id"`
	SessionID          string            `json:"session_id"`
	Name               string            `json:"name,omitempty"`
	Email              string            `json:"email,omitempty"`
	Phone              string            `json:"phone,omitempty"`
	Stage              Stage             `json:"stage"`
	IsQualified        bool              `json:"is_qualified"`
	QualificationScore int               `json:"qualification_score"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	OrderIndex         int               `json:"order_index"`
	Observation        string            `json:"observation,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// StageHistoryEntry is one committed stage transition. Entries are append-only
// and never updated or deleted; replaying a lead's entries in order
// reproduces its current stage.
type StageHistoryEntry struct {
	ID            string    `json:"id"`
	LeadID        string    `json:"lead_id"`
	PreviousStage *Stage    `json:"previous_stage,omitempty"` // nil on the initial transition
	NewStage      Stage     `json:"new_stage"`
	Actor         *string   `json:"actor,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
