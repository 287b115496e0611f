package types

import "time"

const (
	WorkflowFieldCurrentStep = "currentStep"
	WorkflowFieldLastAction  = "lastAction"
	WorkflowFieldSituation   = "situation"
	WorkflowFieldTimestamp   = "timestamp"
)

type WorkflowState struct {
	CurrentStep string         `json:"currentStep"`
	LastAction  string         `json:"lastAction"`
	Situation   string         `json:"situation"`
	Timestamp   int64          `json:"timestamp"`
	Extra       map[string]any `json:"extra,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type SuggestedAction struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}
