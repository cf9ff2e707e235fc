package api

import (
	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/domain"
)

// Common request/response structures

// StartJobRequest defines the payload for the job creation endpoint.
type StartJobRequest struct {
	// Idea is the free-text souvenir idea to expand into concepts.
	Idea string `json:"idea" validate:"required,min=1"`

	// BaseConcept switches the job to variation mode when present.
	BaseConcept *domain.BaseConcept `json:"baseConcept,omitempty"`

	// Tenant carries optional per-tenant overrides.
	Tenant domain.TenantConfig `json:"tenant,omitempty"`
}

// StartJobResponse acknowledges an accepted job. Processing continues in the
// background; clients poll or observe the job for progress.
type StartJobResponse struct {
	JobID  uuid.UUID `json:"jobId"`
	Status string    `json:"status"`
}
