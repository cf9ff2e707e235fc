package generation

import (
	"context"

	"github.com/curiolab/curio-api/internal/domain"
)

// ConceptCount is the number of drafts a single generation call must return.
const ConceptCount = 3

// Draft is one schema-validated concept as returned by the text model, before
// the worker assigns it an identity.
type Draft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
	ImagePrompt string   `json:"imagePrompt"`
}

// Request describes one generation call. BaseConcept selects the variation
// template; Tenant may carry a prompt-template override.
type Request struct {
	Idea        string
	BaseConcept *domain.BaseConcept
	Tenant      domain.TenantConfig
}

// ConceptGenerator produces exactly ConceptCount validated drafts for a
// request, or an error. Implementations must never return a partial set.
type ConceptGenerator interface {
	GenerateConcepts(ctx context.Context, req Request) ([]Draft, error)
}
