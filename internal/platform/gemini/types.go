// Package gemini implements the generation.ConceptGenerator interface using
// Google's Gemini API.
package gemini

// promptData is the data contract shared by the built-in templates and any
// tenant-supplied override.
type promptData struct {
	// Idea is the free-text user request.
	Idea string

	// ConceptCount is the exact number of concepts the model must return.
	ConceptCount int

	// BaseName/BaseDescription/BaseMaterials describe the concept to vary.
	// Empty for fresh ideation.
	BaseName        string
	BaseDescription string
	BaseMaterials   []string
}

// responseSchema is the expected structure of the model's JSON reply.
type responseSchema struct {
	Concepts []conceptSchema `json:"concepts"`
}

// conceptSchema is a single concept in the API response.
type conceptSchema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
	ImagePrompt string   `json:"imagePrompt"`
}
