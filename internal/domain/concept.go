package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Common validation errors for Concept
var (
	ErrEmptyConceptID          = errors.New("concept ID cannot be empty")
	ErrEmptyConceptName        = errors.New("concept name cannot be empty")
	ErrEmptyConceptDescription = errors.New("concept description cannot be empty")
	ErrEmptyConceptMaterials   = errors.New("concept materials cannot be empty")
	ErrEmptyImagePrompt        = errors.New("concept image prompt cannot be empty")
)

// Concept is one generated souvenir idea within a Job. Its ID is assigned once
// by the worker when the draft set is persisted and never changes. ImageURL
// starts empty and IsGeneratingImage starts true; exactly one image task flips
// IsGeneratingImage to false when it records its outcome.
type Concept struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Materials         []string  `json:"materials"`
	ImagePrompt       string    `json:"imagePrompt"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	IsGeneratingImage bool      `json:"isGeneratingImage"`
	Error             string    `json:"error,omitempty"`
}

// NewConcept builds a draft Concept with a fresh identity and image work
// pending. Returns an error if the draft fields fail validation.
func NewConcept(name, description string, materials []string, imagePrompt string) (*Concept, error) {
	c := &Concept{
		ID:                uuid.New(),
		Name:              name,
		Description:       description,
		Materials:         materials,
		ImagePrompt:       imagePrompt,
		IsGeneratingImage: true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the Concept carries all required fields.
func (c *Concept) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConceptID
	}
	if c.Name == "" {
		return ErrEmptyConceptName
	}
	if c.Description == "" {
		return ErrEmptyConceptDescription
	}
	if len(c.Materials) == 0 {
		return ErrEmptyConceptMaterials
	}
	if c.ImagePrompt == "" {
		return ErrEmptyImagePrompt
	}
	return nil
}

// BaseConcept is the caller-supplied seed for a variation request. It carries
// only the descriptive fields; identity and image state belong to the job that
// produced the original concept.
type BaseConcept struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Materials   []string `json:"materials,omitempty"`
}
