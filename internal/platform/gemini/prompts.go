package gemini

// The built-in prompt templates. Both end with the same output contract so the
// response can be machine-checked: a single JSON object with exactly
// {{.ConceptCount}} concepts, each carrying a name, a description, a non-empty
// materials list, and an image prompt written for a photorealistic rendering.
// Tenant overrides replace the body but are executed against the same
// promptData contract.

const freshIdeationTemplate = `You are a product designer for a souvenir studio.

A customer asked for: "{{.Idea}}"

Design exactly {{.ConceptCount}} original souvenir concepts for this request.

Respond with a single JSON object of this exact shape and nothing else:
{
  "concepts": [
    {
      "name": "short product name",
      "description": "two to three sentences describing the souvenir",
      "materials": ["at least one material"],
      "imagePrompt": "a prompt for a photorealistic product rendering of this souvenir"
    }
  ]
}

Rules:
- The "concepts" array must contain exactly {{.ConceptCount}} objects.
- Every "materials" array must contain at least one entry.
- Every "imagePrompt" must describe a photorealistic product photograph, not an illustration.
- Do not wrap the JSON in markdown fences or add commentary.`

const variationTemplate = `You are a product designer for a souvenir studio.

A customer liked this concept and wants variations of it:
Name: {{.BaseName}}
Description: {{.BaseDescription}}
{{- if .BaseMaterials}}
Materials: {{range $i, $m := .BaseMaterials}}{{if $i}}, {{end}}{{$m}}{{end}}
{{- end}}

Their original request was: "{{.Idea}}"

Design exactly {{.ConceptCount}} distinct variations of that concept.

Respond with a single JSON object of this exact shape and nothing else:
{
  "concepts": [
    {
      "name": "short product name",
      "description": "two to three sentences describing the variation",
      "materials": ["at least one material"],
      "imagePrompt": "a prompt for a photorealistic product rendering of this variation"
    }
  ]
}

Rules:
- The "concepts" array must contain exactly {{.ConceptCount}} objects.
- Every "materials" array must contain at least one entry.
- Every "imagePrompt" must describe a photorealistic product photograph, not an illustration.
- Do not wrap the JSON in markdown fences or add commentary.`
