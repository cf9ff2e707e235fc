package domain

// ImageProviderKind selects which image provider variant a job uses.
type ImageProviderKind string

const (
	// ImageProviderStock is the fast stock-photo search variant (default).
	ImageProviderStock ImageProviderKind = "stock"

	// ImageProviderGenerative is the slower generative backend with
	// upload-to-blob-storage.
	ImageProviderGenerative ImageProviderKind = "generative"
)

// TenantConfig carries per-tenant overrides for a single job: a custom prompt
// template body and the image provider choice. Both are optional; the zero
// value means "use the service defaults".
type TenantConfig struct {
	PromptTemplate string            `json:"promptTemplate,omitempty"`
	ImageProvider  ImageProviderKind `json:"imageProvider,omitempty"`
}

// Provider resolves the effective image provider variant, defaulting to stock.
func (t TenantConfig) Provider() ImageProviderKind {
	if t.ImageProvider == ImageProviderGenerative {
		return ImageProviderGenerative
	}
	return ImageProviderStock
}
