package imagery

import (
	"fmt"

	"github.com/curiolab/curio-api/internal/domain"
)

// Registry maps tenant image-provider selections to configured providers.
// The stock provider is mandatory because it is the default for every tenant;
// the generative provider is optional and only tenants that ask for it need
// it to be configured.
type Registry struct {
	stock      Provider
	generative Provider
}

// NewRegistry creates a provider registry. A nil generative provider is
// allowed and makes generative tenants fail at selection time.
func NewRegistry(stock, generative Provider) (*Registry, error) {
	if stock == nil {
		return nil, fmt.Errorf("%w: stock provider is required", ErrProviderFailed)
	}
	return &Registry{stock: stock, generative: generative}, nil
}

// ForTenant returns the provider variant the tenant configuration selects.
func (r *Registry) ForTenant(tenant domain.TenantConfig) (Provider, error) {
	switch tenant.Provider() {
	case domain.ImageProviderGenerative:
		if r.generative == nil {
			return nil, fmt.Errorf("%w: generative provider is not configured", ErrProviderFailed)
		}
		return r.generative, nil
	default:
		return r.stock, nil
	}
}
