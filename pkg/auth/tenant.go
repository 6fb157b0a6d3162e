package auth

import (
	"github.com/tw-smith/authserver/pkg/kernel"
)

// Tenant holds the per-service notification copy and link targets. A single
// Account type with an explicit Service field plus this lookup replaces the
// per-tenant model hierarchies of earlier designs.
type Tenant struct {
	Service                   kernel.Service
	BaseURL                   string
	VerificationTemplate      string
	PasswordResetTemplate     string
	ResetConfirmationTemplate string
}

// TenantRegistry maps a service discriminator to its tenant configuration.
type TenantRegistry map[kernel.Service]Tenant

// Lookup returns the tenant for a service, or an error for services this
// deployment does not serve.
func (r TenantRegistry) Lookup(service kernel.Service) (Tenant, error) {
	t, ok := r[service]
	if !ok {
		return Tenant{}, ErrUnknownService().WithDetail("service", service.String())
	}
	return t, nil
}

// Has reports whether the registry serves the given service.
func (r TenantRegistry) Has(service kernel.Service) bool {
	_, ok := r[service]
	return ok
}
