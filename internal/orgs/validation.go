package orgs

import (
	"fmt"
	"strings"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
)

func (s *Service) validate(o Organization) error {
	if o.Name == "" {
		return fmt.Errorf("%w: organization name is required", httpx.ErrValidation)
	}
	if o.ID == 0 && o.Slug == "" {
		return fmt.Errorf("%w: organization slug is required", httpx.ErrValidation)
	}
	if o.Slug != "" && strings.ContainsAny(o.Slug, " /\\") {
		return fmt.Errorf("%w: slug must not contain spaces or slashes", httpx.ErrValidation)
	}
	if o.Country != "" && len(o.Country) != 2 {
		return fmt.Errorf("%w: country must be an ISO 3166-1 alpha-2 code", httpx.ErrValidation)
	}
	return nil
}
