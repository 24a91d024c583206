package providers

import (
	"errors"
	"fmt"

	"github.com/affiliateops/backend/internal/models"
)

// ErrCredentialsMissing is returned by an adapter whose credentials are not configured.
var ErrCredentialsMissing = errors.New("credentials missing")

// ErrProviderUnavailable matches every *ProviderUnavailableError via errors.Is.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ProviderUnavailableError reports a failed call to a network's API.
type ProviderUnavailableError struct {
	Network    models.NetworkName
	StatusCode int
	Err        error
}

func (e *ProviderUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s unavailable: status=%d: %v", e.Network, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Network, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

func (e *ProviderUnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

func unavailable(network models.NetworkName, status int, err error) error {
	return &ProviderUnavailableError{Network: network, StatusCode: status, Err: err}
}
