package usecase

import (
	"errors"

	"github.com/trebuchet-org/nftwallet/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
