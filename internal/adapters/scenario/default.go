package scenario

import (
	_ "embed"
	"fmt"

	"github.com/trebuchet-org/nftwallet/internal/domain"
)

//go:embed default.yaml
var defaultScenario []byte

// Default returns the built-in scenario: two tokens minted with wallets and
// ERC-20 traffic through both accounts, followed by access checks after a
// transfer of token 0.
func Default() *domain.Scenario {
	s, err := Parse(defaultScenario)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario is invalid: %v", err))
	}
	return s
}
