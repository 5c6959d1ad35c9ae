// Package scenario reads simulation scenarios from YAML files.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
	"gopkg.in/yaml.v3"
)

// Loader implements ScenarioLoader
type Loader struct{}

// NewLoader creates a new scenario loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses and validates a scenario file
func (l *Loader) Load(path string) (*domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in scenario
func (l *Loader) Default() *domain.Scenario {
	return Default()
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(data []byte) (*domain.Scenario, error) {
	var s domain.Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

var knownKinds = map[domain.StepKind]bool{
	domain.StepMint:            true,
	domain.StepCreateAccount:   true,
	domain.StepERC20Mint:       true,
	domain.StepERC20Transfer:   true,
	domain.StepTransferNFT:     true,
	domain.StepBurn:            true,
	domain.StepGuardianApprove: true,
	domain.StepRelay:           true,
	domain.StepExpectBalance:   true,
}

// Validate reports every structural problem in a scenario at once.
func Validate(s *domain.Scenario) error {
	var result *multierror.Error
	if s.Name == "" {
		result = multierror.Append(result, fmt.Errorf("scenario has no name"))
	}
	if len(s.Steps) == 0 {
		result = multierror.Append(result, fmt.Errorf("scenario has no steps"))
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("step %d (%s)", i+1, step.Kind)
		if !knownKinds[step.Kind] {
			result = multierror.Append(result, fmt.Errorf("%s: unknown kind", where))
			continue
		}
		if step.From == "" && step.Kind != domain.StepExpectBalance {
			result = multierror.Append(result, fmt.Errorf("%s: from is required", where))
		}
		if step.ExpectError != "" && !usecase.KnownErrorClass(step.ExpectError) {
			result = multierror.Append(result, fmt.Errorf("%s: unknown expect_error %q", where, step.ExpectError))
		}

		switch step.Kind {
		case domain.StepTransferNFT, domain.StepBurn, domain.StepCreateAccount:
			if step.Token == nil {
				result = multierror.Append(result, fmt.Errorf("%s: token is required", where))
			}
		case domain.StepGuardianApprove, domain.StepRelay:
			if step.Via == nil {
				result = multierror.Append(result, fmt.Errorf("%s: via is required", where))
			}
		}

		switch step.Kind {
		case domain.StepERC20Transfer, domain.StepExpectBalance:
			if step.To == "" {
				result = multierror.Append(result, fmt.Errorf("%s: to is required", where))
			}
			if _, err := usecase.ParseTokenAmount(step.Amount); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", where, err))
			}
		case domain.StepTransferNFT, domain.StepGuardianApprove:
			if step.To == "" {
				result = multierror.Append(result, fmt.Errorf("%s: to is required", where))
			}
		}
	}
	return result.ErrorOrNil()
}

// Ensure Loader implements ScenarioLoader
var _ usecase.ScenarioLoader = (*Loader)(nil)
