package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

// envVarPattern matches ${VAR_NAME} references in TOML values
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadProjectFile decodes nftwallet.toml. Returns (nil, nil) when the file
// does not exist.
func LoadProjectFile(projectRoot string) (*config.ProjectFileConfig, error) {
	path := filepath.Join(projectRoot, ProjectFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var cfg config.ProjectFileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFileName, err)
	}
	if err := ValidateProjectFile(&cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ProjectFileName, err)
	}
	return &cfg, nil
}

// ValidateProjectFile reports every malformed entry at once.
func ValidateProjectFile(cfg *config.ProjectFileConfig) error {
	var result *multierror.Error

	if cfg.DefaultNetwork != "" {
		if _, ok := cfg.Networks[cfg.DefaultNetwork]; !ok {
			result = multierror.Append(result, fmt.Errorf("default_network %q is not defined", cfg.DefaultNetwork))
		}
	}

	for name, network := range cfg.Networks {
		if network.RPCURL == "" {
			result = multierror.Append(result, fmt.Errorf("networks.%s: rpc_url is required", name))
		}
		fields := map[string]string{
			"registry":       network.Registry,
			"implementation": network.Implementation,
			"token":          network.Token,
			"guardian":       network.Guardian,
			"entry_point":    network.EntryPoint,
		}
		for field, value := range fields {
			if value != "" && !common.IsHexAddress(value) {
				result = multierror.Append(result, fmt.Errorf("networks.%s: %s %q is not an address", name, field, value))
			}
		}
	}

	return result.ErrorOrNil()
}

// ExpandEnv substitutes ${VAR} references, failing on unset variables.
func ExpandEnv(raw string) (string, error) {
	var missing *multierror.Error
	expanded := envVarPattern.ReplaceAllStringFunc(raw, func(ref string) string {
		name := envVarPattern.FindStringSubmatch(ref)[1]
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = multierror.Append(missing, fmt.Errorf("environment variable %s is not set", name))
		}
		return value
	})
	if err := missing.ErrorOrNil(); err != nil {
		return "", err
	}
	return expanded, nil
}

// resolveNetwork fills network and contract settings from the project file
func resolveNetwork(cfg *config.RuntimeConfig, projectFile *config.ProjectFileConfig, name string) error {
	if projectFile == nil {
		return fmt.Errorf("network '%s' requested but no %s found in %s", name, ProjectFileName, cfg.ProjectRoot)
	}
	entry, ok := projectFile.Networks[name]
	if !ok {
		return fmt.Errorf("network '%s' not found in %s", name, ProjectFileName)
	}

	rpcURL, err := ExpandEnv(entry.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to resolve network %s: %w", name, err)
	}

	cfg.Network = &config.Network{
		Name:        name,
		ChainID:     entry.ChainID,
		RPCURL:      rpcURL,
		ExplorerURL: entry.Explorer,
	}
	cfg.Contracts = config.Contracts{
		Registry:       common.HexToAddress(entry.Registry),
		Implementation: common.HexToAddress(entry.Implementation),
		TokenContract:  common.HexToAddress(entry.Token),
		Guardian:       common.HexToAddress(entry.Guardian),
		EntryPoint:     common.HexToAddress(entry.EntryPoint),
	}
	return nil
}

// ContractOverrides are command-line replacements for configured addresses.
type ContractOverrides struct {
	Registry       string
	Implementation string
	Token          string
}

// Apply validates and writes the non-empty overrides into contracts
func (o ContractOverrides) Apply(contracts *config.Contracts) error {
	var result *multierror.Error
	set := func(flag, value string, dst *common.Address) {
		if value == "" {
			return
		}
		if !common.IsHexAddress(value) {
			result = multierror.Append(result, fmt.Errorf("--%s %q is not an address", flag, value))
			return
		}
		*dst = common.HexToAddress(value)
	}
	set("registry", o.Registry, &contracts.Registry)
	set("implementation", o.Implementation, &contracts.Implementation)
	set("token", o.Token, &contracts.TokenContract)
	return result.ErrorOrNil()
}

// loadEnvFiles loads .env files without overriding the process environment
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
		}
	}
}
