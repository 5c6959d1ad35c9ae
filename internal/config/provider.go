package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

const (
	// ProjectFileName is the optional project configuration file
	ProjectFileName = "nftwallet.toml"
	// DataDirName holds the local account index and config overrides
	DataDirName = ".nftwallet"
	// EnvPrefix namespaces environment overrides
	EnvPrefix = "NFTWALLET"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	projectFile, err := LoadProjectFile(projectRoot)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, DataDirName),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		ConfigSource:   "defaults",
	}
	if projectFile != nil {
		cfg.ConfigSource = ProjectFileName
		cfg.Networks = lo.Keys(projectFile.Networks)
		slices.Sort(cfg.Networks)
		cfg.Simulate = config.Simulate{
			ChainID:  projectFile.Simulate.ChainID,
			Scenario: projectFile.Simulate.Scenario,
			BaseURI:  projectFile.Simulate.BaseURI,
		}
	}
	if scenario := v.GetString("scenario"); scenario != "" {
		cfg.Simulate.Scenario = scenario
	}

	networkName := v.GetString("network")
	if networkName == "" && projectFile != nil {
		networkName = projectFile.DefaultNetwork
	}
	if networkName != "" {
		if err := resolveNetwork(cfg, projectFile, networkName); err != nil {
			return nil, err
		}
	}

	overrides := ContractOverrides{
		Registry:       v.GetString("registry"),
		Implementation: v.GetString("implementation"),
		Token:          v.GetString("token"),
	}
	if err := overrides.Apply(&cfg.Contracts); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindProjectRoot walks up from the current directory to find nftwallet.toml.
// Without one the current directory is the project root.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	// Missing config file is fine
	_ = v.ReadInConfig()

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				panic(err)
			}
		})
	}

	return v
}
