package config

import "slices"

// LocalConfig holds per-checkout overrides stored in
// .nftwallet/config.local.json. Keys match viper keys so the file is read
// back by the normal config pipeline.
type LocalConfig struct {
	Network  string `json:"network,omitempty"`
	Scenario string `json:"scenario,omitempty"`
}

// ConfigKey names a settable local config value
type ConfigKey string

const (
	ConfigKeyNetwork  ConfigKey = "network"
	ConfigKeyScenario ConfigKey = "scenario"
)

// ValidConfigKeys returns all keys accepted by config set/remove
func ValidConfigKeys() []ConfigKey {
	return []ConfigKey{ConfigKeyNetwork, ConfigKeyScenario}
}

// IsValidConfigKey checks if a key is valid
func IsValidConfigKey(key string) bool {
	return slices.Contains(ValidConfigKeys(), ConfigKey(key))
}

// Get returns the value stored under key
func (c *LocalConfig) Get(key ConfigKey) string {
	switch key {
	case ConfigKeyNetwork:
		return c.Network
	case ConfigKeyScenario:
		return c.Scenario
	}
	return ""
}

// Set stores value under key. An empty value clears it.
func (c *LocalConfig) Set(key ConfigKey, value string) {
	switch key {
	case ConfigKeyNetwork:
		c.Network = value
	case ConfigKeyScenario:
		c.Scenario = value
	}
}
