package config

// ProjectFileConfig mirrors nftwallet.toml.
//
//	[networks.sepolia]
//	rpc_url = "${SEPOLIA_RPC_URL}"
//	chain_id = 11155111
//	registry = "0x..."
//	implementation = "0x..."
//	token = "0x..."
//
//	[simulate]
//	chain_id = 31337
type ProjectFileConfig struct {
	DefaultNetwork string                       `toml:"default_network"`
	Networks       map[string]NetworkFileConfig `toml:"networks"`
	Simulate       SimulateFileConfig           `toml:"simulate"`
}

// NetworkFileConfig is one [networks.<name>] table.
type NetworkFileConfig struct {
	RPCURL         string `toml:"rpc_url"`
	ChainID        uint64 `toml:"chain_id"`
	Explorer       string `toml:"explorer"`
	Registry       string `toml:"registry"`
	Implementation string `toml:"implementation"`
	Token          string `toml:"token"`
	Guardian       string `toml:"guardian"`
	EntryPoint     string `toml:"entry_point"`
}

// SimulateFileConfig is the [simulate] table.
type SimulateFileConfig struct {
	ChainID  uint64 `toml:"chain_id"`
	Scenario string `toml:"scenario"`
	BaseURI  string `toml:"base_uri"`
}
