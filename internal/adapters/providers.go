package adapters

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/nftwallet/internal/adapters/abi"
	"github.com/trebuchet-org/nftwallet/internal/adapters/blockchain"
	"github.com/trebuchet-org/nftwallet/internal/adapters/devchain"
	"github.com/trebuchet-org/nftwallet/internal/adapters/fs"
	"github.com/trebuchet-org/nftwallet/internal/adapters/metrics"
	"github.com/trebuchet-org/nftwallet/internal/adapters/scenario"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewAccountStoreAdapter,
	wire.Bind(new(usecase.AccountStore), new(*fs.AccountStoreAdapter)),
	fs.NewLocalConfigStoreAdapter,
	wire.Bind(new(usecase.LocalConfigStore), new(*fs.LocalConfigStoreAdapter)),
)

// ABISet provides log decoding
var ABISet = wire.NewSet(
	abi.NewEventDecoder,
	wire.Bind(new(usecase.EventDecoder), new(*abi.EventDecoder)),
)

// BlockchainSet provides blockchain-based implementations
var BlockchainSet = wire.NewSet(
	blockchain.NewCheckerAdapter,
	wire.Bind(new(usecase.BlockchainChecker), new(*blockchain.CheckerAdapter)),
)

// DevChainSet provides the in-process chain used for simulation
var DevChainSet = wire.NewSet(
	devchain.NewManager,
	wire.Bind(new(usecase.DevChainManager), new(*devchain.Manager)),
)

// ScenarioSet provides scenario file loading
var ScenarioSet = wire.NewSet(
	scenario.NewLoader,
	wire.Bind(new(usecase.ScenarioLoader), new(*scenario.Loader)),
)

// MetricsSet provides Prometheus counters
var MetricsSet = wire.NewSet(
	metrics.NewRecorder,
	wire.Bind(new(usecase.MetricsRecorder), new(*metrics.Recorder)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	ABISet,
	BlockchainSet,
	DevChainSet,
	ScenarioSet,
	MetricsSet,
)
