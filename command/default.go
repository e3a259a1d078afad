package command

import "github.com/rei-network/executive/chain"

const (
	DefaultGenesisFileName = "genesis.json"
	DefaultChainPreset     = chain.Devnet
	DefaultPremineBalance  = "0x3635C9ADC5DEA00000" // 1000 REI
	DefaultLogLevel        = "INFO"
)

const (
	JSONOutputFlag = "json"
	LogLevelFlag   = "log-level"
	JSONLogFlag    = "json-log"
)
