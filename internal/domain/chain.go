package domain

// Chain identifies a blockchain network. The chain decides the address
// format and which security providers apply.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainBase     Chain = "base"
	ChainArbitrum Chain = "arbitrum"
	ChainPolygon  Chain = "polygon"
	ChainSolana   Chain = "solana"
)

// DefaultEVMChain is assigned to extracted 0x-addresses; narrowing to a
// specific EVM network is left to the caller.
const DefaultEVMChain = ChainEthereum

// Family groups chains by address format and provider applicability.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
)

// Family returns the chain family. Unknown chains are treated as EVM,
// matching how extraction classifies 0x-addresses.
func (c Chain) Family() Family {
	if c == ChainSolana {
		return FamilySolana
	}
	return FamilyEVM
}

// Valid reports whether the chain is one of the supported networks.
func (c Chain) Valid() bool {
	switch c {
	case ChainEthereum, ChainBSC, ChainBase, ChainArbitrum, ChainPolygon, ChainSolana:
		return true
	}
	return false
}
