package domain

import (
	"fmt"
	"strings"
)

// Address is a normalized (chain, address string) pair. EVM addresses
// normalize to lowercase hex; base58 addresses preserve case because the
// encoding is case-significant.
type Address struct {
	Chain Chain  `json:"chain"`
	Value string `json:"address"`
}

// NewAddress normalizes raw into an Address for the given chain.
func NewAddress(chain Chain, raw string) Address {
	raw = strings.TrimSpace(raw)
	if chain.Family() == FamilyEVM {
		raw = strings.ToLower(raw)
	}
	return Address{Chain: chain, Value: raw}
}

// Key returns the canonical identity used for cache keys, dedup and
// watchlist membership: "<chain>:<normalized address>".
func (a Address) Key() string {
	return fmt.Sprintf("%s:%s", a.Chain, a.Value)
}

func (a Address) String() string {
	return a.Key()
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.Value == ""
}
