package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscan/rugscan/internal/domain"
)

func TestExtract_EVMAddress(t *testing.T) {
	addrs := Extract("check out 0x1234567890123456789012345678901234567890 today")
	require.Len(t, addrs, 1)
	assert.Equal(t, domain.DefaultEVMChain, addrs[0].Chain)
	assert.Equal(t, "0x1234567890123456789012345678901234567890", addrs[0].Value)
}

func TestExtract_EVMNormalizesCase(t *testing.T) {
	addrs := Extract("0xAbCdEf1234567890123456789012345678901234")
	require.Len(t, addrs, 1)
	assert.Equal(t, "0xabcdef1234567890123456789012345678901234", addrs[0].Value)
}

func TestExtract_EVMDeduplicates(t *testing.T) {
	text := "0x1234567890123456789012345678901234567890 0x1234567890123456789012345678901234567890"
	addrs := Extract(text)
	assert.Len(t, addrs, 1)
}

func TestExtract_EVMDedupIsCaseInsensitive(t *testing.T) {
	text := "0xABCDEF1234567890123456789012345678901234 0xabcdef1234567890123456789012345678901234"
	addrs := Extract(text)
	assert.Len(t, addrs, 1)
}

func TestExtract_EVMRejectsPartialOfLongerRun(t *testing.T) {
	// 64 hex chars: a transaction hash, not an address.
	addrs := Extract("tx 0x1234567890123456789012345678901234567890123456789012345678901234")
	assert.Empty(t, addrs)
}

func TestExtract_Base58Address(t *testing.T) {
	addrs := Extract("new mint EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v launched")
	require.Len(t, addrs, 1)
	assert.Equal(t, domain.ChainSolana, addrs[0].Chain)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", addrs[0].Value)
}

func TestExtract_Base58PreservesCase(t *testing.T) {
	addrs := Extract("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.Len(t, addrs, 1)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", addrs[0].Value)
}

func TestExtract_RejectsAllLetterWords(t *testing.T) {
	// 35 base58-alphabet letters with no digit: rejected even though
	// the mixed-case rule alone would accept it.
	addrs := Extract("abcdefghjkmnpqrstuvwxyzABCDEFGHJKMN")
	assert.Empty(t, addrs)
}

func TestExtract_RejectsURLPathTokens(t *testing.T) {
	texts := []string{
		"see https://example.com/token/EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"www.dexscreener.com/solana/EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	}
	for _, text := range texts {
		for _, addr := range Extract(text) {
			assert.NotEqual(t, domain.ChainSolana, addr.Chain, "base58 false positive in %q", text)
		}
	}
}

func TestExtract_ContractLabelOverridesURLSuppression(t *testing.T) {
	text := "https://pump.fun CA: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	addrs := Extract(text)
	require.Len(t, addrs, 1)
	assert.Equal(t, domain.ChainSolana, addrs[0].Chain)
}

func TestExtract_RejectsBareDomain(t *testing.T) {
	addrs := Extract("visit CoolTokenProjectWebsite12345.com now")
	assert.Empty(t, addrs)
}

func TestExtract_VanitySuffixAccepted(t *testing.T) {
	// All letters except the vanity suffix keeps it acceptable.
	addrs := Extract("8sBjsGpeiaroBmHrBhcLKBUfTbKHZEYmVgazqhCypump")
	require.Len(t, addrs, 1)
	assert.Equal(t, domain.ChainSolana, addrs[0].Chain)
}

func TestExtract_EmptyInput(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("   \n\t  "))
	assert.Empty(t, Extract("no addresses here at all"))
}

func TestExtract_MixedText(t *testing.T) {
	text := "EVM: 0x1234567890123456789012345678901234567890 and SOL CA: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	addrs := Extract(text)
	require.Len(t, addrs, 2)
	assert.Equal(t, domain.DefaultEVMChain, addrs[0].Chain)
	assert.Equal(t, domain.ChainSolana, addrs[1].Chain)
}

func TestValidSolanaAddress(t *testing.T) {
	assert.True(t, ValidSolanaAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
	assert.False(t, ValidSolanaAddress("notbase58!!!"))
	assert.False(t, ValidSolanaAddress("abc"))
}
