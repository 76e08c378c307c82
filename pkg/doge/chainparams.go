package doge

import "fmt"

type ChainParams struct {
	ChainName            string
	p2pkh_address_prefix byte
	p2sh_address_prefix  byte
	pkey_prefix          byte
	bip32_privkey_prefix uint32
	bip32_pubkey_prefix  uint32
}

var DogeMainNetChain ChainParams = ChainParams{
	ChainName:            "mainnet",
	p2pkh_address_prefix: 0x1e,       // D
	p2sh_address_prefix:  0x16,       // 9 or A
	pkey_prefix:          0x9e,       // Q or 6
	bip32_privkey_prefix: 0x02fac398, // dgpv
	bip32_pubkey_prefix:  0x02facafd, // dgub
}

var DogeTestNetChain ChainParams = ChainParams{
	ChainName:            "testnet",
	p2pkh_address_prefix: 0x71,       // n
	p2sh_address_prefix:  0xc4,       // 2
	pkey_prefix:          0xf1,       // 9 or c
	bip32_privkey_prefix: 0x04358394, // tprv
	bip32_pubkey_prefix:  0x043587cf, // tpub
}

var DogeRegTestChain ChainParams = ChainParams{
	ChainName:            "regtest",
	p2pkh_address_prefix: 0x6f,       // m or n
	p2sh_address_prefix:  0xc4,       // 2
	pkey_prefix:          0xef,       // c
	bip32_privkey_prefix: 0x04358394, // tprv
	bip32_pubkey_prefix:  0x043587cf, // tpub
}

var BitcoinMainChain ChainParams = ChainParams{
	ChainName:            "bitcoin",
	p2pkh_address_prefix: 0x00,       // 1
	p2sh_address_prefix:  0x05,       // 3
	pkey_prefix:          0x80,       // 5H,5J,5K
	bip32_privkey_prefix: 0x0488ADE4, // xprv
	bip32_pubkey_prefix:  0x0488B21E, // xpub
}

// ChainFromNetwork maps a configured network identifier to its chain params.
func ChainFromNetwork(network string) (*ChainParams, error) {
	switch network {
	case "mainnet", "main":
		return &DogeMainNetChain, nil
	case "testnet", "test":
		return &DogeTestNetChain, nil
	case "regtest":
		return &DogeRegTestChain, nil
	}
	return nil, fmt.Errorf("unknown network: %q", network)
}

func ChainFromWIFPrefix(prefix byte) *ChainParams {
	switch prefix {
	case DogeMainNetChain.pkey_prefix:
		return &DogeMainNetChain
	case DogeTestNetChain.pkey_prefix:
		return &DogeTestNetChain
	case DogeRegTestChain.pkey_prefix:
		return &DogeRegTestChain
	case BitcoinMainChain.pkey_prefix:
		return &BitcoinMainChain
	}
	return nil
}

// NB. testnet and regtest share bip32 prefixes; tprv/tpub decode as testnet.
func ChainFromBip32Version(version uint32) *ChainParams {
	switch version {
	case DogeMainNetChain.bip32_privkey_prefix, DogeMainNetChain.bip32_pubkey_prefix:
		return &DogeMainNetChain
	case DogeTestNetChain.bip32_privkey_prefix, DogeTestNetChain.bip32_pubkey_prefix:
		return &DogeTestNetChain
	case BitcoinMainChain.bip32_privkey_prefix, BitcoinMainChain.bip32_pubkey_prefix:
		return &BitcoinMainChain
	}
	return nil
}
