package doge

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func Hash160toAddress(hash []byte, prefix byte) Address {
	ver_hash := [1 + 20 + 4]byte{}
	ver_hash[0] = prefix
	if copy(ver_hash[1:], hash) != 20 {
		panic("Hash160toAddress: wrong RIPEMD-160 length")
	}
	return Address(Base58EncodeCheck(ver_hash[0:21]))
}

func PubKeyToP2PKH(key []byte, chain *ChainParams) (Address, error) {
	if len(key) == ECPubKeyUncompressedLen && key[0] == 0x04 {
		pubkey, err := secp256k1.ParsePubKey(key)
		if err != nil {
			return "", err
		}
		key = pubkey.SerializeCompressed()
	}
	if len(key) != ECPubKeyCompressedLen || (key[0] != 0x02 && key[0] != 0x03) {
		return "", errors.New("PubKeyToP2PKH: invalid pubkey")
	}
	return Hash160toAddress(Hash160(key), chain.p2pkh_address_prefix), nil
}

func ValidateP2PKH(address Address, chain *ChainParams) bool {
	key, err := Base58DecodeCheck(string(address))
	if err != nil {
		return false
	}
	return len(key) == 21 && key[0] == chain.p2pkh_address_prefix
}

// DecodeP2PKH returns the 20-byte public key hash inside a P2PKH address.
func DecodeP2PKH(address Address, chain *ChainParams) ([]byte, error) {
	key, err := Base58DecodeCheck(string(address))
	if err != nil {
		return nil, err
	}
	if len(key) != 21 || key[0] != chain.p2pkh_address_prefix {
		return nil, errors.New("DecodeP2PKH: not a P2PKH address on this chain")
	}
	return key[1:], nil
}
