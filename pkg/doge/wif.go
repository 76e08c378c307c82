package doge

import (
	"errors"
	"fmt"
)

// Compressed WIF payload: prefix, 32-byte key, 0x01 compression flag.
const wifPayloadLen = 1 + ECPrivKeyLen + 1

var errNotCompressedWIF = errors.New("wif: not a compressed-pubkey key")

// EncodeECPrivKeyWIF always marks the key for a compressed pubkey.
func EncodeECPrivKeyWIF(key PrivKey, chain *ChainParams) string {
	if len(key) != ECPrivKeyLen {
		panic("EncodeECPrivKeyWIF: wrong key length")
	}
	buf := make([]byte, 0, wifPayloadLen+4)
	buf = append(buf, chain.pkey_prefix)
	buf = append(buf, key...)
	buf = append(buf, 0x01)
	return Base58EncodeCheck(buf)
}

// DecodeECPrivKeyWIF decodes a compressed-pubkey WIF key. A nil chain
// accepts any known chain prefix.
func DecodeECPrivKeyWIF(str string, chain *ChainParams) (PrivKey, *ChainParams, error) {
	data, err := Base58DecodeCheck(str)
	if err != nil {
		return nil, nil, err
	}
	defer clear(data)
	if len(data) != wifPayloadLen || data[wifPayloadLen-1] != 0x01 {
		return nil, nil, errNotCompressedWIF
	}
	switch {
	case chain == nil:
		if chain = ChainFromWIFPrefix(data[0]); chain == nil {
			return nil, nil, fmt.Errorf("wif: unknown key prefix %#x", data[0])
		}
	case data[0] != chain.pkey_prefix:
		return nil, nil, fmt.Errorf("wif: key is not for %s", chain.ChainName)
	}
	return append(PrivKey(nil), data[1:1+ECPrivKeyLen]...), chain, nil
}

// WIFFromBip32 re-encodes the EC key inside an extended private key as a
// WIF key for the same chain.
func WIFFromBip32(xprv string) (string, error) {
	bkey, err := DecodeBip32WIF(xprv, nil)
	if err != nil {
		return "", err
	}
	defer bkey.Clear()
	priv, err := bkey.GetECPrivKey()
	if err != nil {
		return "", err
	}
	if !ECKeyIsValid(priv) {
		return "", errors.New("wif: extended key holds an invalid EC key")
	}
	return EncodeECPrivKeyWIF(priv, bkey.chain), nil
}

// AddressForWIF is the P2PKH address controlled by a WIF key.
func AddressForWIF(wif string) (Address, error) {
	priv, chain, err := DecodeECPrivKeyWIF(wif, nil)
	if err != nil {
		return "", err
	}
	pub := ECPubKeyFromECPrivKey(priv)
	clear(priv)
	return PubKeyToP2PKH(pub, chain)
}
