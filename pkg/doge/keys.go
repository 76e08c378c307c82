package doge

import "github.com/decred/dcrd/dcrec/secp256k1/v4"

const (
	ECPrivKeyLen            = 32 // bytes.
	ECPubKeyCompressedLen   = 33 // bytes: [2/3][32-X] 2=even 3=odd
	ECPubKeyUncompressedLen = 65 // bytes: [4][32-X][32-Y]
)

type PrivKey = []byte            // 32 bytes.
type PubKeyCompressed = []byte   // 33 bytes.
type PubKeyUncompressed = []byte // 65 bytes.

func ECPubKeyFromECPrivKey(pk PrivKey) PubKeyCompressed {
	return secp256k1.PrivKeyFromBytes(pk).PubKey().SerializeCompressed()
}

// ECKeyIsValid is false for a zero key or a key >= the curve order N.
func ECKeyIsValid(pk PrivKey) bool {
	if len(pk) != ECPrivKeyLen {
		return false
	}
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(pk)
	return !overflow && !s.IsZero()
}
