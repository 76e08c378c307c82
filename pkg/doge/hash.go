package doge

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160"
)

func Sha256(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// DoubleSha256 is the hash behind txids, sighashes and base58 checksums.
func DoubleSha256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

func RIPEMD160(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b) // never fails
	return h.Sum(nil)
}

// Hash160 is RIPEMD160(SHA256(b)): the public key hash in P2PKH scripts.
func Hash160(b []byte) []byte {
	return RIPEMD160(Sha256(b))
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func HexDecode(str string) ([]byte, error) {
	return hex.DecodeString(str)
}

// IsHash reports whether s is a hex-encoded 32-byte hash such as a txid.
func IsHash(s string) bool {
	b, err := HexDecode(s)
	return err == nil && len(b) == 32
}
