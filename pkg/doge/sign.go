package doge

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const SIGHASH_ALL = 1

// SignatureHash computes the legacy (pre-segwit) SIGHASH_ALL digest for
// input n, where prevScript is the locking script being spent.
func SignatureHash(tx BlockTx, n int, prevScript []byte) ([]byte, error) {
	if n < 0 || n >= len(tx.VIn) {
		return nil, errors.New("SignatureHash: input index out of range")
	}
	vin := make([]BlockTxIn, len(tx.VIn))
	for i, in := range tx.VIn {
		vin[i] = in
		vin[i].Script = nil
	}
	vin[n].Script = prevScript
	tx.VIn = vin
	b := appendUint32le(EncodeTx(tx), SIGHASH_ALL)
	return DoubleSha256(b), nil
}

// SignP2PKHInput fills in the unlocking script of input n:
// <DER signature + hashtype> <compressed pubkey>.
func SignP2PKHInput(tx *BlockTx, n int, prevScript []byte, ecPrivKey PrivKey) error {
	if !ECKeyIsValid(ecPrivKey) {
		return errors.New("SignP2PKHInput: invalid private key")
	}
	hash, err := SignatureHash(*tx, n, prevScript)
	if err != nil {
		return err
	}
	priv := secp256k1.PrivKeyFromBytes(ecPrivKey)
	defer priv.Zero()
	sig := ecdsa.Sign(priv, hash).Serialize()
	pub := priv.PubKey().SerializeCompressed()

	script := make([]byte, 0, 2+len(sig)+1+len(pub))
	script = append(script, byte(len(sig)+1))
	script = append(script, sig...)
	script = append(script, SIGHASH_ALL)
	script = append(script, byte(len(pub)))
	script = append(script, pub...)
	tx.VIn[n].Script = script
	return nil
}

// VerifyP2PKHInput checks the unlocking script of input n against prevScript.
func VerifyP2PKHInput(tx BlockTx, n int, prevScript []byte) bool {
	if n < 0 || n >= len(tx.VIn) || len(prevScript) != 25 {
		return false
	}
	s := tx.VIn[n].Script
	if len(s) < 2 {
		return false
	}
	sigLen := int(s[0])
	if sigLen < 2 || len(s) < 1+sigLen+1 || s[sigLen] != SIGHASH_ALL {
		return false
	}
	der := s[1:sigLen]
	rest := s[1+sigLen:]
	if len(rest) != 1+ECPubKeyCompressedLen || int(rest[0]) != ECPubKeyCompressedLen {
		return false
	}
	pubBytes := rest[1:]
	if string(Hash160(pubBytes)) != string(prevScript[3:23]) {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	hash, err := SignatureHash(tx, n, prevScript)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pub)
}
