package doge

import (
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	SerializedBip32KeyLength = 4 + 1 + 4 + 4 + 32 + 33
	HardenedKeyStart         = uint32(0x80000000)
)

// ErrInvalidChild is returned for the (astronomically rare) indexes that do
// not produce a valid key; callers move on to the next index.
var ErrInvalidChild = errors.New("bip32: invalid child key, use the next index")

// https://en.bitcoin.it/wiki/BIP_0032
type Bip32Key struct {
	chain        *ChainParams
	version      uint32   // 4 version bytes (ChainParams.bip32_privkey_prefix / bip32_pubkey_prefix)
	depth        byte     // 0x00 for master nodes, 0x01 for level-1 derived keys, ...
	fingerprint  uint32   // the fingerprint of the parent's key (0x00000000 if master key)
	child_number uint32   // ser32(i) for i in xi = xpar/i (0x00000000 if master key)
	chain_code   [32]byte // the chain code
	pub_priv_key [33]byte // serP(K) for public keys, 0x00 || ser256(k) for private keys
}

func (key *Bip32Key) IsPrivate() bool {
	return key.pub_priv_key[0] == 0x00
}

func (key *Bip32Key) Chain() *ChainParams {
	return key.chain
}

func (key *Bip32Key) GetECPrivKey() ([]byte, error) {
	if !key.IsPrivate() {
		return nil, fmt.Errorf("Bip32Key is not a private key")
	}
	pk := make([]byte, ECPrivKeyLen)
	copy(pk, key.pub_priv_key[1:33])
	return pk, nil
}

func (key *Bip32Key) GetECPubKey() []byte {
	if key.IsPrivate() {
		return ECPubKeyFromECPrivKey(key.pub_priv_key[1:33])
	}
	pub := make([]byte, ECPubKeyCompressedLen)
	copy(pub, key.pub_priv_key[:])
	return pub
}

// Public returns the extended public key (neutered) for this key.
func (key *Bip32Key) Public() *Bip32Key {
	pub := *key
	if key.IsPrivate() {
		pub.version = key.chain.bip32_pubkey_prefix
		copy(pub.pub_priv_key[:], key.GetECPubKey())
	}
	return &pub
}

func (key *Bip32Key) Clear() {
	clear(key.pub_priv_key[:])
	clear(key.chain_code[:])
}

// DeriveChild implements CKDpriv for private keys and CKDpub for public
// keys. Hardened indexes require a private key.
func (key *Bip32Key) DeriveChild(index uint32) (*Bip32Key, error) {
	hardened := index >= HardenedKeyStart
	if hardened && !key.IsPrivate() {
		return nil, fmt.Errorf("bip32: cannot derive hardened child %d from a public key", index)
	}
	parentPub := key.GetECPubKey()
	data := make([]byte, 0, 33+4)
	if hardened {
		data = append(data, key.pub_priv_key[:]...)
	} else {
		data = append(data, parentPub...)
	}
	var idx [4]byte
	ser32(index, idx[:])
	data = append(data, idx[:]...)

	mac := hmac.New(sha512.New, key.chain_code[:])
	mac.Write(data)
	I := mac.Sum(nil)

	var il secp256k1.ModNScalar
	if overflow := il.SetByteSlice(I[:32]); overflow {
		return nil, ErrInvalidChild
	}
	child := &Bip32Key{
		chain:        key.chain,
		version:      key.version,
		depth:        key.depth + 1,
		fingerprint:  deser32(Hash160(parentPub)),
		child_number: index,
	}
	copy(child.chain_code[:], I[32:])

	if key.IsPrivate() {
		var kpar secp256k1.ModNScalar
		kpar.SetByteSlice(key.pub_priv_key[1:33])
		il.Add(&kpar)
		if il.IsZero() {
			return nil, ErrInvalidChild
		}
		k := il.Bytes()
		child.pub_priv_key[0] = 0x00
		copy(child.pub_priv_key[1:], k[:])
		return child, nil
	}

	parent, err := secp256k1.ParsePubKey(parentPub)
	if err != nil {
		return nil, err
	}
	var parentPoint, ilPoint, sum secp256k1.JacobianPoint
	parent.AsJacobian(&parentPoint)
	secp256k1.ScalarBaseMultNonConst(&il, &ilPoint)
	secp256k1.AddNonConst(&ilPoint, &parentPoint, &sum)
	if sum.Z.IsZero() || (sum.X.IsZero() && sum.Y.IsZero()) {
		return nil, ErrInvalidChild
	}
	sum.ToAffine()
	copy(child.pub_priv_key[:], secp256k1.NewPublicKey(&sum.X, &sum.Y).SerializeCompressed())
	return child, nil
}

// NewBip32MasterKey derives the master extended private key from seed.
func NewBip32MasterKey(seed []byte, chain *ChainParams) (*Bip32Key, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, fmt.Errorf("NewBip32MasterKey: seed must be 16 to 64 bytes")
	}
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	mac.Write(seed)
	I := mac.Sum(nil)
	defer clear(I)
	if !ECKeyIsValid(I[:32]) {
		return nil, ErrInvalidChild
	}
	key := &Bip32Key{chain: chain, version: chain.bip32_privkey_prefix}
	copy(key.pub_priv_key[1:], I[:32])
	copy(key.chain_code[:], I[32:])
	return key, nil
}

// DecodeBip32WIF decodes an extended key. A nil chain infers the chain
// from the version bytes.
func DecodeBip32WIF(extendedKey string, chain *ChainParams) (*Bip32Key, error) {
	data, err := Base58DecodeCheck(extendedKey)
	if err != nil {
		return nil, err
	}
	if len(data) != SerializedBip32KeyLength {
		return nil, fmt.Errorf("DecodeBip32WIF: not a bip32 extended key (wrong length)")
	}
	var key Bip32Key
	key.version = deser32(data[0:])
	if chain == nil {
		chain = ChainFromBip32Version(key.version)
		if chain == nil {
			return nil, fmt.Errorf("DecodeBip32WIF: unknown version prefix %08x", key.version)
		}
	}
	if key.version != chain.bip32_privkey_prefix && key.version != chain.bip32_pubkey_prefix {
		return nil, fmt.Errorf("DecodeBip32WIF: not a bip32 extended key (wrong prefix)")
	}
	key.chain = chain
	key.depth = data[4]
	key.fingerprint = deser32(data[5:])
	key.child_number = deser32(data[9:])
	copy(key.chain_code[:], data[13:45])
	copy(key.pub_priv_key[:], data[45:78])
	isPriv := key.version == chain.bip32_privkey_prefix
	if isPriv != key.IsPrivate() {
		return nil, fmt.Errorf("DecodeBip32WIF: key data does not match version prefix")
	}
	clear(data)
	return &key, nil
}

func EncodeBip32WIF(key *Bip32Key) (string, error) {
	data := make([]byte, SerializedBip32KeyLength, SerializedBip32KeyLength+4)
	ser32(key.version, data[0:4])
	data[4] = key.depth
	ser32(key.fingerprint, data[5:9])
	ser32(key.child_number, data[9:13])
	copy(data[13:45], key.chain_code[:])
	copy(data[45:78], key.pub_priv_key[:])
	return Base58EncodeCheck(data), nil
}

func ser32(i uint32, to []byte) {
	// serialize a 32-bit unsigned integer, most significant byte first.
	to[0] = byte(i >> 24)
	to[1] = byte(i >> 16)
	to[2] = byte(i >> 8)
	to[3] = byte(i >> 0)
}

func deser32(from []byte) uint32 {
	// deserialize a 32-bit unsigned integer, most significant byte first.
	return (uint32(from[0]) << 24) | (uint32(from[1]) << 16) | (uint32(from[2]) << 8) | (uint32(from[3]))
}
