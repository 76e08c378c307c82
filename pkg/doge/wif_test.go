package doge

import (
	"bytes"
	"testing"
)

func TestWIFRoundTrip(t *testing.T) {
	pkey := hx2b("0C28FCA386C7A227600B2FE50B7CAE11EC86D3BF1FBE471BE89827E19D72AA1D")
	wif := EncodeECPrivKeyWIF(pkey, &DogeMainNetChain)
	if wif != "QP2GKa5kuU2i2G3xJMH5KL9NErbVYGxMoRiF5trrJJvHzrJ2Ebp7" {
		t.Fatalf("encoded %v", wif)
	}
	key, chain, err := DecodeECPrivKeyWIF(wif, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chain != &DogeMainNetChain {
		t.Errorf("decoded chain %s", chain.ChainName)
	}
	if !bytes.Equal(key, pkey) {
		t.Errorf("decoded %x, want %x", key, pkey)
	}
	if _, _, err := DecodeECPrivKeyWIF(wif, &DogeTestNetChain); err == nil {
		t.Errorf("accepted a mainnet key for testnet")
	}
	// an address is not a key
	if _, _, err := DecodeECPrivKeyWIF("DBXu2kgc3xtvCUWFcxFE3r9hEYgmuaaCyD", nil); err == nil {
		t.Errorf("decoded an address as a key")
	}
}

// The EC key pulled out of an xprv must control the same address as the
// xprv's own public key.
func TestWIFFromBip32(t *testing.T) {
	xprv := "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
	wif, err := WIFFromBip32(xprv)
	if err != nil {
		t.Fatalf("WIFFromBip32: %v", err)
	}
	if wif != "L52XzL2cMkHxqxBXRyEpnPQZGUs3uKiL3R11XbAdHigRzDozKZeW" {
		t.Errorf("unexpected WIF %s", wif)
	}
	addr, err := AddressForWIF(wif)
	if err != nil {
		t.Fatalf("AddressForWIF: %v", err)
	}
	key, _ := DecodeBip32WIF(xprv, nil)
	want, _ := PubKeyToP2PKH(key.GetECPubKey(), &BitcoinMainChain)
	if addr != want {
		t.Errorf("address %s, want %s", addr, want)
	}

	if _, err := WIFFromBip32("xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"); err == nil {
		t.Errorf("extracted a private key from an xpub")
	}
}
