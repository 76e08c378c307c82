package doge

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeTx(t *testing.T) {
	pkh := Hash160(hx2b("0250863ad64a87ae8a2fe83c1af1a8403cb53f53e486d8511dad8a04887e5b2352"))
	tx := BlockTx{
		Version: 1,
		VIn: []BlockTxIn{{
			TxID:     bytes.Repeat([]byte{0xab}, 32),
			VOut:     3,
			Script:   []byte{},
			Sequence: 0xffffffff,
		}},
		VOut: []BlockTxOut{
			{Value: 10_000, Script: P2PKHScript(pkh)},
			{Value: 39_000, Script: hx2b("6a0474657374")},
		},
	}
	raw := EncodeTx(tx)
	got, err := DecodeTx(raw)
	if err != nil {
		t.Fatalf("DecodeTx: %v", err)
	}
	if len(got.VIn) != 1 || got.VIn[0].VOut != 3 || len(got.VOut) != 2 {
		t.Fatalf("DecodeTx: wrong shape: %+v", got)
	}
	if got.VOut[0].Value != 10_000 || got.VOut[1].Value != 39_000 {
		t.Fatalf("DecodeTx: wrong values: %d %d", got.VOut[0].Value, got.VOut[1].Value)
	}
	typ, addr := ClassifyScript(got.VOut[0].Script, &DogeRegTestChain)
	if typ != ScriptTypeP2PKH || !ValidateP2PKH(addr, &DogeRegTestChain) {
		t.Fatalf("DecodeTx: output 0 is not P2PKH: %v %v", typ, addr)
	}
	if got.TxID != TxHashHex(raw) {
		t.Fatalf("DecodeTx: wrong TxID %s", got.TxID)
	}
}

func TestDecodeTxRejectsGarbage(t *testing.T) {
	if _, err := DecodeTx(hx2b("0100000001")); err == nil {
		t.Fatalf("DecodeTx accepted a truncated transaction")
	}
	raw := EncodeTx(BlockTx{Version: 1})
	if _, err := DecodeTx(append(raw, 0x00)); err == nil {
		t.Fatalf("DecodeTx accepted trailing bytes")
	}
}
