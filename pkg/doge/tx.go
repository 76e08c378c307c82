package doge

import "errors"

var ErrBadTx = errors.New("malformed transaction")

type BlockTx struct {
	Version  uint32
	VIn      []BlockTxIn
	VOut     []BlockTxOut
	LockTime uint32
	TxID     string // hex, computed from tx data
}

type BlockTxIn struct {
	TxID     []byte // 32 bytes
	VOut     uint32
	Script   []byte // varied length
	Sequence uint32
}

type BlockTxOut struct {
	Value  int64
	Script []byte // varied length
}

// DecodeTx parses a serialized transaction; trailing bytes are an error.
func DecodeTx(txBytes []byte) (BlockTx, error) {
	s := NewStream(txBytes)
	tx := readTx(s)
	if !s.Complete() {
		return BlockTx{}, ErrBadTx
	}
	tx.TxID = TxHashHex(txBytes)
	return tx, nil
}

func readTx(s *Stream) (tx BlockTx) {
	tx.Version = s.Uint32le()
	tx_in := s.VarUint()
	for i := uint64(0); i < tx_in && s.Valid(); i++ {
		tx.VIn = append(tx.VIn, readTxIn(s))
	}
	tx_out := s.VarUint()
	for i := uint64(0); i < tx_out && s.Valid(); i++ {
		tx.VOut = append(tx.VOut, readTxOut(s))
	}
	tx.LockTime = s.Uint32le()
	return
}

func readTxIn(s *Stream) (in BlockTxIn) {
	in.TxID = s.Bytes(32)
	in.VOut = s.Uint32le()
	in.Script = s.Bytes(s.VarUint())
	in.Sequence = s.Uint32le()
	return
}

func readTxOut(s *Stream) (out BlockTxOut) {
	out.Value = int64(s.Uint64le())
	out.Script = s.Bytes(s.VarUint())
	return
}

// EncodeTx serializes a transaction in wire format (TxID is ignored).
func EncodeTx(tx BlockTx) []byte {
	b := make([]byte, 0, 10+len(tx.VIn)*148+len(tx.VOut)*34)
	b = appendUint32le(b, tx.Version)
	b = appendVarUint(b, uint64(len(tx.VIn)))
	for _, in := range tx.VIn {
		b = append(b, in.TxID...)
		b = appendUint32le(b, in.VOut)
		b = appendVarUint(b, uint64(len(in.Script)))
		b = append(b, in.Script...)
		b = appendUint32le(b, in.Sequence)
	}
	b = appendVarUint(b, uint64(len(tx.VOut)))
	for _, out := range tx.VOut {
		b = appendUint64le(b, uint64(out.Value))
		b = appendVarUint(b, uint64(len(out.Script)))
		b = append(b, out.Script...)
	}
	return appendUint32le(b, tx.LockTime)
}

func TxHashHex(tx []byte) string {
	hash := DoubleSha256(tx)
	reverseInPlace(hash)
	return HexEncode(hash)
}

func appendUint32le(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64le(b []byte, v uint64) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func appendVarUint(b []byte, v uint64) []byte {
	switch {
	case v < 253:
		return append(b, byte(v))
	case v <= 0xffff:
		return append(b, 253, byte(v), byte(v>>8))
	case v <= 0xffffffff:
		return appendUint32le(append(b, 254), uint32(v))
	default:
		return appendUint64le(append(b, 255), v)
	}
}

func reverseInPlace(a []byte) {
	// https://github.com/golang/go/wiki/SliceTricks#reversing
	for left, right := 0, len(a)-1; left < right; left, right = left+1, right-1 {
		a[left], a[right] = a[right], a[left]
	}
}
