package doge

// Script opcodes used by ClassifyScript and the P2PKH template.
const (
	OP_0             = 0x00
	OP_PUSHDATA1     = 0x4c
	OP_1             = 0x51
	OP_16            = 0x60
	OP_RETURN        = 0x6a
	OP_DUP           = 0x76
	OP_EQUAL         = 0x87
	OP_EQUALVERIFY   = 0x88
	OP_HASH160       = 0xa9
	OP_CHECKSIG      = 0xac
	OP_CHECKMULTISIG = 0xae
)
