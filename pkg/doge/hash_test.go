package doge

import (
	"strings"
	"testing"
)

func hx2b(str string) []byte {
	b, err := HexDecode(str)
	if err != nil {
		panic("bad hex fixture: " + str)
	}
	return b
}

func TestHashVectors(t *testing.T) {
	cases := []struct {
		name string
		fn   func([]byte) []byte
		in   []byte
		want string
	}{
		// NIST FIPS 180-2
		{"sha256", Sha256, []byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"sha256d", DoubleSha256, []byte("abc"), "4f8b42c22dd3729b519ba6f68d2da7cc5b2d606d05daed5ad5128cc03e6c6358"},
		{"sha256d long", DoubleSha256, []byte(strings.Repeat("a", 1000000)), "80d1189477563e1b5206b2749f1afe4807e5705e8bd77887a60187a712156688"},
		// RIPEMD-160 reference vectors
		{"ripemd160 empty", RIPEMD160, []byte(""), "9c1185a5c5e9fc54612808977ee8f548b2258d31"},
		{"ripemd160", RIPEMD160, []byte("message digest"), "5d0689ef49d2fae572b881b123a85ffa21595f36"},
		// BIP32 vector 1 master public key
		{"hash160", Hash160, hx2b("0339a36013301597daef41fbe593a02cc513d0b55527ec2df1050e2e8ff49c85c2"), "3442193e1bb70916e914552172cd4e2dbc9df811"},
	}
	for _, c := range cases {
		if got := HexEncode(c.fn(c.in)); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestIsHash(t *testing.T) {
	txid := strings.Repeat("ab", 32)
	if !IsHash(txid) {
		t.Errorf("IsHash(%s) = false", txid)
	}
	for _, bad := range []string{"", "abc", strings.Repeat("ab", 31), strings.Repeat("zz", 32)} {
		if IsHash(bad) {
			t.Errorf("IsHash(%q) = true", bad)
		}
	}
}

func TestTxHashIsReversedDoubleSha(t *testing.T) {
	raw := hx2b("0100000000000000000000")
	sum := DoubleSha256(raw)
	rev := make([]byte, len(sum))
	for i := range sum {
		rev[i] = sum[len(sum)-1-i]
	}
	if TxHashHex(raw) != HexEncode(rev) {
		t.Errorf("TxHashHex is not the byte-reversed double SHA-256")
	}
}
