package doge

import (
	"fmt"

	"github.com/mr-tron/base58"
)

func Base58Encode(bytes []byte) string {
	return base58.FastBase58Encoding(bytes)
}

// CAUTION: appends the Checksum to `bytes` if it has sufficient capacity (4 bytes)
func Base58EncodeCheck(bytes []byte) string {
	// https://en.bitcoin.it/Base58Check_encoding
	sum := DoubleSha256(bytes)
	bytes = append(bytes, sum[0], sum[1], sum[2], sum[3])
	return base58.FastBase58Encoding(bytes)
}

func Base58Decode(str string) ([]byte, error) {
	return base58.FastBase58Decoding(str)
}

func Base58DecodeCheck(str string) ([]byte, error) {
	data, err := Base58Decode(str)
	if err != nil {
		return nil, err
	}
	if len(data) < 5 {
		return nil, fmt.Errorf("Base58Check: too short")
	}
	split := len(data) - 4
	sum := DoubleSha256(data[:split])
	check := data[split:]
	if check[0] != sum[0] || check[1] != sum[1] || check[2] != sum[2] || check[3] != sum[3] {
		return nil, fmt.Errorf("Base58Check: wrong checksum")
	}
	return data[:split], nil
}
