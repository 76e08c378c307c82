package gate

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"
)

// MerchantData is stamped into every challenge and echoed back by the
// client, so the gateway can check expiry without keeping session state.
type MerchantData struct {
	ChallengeID string  `json:"challenge_id"`
	Address     Address `json:"address"`
	Amount      Koinu   `json:"amount"`
	Expires     int64   `json:"expires"` // unix seconds
}

func (m MerchantData) ExpiresAt() time.Time {
	return time.Unix(m.Expires, 0)
}

// MerchantSigner seals MerchantData with HMAC-SHA256.
type MerchantSigner struct {
	key []byte
}

// NewMerchantSigner uses secret as the HMAC key; an empty secret gets a
// random per-process key, which invalidates outstanding challenges on restart.
func NewMerchantSigner(secret string) MerchantSigner {
	if secret != "" {
		return MerchantSigner{key: []byte(secret)}
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("cannot read random bytes: " + err.Error())
	}
	return MerchantSigner{key: key}
}

func (s MerchantSigner) Seal(md MerchantData) ([]byte, error) {
	j, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	payload := base64.RawURLEncoding.EncodeToString(j)
	return []byte(payload + "." + s.sign(payload)), nil
}

func (s MerchantSigner) Open(sealed []byte) (MerchantData, error) {
	payload, sig, found := bytes.Cut(sealed, []byte("."))
	if !found {
		return MerchantData{}, NewErr(BadRequest, "merchant data is not sealed")
	}
	if !hmac.Equal([]byte(s.sign(string(payload))), sig) {
		return MerchantData{}, NewErr(BadRequest, "merchant data signature mismatch")
	}
	j, err := base64.RawURLEncoding.DecodeString(string(payload))
	if err != nil {
		return MerchantData{}, NewErr(BadRequest, "merchant data encoding: %v", err)
	}
	var md MerchantData
	if err := json.Unmarshal(j, &md); err != nil {
		return MerchantData{}, NewErr(BadRequest, "merchant data json: %v", err)
	}
	return md, nil
}

func (s MerchantSigner) sign(payload string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
