package binance

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

const (
	HeaderTimestamp = "BinancePay-Timestamp"
	HeaderNonce     = "BinancePay-Nonce"
	HeaderCertSN    = "BinancePay-Certificate-SN"
	HeaderSignature = "BinancePay-Signature"
)

// Sign returns the upper-case hex HMAC-SHA512 of timestamp, nonce and body,
// each terminated by a newline.
func Sign(secret []byte, timestamp, nonce string, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(nonce))
	mac.Write([]byte{'\n'})
	mac.Write(body)
	mac.Write([]byte{'\n'})
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Verify compares signature with the expected one in constant time. Case of
// the supplied hex is ignored.
func Verify(secret []byte, timestamp, nonce string, body []byte, signature string) bool {
	expected := Sign(secret, timestamp, nonce, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(signature)))
}
