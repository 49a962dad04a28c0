// Package auth computes the HMAC-SHA256 signatures Negotiate and Establish
// carry to prove possession of the caller's access key.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// SignatureLen is the width of a Sign result: the raw SHA-256 output.
const SignatureLen = sha256.Size

// Sign computes HMAC-SHA256(base64url-decode(userKey), canonicalRequest).
//
// userKey is base64url encoded, matching how the gateway distributes
// access keys; padding is accepted but not required, so both
// base64.RawURLEncoding and base64.URLEncoding forms decode.
func Sign(userKey, canonicalRequest string) (sig [SignatureLen]byte, err error) {
	key, err := decodeKey(userKey)
	if err != nil {
		return sig, fmt.Errorf("auth: decode user key: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	if _, err := mac.Write([]byte(canonicalRequest)); err != nil {
		return sig, fmt.Errorf("auth: write canonical request: %w", err)
	}
	copy(sig[:], mac.Sum(nil))
	return sig, nil
}

// NegotiateCanonicalRequest builds the string signed for a Negotiate
// request: timestamp, uuid, sessionId, firmId joined by LF with no
// trailing separator.
func NegotiateCanonicalRequest(requestTimestamp int64, uuid uint64, sessionID, firmID string) string {
	return fmt.Sprintf("%d\n%d\n%s\n%s", requestTimestamp, uuid, sessionID, firmID)
}

// EstablishCanonicalRequest builds the string signed for an Establish
// request: timestamp, uuid, sessionId, firmId, tradingSystemName,
// tradingSystemVersion, tradingSystemVendor, nextSentSeqNo,
// keepAliveInterval, joined by LF with no trailing separator.
func EstablishCanonicalRequest(requestTimestamp int64, uuid uint64, sessionID, firmID string, tradingSystemName, tradingSystemVersion, tradingSystemVendor string, nextSentSeqNo uint64, keepAliveInterval int32) string {
	return fmt.Sprintf("%d\n%d\n%s\n%s\n%s\n%s\n%s\n%d\n%d",
		requestTimestamp, uuid, sessionID, firmID,
		tradingSystemName, tradingSystemVersion, tradingSystemVendor,
		nextSentSeqNo, keepAliveInterval)
}

func decodeKey(userKey string) ([]byte, error) {
	if key, err := base64.RawURLEncoding.DecodeString(userKey); err == nil {
		return key, nil
	}
	return base64.URLEncoding.DecodeString(userKey)
}
