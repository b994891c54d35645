package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier authenticates processor webhook deliveries.
type Verifier struct {
	Secret string
	// RequireSignature makes an empty Secret reject everything instead of trusting it.
	RequireSignature bool
}

// Verify applies the strictness policy and then VerifySignature.
func (v Verifier) Verify(signatureHeader, requestID, dataID string) bool {
	if v.Secret == "" {
		return !v.RequireSignature
	}
	return VerifySignature(signatureHeader, requestID, dataID, v.Secret)
}

// TrustMode reports whether deliveries are accepted without verification.
func (v Verifier) TrustMode() bool { return v.Secret == "" && !v.RequireSignature }

// VerifySignature checks an `x-signature: ts=...,v1=...` header. The signed manifest is
// `id:<lower(dataID)>;request-id:<requestID>;ts:<ts>;` and v1 is its HMAC-SHA256 in lower-case hex.
func VerifySignature(signatureHeader, requestID, dataID, secret string) bool {
	if secret == "" {
		return false
	}
	ts, v1, ok := parseSignatureHeader(signatureHeader)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}
	return hmac.Equal(got, sign(secret, manifest(dataID, requestID, ts)))
}

// Sign produces a header value VerifySignature accepts; used by tests and local tooling.
func Sign(secret, requestID, dataID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(sign(secret, manifest(dataID, requestID, ts)))
}

func manifest(dataID, requestID, ts string) string {
	return "id:" + strings.ToLower(dataID) + ";request-id:" + requestID + ";ts:" + ts + ";"
}

func sign(secret, msg string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(msg))
	return h.Sum(nil)
}

func parseSignatureHeader(h string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(h, ",") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1, ts != "" && v1 != ""
}
