package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

const (
	SignatureHeader = "X-Signature"
	maxEventBody    = 1 << 20
)

// Sign returns the OneBot signature header value for body: "sha1=<hex hmac>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// OneBotSignature verifica o HMAC-SHA1 enviado pela implementação OneBot no
// cabeçalho X-Signature. Sem segredo configurado, tudo passa.
func OneBotSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody+1))
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if len(body) > maxEventBody {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			got := strings.TrimSpace(r.Header.Get(SignatureHeader))
			if got == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !hmac.Equal([]byte(strings.ToLower(got)), []byte(Sign(secret, body))) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
