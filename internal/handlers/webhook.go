package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/ingest"
	"github.com/jobops/triage/internal/mediaextract"
)

type vonageWebhookPayload struct {
	MessageID string `json:"message_id" validate:"required"`
	From      string `json:"from" validate:"required"`
	Media     struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		Text string `json:"text"`
	} `json:"media"`
	URLs []string `json:"urls" validate:"omitempty,dive,required"`
}

type vonageClaims struct {
	PayloadHash string `json:"payload_hash,omitempty"`
	jwt.RegisteredClaims
}

// VonageWebhook handles POST /ingest/whatsapp/vonage: public webhook,
// HS256-JWT bearer authenticated, with an optional payload-hash claim
// verified against the raw body and an optional sender allow-list.
func (h *Handlers) VonageWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 5<<20))
	r.Body.Close()
	if err != nil {
		writeErr(w, apperr.Wrap(apperr.KindInvalidInput, "failed to read webhook body", err))
		return
	}

	if err := h.authenticateVonage(r, body); err != nil {
		writeErr(w, err)
		return
	}

	var payload vonageWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeErr(w, apperr.Wrap(apperr.KindInvalidInput, "failed to decode webhook payload", err))
		return
	}
	if err := validate.Struct(&payload); err != nil {
		writeErr(w, apperr.Wrap(apperr.KindInvalidInput, "webhook payload failed validation: "+fieldErrors(err), err))
		return
	}

	if len(h.Webhooks.VonageAllowFrom) > 0 && !allowListed(payload.From, h.Webhooks.VonageAllowFrom) {
		writeErr(w, apperr.New(apperr.KindUnauthorized, "sender is not on the allow-list"))
		return
	}

	extractor := h.MediaExtract
	if extractor == nil {
		extractor = mediaextract.Default{}
	}
	text, err := extractor.Extract(mediaextract.Reference{ID: payload.Media.ID, URL: payload.Media.URL, Text: payload.Media.Text})
	if err != nil {
		writeErr(w, err)
		return
	}

	urls := append([]string{}, payload.URLs...)
	if text != "" {
		urls = append(urls, text)
	}
	if len(urls) == 0 {
		writeErr(w, apperr.New(apperr.KindInvalidInput, "webhook payload carried no urls or media reference"))
		return
	}

	result := ingest.Run(r.Context(), h.ingestDeps(), ingest.Request{
		RawURLs:   urls,
		Channel:   "whatsapp",
		MessageID: payload.MessageID,
	})
	writeOK(w, result)
}

func (h *Handlers) authenticateVonage(r *http.Request, body []byte) error {
	if h.Webhooks.VonageJWTSecret == "" {
		return apperr.New(apperr.KindUnauthorized, "vonage webhook authentication is not configured")
	}

	authHeader := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenStr == "" {
		return apperr.New(apperr.KindUnauthorized, "missing bearer token")
	}

	var claims vonageClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.KindUnauthorized, "unexpected signing method")
		}
		return []byte(h.Webhooks.VonageJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return apperr.Wrap(apperr.KindUnauthorized, "invalid webhook bearer token", err)
	}

	if claims.PayloadHash != "" && !payloadHashMatches(claims.PayloadHash, body) {
		return apperr.New(apperr.KindUnauthorized, "payload_hash claim does not match request body")
	}
	return nil
}

// payloadHashMatches accepts the token's payload_hash claim encoded as hex,
// base64, or base64url against the SHA-256 digest of the raw body.
func payloadHashMatches(claimHash string, body []byte) bool {
	sum := sha256.Sum256(body)
	if decoded, err := hex.DecodeString(claimHash); err == nil && string(decoded) == string(sum[:]) {
		return true
	}
	if decoded, err := base64.StdEncoding.DecodeString(claimHash); err == nil && string(decoded) == string(sum[:]) {
		return true
	}
	if decoded, err := base64.URLEncoding.DecodeString(claimHash); err == nil && string(decoded) == string(sum[:]) {
		return true
	}
	return false
}

func allowListed(from string, allow []string) bool {
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(from)) {
			return true
		}
	}
	return false
}
