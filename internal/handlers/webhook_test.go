package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jobops/triage/internal/common"
)

func signVonageToken(t *testing.T, secret, payloadHash string) string {
	t.Helper()
	claims := vonageClaims{
		PayloadHash: payloadHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVonageWebhookRejectsMissingBearerToken(t *testing.T) {
	h, _ := newTestHandlers(t, nil)
	h.Webhooks = common.WebhooksConfig{VonageJWTSecret: "s3cr3t"}

	body := []byte(`{"message_id":"m1","from":"+1555","urls":["https://boards.example.com/jobs/1"]}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/whatsapp/vonage", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.VonageWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestVonageWebhookAcceptsValidTokenAndPayloadHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Senior Backend Engineer</h1><p>Responsibilities: own services end to end. " +
			"Qualifications: 5+ years of Go and Kubernetes and SQL experience required.</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	h, _ := newTestHandlers(t, nil)
	h.Webhooks = common.WebhooksConfig{VonageJWTSecret: "s3cr3t"}

	body := []byte(`{"message_id":"m2","from":"+1555","urls":["` + srv.URL + `/jobs/1"]}`)
	sum := sha256.Sum256(body)
	token := signVonageToken(t, "s3cr3t", hex.EncodeToString(sum[:]))

	req := httptest.NewRequest(http.MethodPost, "/ingest/whatsapp/vonage", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.VonageWebhook(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.OK {
		t.Fatalf("expected ok=true, got %+v", env)
	}
}

func TestVonageWebhookRejectsTamperedPayloadHash(t *testing.T) {
	h, _ := newTestHandlers(t, nil)
	h.Webhooks = common.WebhooksConfig{VonageJWTSecret: "s3cr3t"}

	body := []byte(`{"message_id":"m3","from":"+1555","urls":["https://boards.example.com/jobs/1"]}`)
	token := signVonageToken(t, "s3cr3t", hex.EncodeToString([]byte("not-the-real-hash-000000000000")))

	req := httptest.NewRequest(http.MethodPost, "/ingest/whatsapp/vonage", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.VonageWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestVonageWebhookRejectsSenderNotOnAllowList(t *testing.T) {
	h, _ := newTestHandlers(t, nil)
	h.Webhooks = common.WebhooksConfig{VonageJWTSecret: "s3cr3t", VonageAllowFrom: []string{"+1999"}}

	body := []byte(`{"message_id":"m4","from":"+1555","urls":["https://boards.example.com/jobs/1"]}`)
	sum := sha256.Sum256(body)
	token := signVonageToken(t, "s3cr3t", hex.EncodeToString(sum[:]))

	req := httptest.NewRequest(http.MethodPost, "/ingest/whatsapp/vonage", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.VonageWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}
