package monobank_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
)

type signingKey struct {
	private *ecdsa.PrivateKey
	// public is the base64 PEM form served by the provider pubkey endpoint.
	public string
}

func newSigningKey(t *testing.T) signingKey {
	t.Helper()

	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return signingKey{private: private, public: base64.StdEncoding.EncodeToString(pemBytes)}
}

func (k signingKey) sign(t *testing.T, body []byte) string {
	t.Helper()

	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, k.private, digest[:])
	if err != nil {
		t.Fatalf("failed to sign body: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig)
}
