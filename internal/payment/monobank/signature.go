package monobank

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/telemetry"
)

// VerifySignature checks a base64 DER ECDSA signature over the SHA-256 digest
// of body against a base64-encoded PEM public key. Any decoding problem is
// reported as domain.ErrSignatureMismatch.
func VerifySignature(publicKeyBase64, signatureBase64 string, body []byte) error {
	pub, err := parsePublicKey(publicKeyBase64)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSignatureMismatch, err)
	}

	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureBase64))
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", domain.ErrSignatureMismatch, err)
	}
	if len(signature) == 0 {
		return fmt.Errorf("%w: empty signature", domain.ErrSignatureMismatch)
	}

	digest := sha256.Sum256(body)
	if !ecdsa.VerifyASN1(pub, digest[:], signature) {
		return domain.ErrSignatureMismatch
	}
	return nil
}

func parsePublicKey(publicKeyBase64 string) (*ecdsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("public key is not PEM encoded")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not ECDSA", parsed)
	}
	return pub, nil
}

// Verifier authenticates webhook bodies with the key from a KeyProvider.
type Verifier struct {
	keys   *KeyProvider
	logger *slog.Logger
}

func NewVerifier(keys *KeyProvider, logger *slog.Logger) *Verifier {
	return &Verifier{keys: keys, logger: logger}
}

// Verify implements ports.SignatureVerifier. A mismatch against a cached key
// is retried once with a freshly fetched key to follow key rotation. Failing
// to fetch the key is a gateway error, not a mismatch.
func (v *Verifier) Verify(ctx context.Context, body []byte, signature string) error {
	ctx, span := telemetry.StartSpan(ctx, "SignatureVerifier.Verify")
	defer span.End()

	if strings.TrimSpace(signature) == "" {
		err := fmt.Errorf("%w: missing X-Sign header", domain.ErrSignatureMismatch)
		telemetry.RecordSpanError(span, err)
		return err
	}

	key, fromCache, err := v.keys.Key(ctx)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	err = VerifySignature(key, signature, body)
	if err != nil && fromCache {
		v.logger.InfoContext(ctx, "signature did not match cached key, refreshing")
		key, err = v.keys.Refresh(ctx)
		if err != nil {
			telemetry.RecordSpanError(span, err)
			return err
		}
		err = VerifySignature(key, signature, body)
	}
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
