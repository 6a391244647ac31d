package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC secret NewCodec accepts.
const MinSecretBytes = 32

func resolveKeys(cfg Config) (jwt.SigningMethod, any, any, error) {
	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "EDDSA" {
		alg = "EdDSA"
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil || alg == "none" {
		return nil, nil, nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrConfiguration, cfg.Algorithm)
	}
	_, isHMAC := method.(*jwt.SigningMethodHMAC)

	switch cfg.Style {
	case StyleSymmetric:
		if !isHMAC {
			return nil, nil, nil, fmt.Errorf("%w: algorithm %s requires the asymmetric style", ErrConfiguration, alg)
		}
	case StyleAsymmetric:
		if isHMAC {
			return nil, nil, nil, fmt.Errorf("%w: algorithm %s requires the symmetric style", ErrConfiguration, alg)
		}
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown signing style %q", ErrConfiguration, cfg.Style)
	}

	if strings.TrimSpace(cfg.SigningKeyEnv) == "" {
		return nil, nil, nil, fmt.Errorf("%w: signing key variable name is empty", ErrConfiguration)
	}
	raw, ok := cfg.LookupEnv(cfg.SigningKeyEnv)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil, nil, fmt.Errorf("%w: environment variable %s is not set", ErrConfiguration, cfg.SigningKeyEnv)
	}

	if isHMAC {
		secret := []byte(raw)
		if len(secret) < MinSecretBytes {
			return nil, nil, nil, fmt.Errorf("%w: hmac secret must be at least %d bytes", ErrConfiguration, MinSecretBytes)
		}
		return method, secret, secret, nil
	}

	private, err := parsePrivateKey(method, raw, cfg.KeyIsPEM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	signer, ok := private.(crypto.Signer)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: key cannot sign", ErrConfiguration)
	}
	return method, private, signer.Public(), nil
}

func parsePrivateKey(method jwt.SigningMethod, raw string, isPEM bool) (crypto.PrivateKey, error) {
	if isPEM {
		return parsePEMPrivateKey(method, []byte(raw))
	}
	der, err := decodeBase64(raw)
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	return parseDERPrivateKey(method, der)
}

func parsePEMPrivateKey(method jwt.SigningMethod, pemBytes []byte) (crypto.PrivateKey, error) {
	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	case *jwt.SigningMethodECDSA:
		key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
		if err != nil {
			return nil, err
		}
		return key, checkCurve(m, key)
	case *jwt.SigningMethodEd25519:
		return jwt.ParseEdPrivateKeyFromPEM(pemBytes)
	default:
		return nil, fmt.Errorf("no key parser for %s", method.Alg())
	}
}

func parseDERPrivateKey(method jwt.SigningMethod, der []byte) (crypto.PrivateKey, error) {
	if _, ok := method.(*jwt.SigningMethodEd25519); ok {
		switch len(der) {
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(der), nil
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(der), nil
		}
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		if key, rsaErr := x509.ParsePKCS1PrivateKey(der); rsaErr == nil {
			parsed = key
		} else if key, ecErr := x509.ParseECPrivateKey(der); ecErr == nil {
			parsed = key
		} else {
			return nil, fmt.Errorf("unrecognised private key encoding: %w", err)
		}
	}

	switch m := method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s requires an RSA key", method.Alg())
		}
		return key, nil
	case *jwt.SigningMethodECDSA:
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s requires an ECDSA key", method.Alg())
		}
		return key, checkCurve(m, key)
	case *jwt.SigningMethodEd25519:
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%s requires an Ed25519 key", method.Alg())
		}
		return key, nil
	default:
		return nil, fmt.Errorf("no key parser for %s", method.Alg())
	}
}

func checkCurve(method *jwt.SigningMethodECDSA, key *ecdsa.PrivateKey) error {
	if key.Curve.Params().BitSize != method.CurveBits {
		return fmt.Errorf("%s requires a %d-bit curve", method.Alg(), method.CurveBits)
	}
	return nil
}

func decodeBase64(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(raw)
}
