// package crypto provides a simple interface to common cryptographic primitives.
package crypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// KeyType names the asymmetric algorithms used for federation.
// RSA keys sign HTTP requests; Ed25519 keys back object integrity proofs.
type KeyType string

const (
	KeyTypeRSA     KeyType = "RSASSA-PKCS1-v1_5"
	KeyTypeEd25519 KeyType = "Ed25519"
)

// KeyTypes lists the supported algorithms in dispatch order. The RSA
// pair comes first; consumers treat the first pair as the HTTP
// signature key.
var KeyTypes = []KeyType{KeyTypeRSA, KeyTypeEd25519}

// Keypair is a public/private keypair in PEM form.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeypair generates a fresh keypair of the given type.
func GenerateKeypair(typ KeyType) (*Keypair, error) {
	switch typ {
	case KeyTypeRSA:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		return encodeKeypair(priv, &priv.PublicKey)
	case KeyTypeEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return encodeKeypair(priv, pub)
	default:
		return nil, fmt.Errorf("crypto: unsupported key type: %s", typ)
	}
}

func encodeKeypair(priv crypto.PrivateKey, pub crypto.PublicKey) (*Keypair, error) {
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Keypair{
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}),
		PublicKey:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}),
	}, nil
}

// ParsePrivateKey parses a PEM encoded private key. PKCS#8 is the
// stored form; PKCS#1 is accepted for keys imported from other servers.
func ParsePrivateKey(pemBytes []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("crypto: no PEM block found")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("crypto: unable to parse private key of type %q", block.Type)
}

// ParsePublicKey parses a PEM encoded PKIX public key.
func ParsePublicKey(pemBytes []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("crypto: expected PUBLIC KEY PEM block")
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}
