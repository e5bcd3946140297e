package crypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"
)

// Multikey support for FEP-521a style assertionMethod entries. A public
// key is prefixed with its multicodec code and base58btc encoded with a
// leading 'z'.

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// multicodec varint prefixes.
var (
	ed25519Prefix = []byte{0xed, 0x01}
	rsaPrefix     = []byte{0x85, 0x24}
)

// PublicKeyToMultibase encodes a public key in multibase form.
func PublicKeyToMultibase(pub crypto.PublicKey) (string, error) {
	var raw []byte
	switch key := pub.(type) {
	case ed25519.PublicKey:
		raw = append(ed25519Prefix, key...)
	case *rsa.PublicKey:
		raw = append(rsaPrefix, x509.MarshalPKCS1PublicKey(key)...)
	default:
		return "", fmt.Errorf("crypto: cannot encode %T as multibase", pub)
	}
	return "z" + base58Encode(raw), nil
}

func base58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)
	radix := big.NewInt(58)
	mod := new(big.Int)
	var out []byte
	for x.Sign() > 0 {
		x.DivMod(x, radix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	// leading zero bytes encode as '1'
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
