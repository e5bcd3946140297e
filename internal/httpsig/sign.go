// Package httpsig signs outbound requests with the HTTP Signature
// scheme from draft-cavage-http-signatures-10, the dialect the
// fediverse speaks.
package httpsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RequestTarget is the pseudo-header covering the method and path.
const RequestTarget = "(request-target)"

// Sign signs req with the given key. GET requests cover the request
// target, host, date and accept headers; POST requests cover the
// request target, date and a SHA-256 digest of body, which is added as
// the Digest header.
func Sign(req *http.Request, keyID string, privateKey crypto.PrivateKey, body []byte) error {
	// the Date header must name the GMT zone, not UTC
	req.Header.Set("Date", time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))

	headers := []string{RequestTarget, "host", "date", "accept"}
	if req.Method == "POST" {
		headers = []string{RequestTarget, "date", "digest"}
		req.Header.Set("Digest", digest(body))
	}

	plaintext, err := signatureString(req, headers)
	if err != nil {
		return err
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("httpsig: cannot sign with %T, need *rsa.PrivateKey", privateKey)
	}
	hashed := sha256.Sum256([]byte(plaintext))
	sig, err := rsa.SignPKCS1v15(rand.Reader, rsaKey, crypto.SHA256, hashed[:])
	if err != nil {
		return err
	}

	req.Header.Set("Signature", fmt.Sprintf(
		`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
		keyID, strings.Join(headers, " "), base64.StdEncoding.EncodeToString(sig)))
	return nil
}

// signatureString builds the newline-separated list of covered headers
// in the exact form the verifier will reconstruct.
func signatureString(req *http.Request, headers []string) (string, error) {
	lines := make([]string, 0, len(headers))
	for _, header := range headers {
		switch header {
		case RequestTarget:
			target := strings.ToLower(req.Method) + " " + req.URL.Path
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			lines = append(lines, RequestTarget+": "+target)
		case "host":
			lines = append(lines, "host: "+req.Host)
		case "date", "accept", "digest":
			lines = append(lines, header+": "+req.Header.Get(header))
		default:
			return "", fmt.Errorf("httpsig: cannot sign header %q", header)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}
