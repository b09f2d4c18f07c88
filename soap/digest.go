package soap

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"

	"github.com/tetrisge/rsge/xmlcodec"
)

// RequestDigest returns a stable fingerprint of a method call: the hex
// SHA-256 of the exclusive canonical form of the method element. Secret
// parameters are masked before hashing. Two calls that differ only in
// entity spelling or attribute quoting share a digest.
func RequestDigest(method string, params *xmlcodec.Params) (string, error) {
	buf, err := xml.Marshal(newMethodElement(DefaultNamespace, method, params.Redacted()))
	if err != nil {
		return "", fmt.Errorf("marshal method element: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(buf))
	cout, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("canonicalize method element: %w", err)
	}
	sum := sha256.Sum256(cout)
	return hex.EncodeToString(sum[:]), nil
}
