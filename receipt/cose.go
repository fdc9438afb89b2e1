package receipt

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// cborTagSign1 is the single byte encoding of CBOR tag 18 (COSE_Sign1).
const cborTagSign1 = 0xd2

// sign1Fields is the COSE_Sign1 array: [protected, unprotected, payload, signature].
type sign1Fields struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

func decodeSign1Fields(msg COSE) (*sign1Fields, error) {
	data := []byte(msg)
	if len(data) > 0 && data[0] == cborTagSign1 {
		data = data[1:]
	}
	var fields sign1Fields
	if err := cbor.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: %w", err)
	}
	return &fields, nil
}

// SignedPayload returns the payload of a COSE_Sign1 message without checking
// its signature. Receipts are tagged; NSM attestations are not.
func SignedPayload(msg COSE) ([]byte, error) {
	fields, err := decodeSign1Fields(msg)
	if err != nil {
		return nil, err
	}
	if fields.Payload == nil {
		return nil, fmt.Errorf("COSE_Sign1 message has no payload")
	}
	return fields.Payload, nil
}

// VerifyAttestationSignature checks the ES384 signature of an NSM attestation
// against the key in its signing certificate.
func VerifyAttestationSignature(attestation COSE, certDER []byte) error {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key is not ECDSA")
	}

	var msg cose.UntaggedSign1Message
	if err := msg.UnmarshalCBOR(attestation); err != nil {
		return fmt.Errorf("decode attestation: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, key)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("attestation signature: %w", err)
	}
	return nil
}
