package receipt

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
)

// Attester produces NSM attestation documents.
type Attester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// NewNSMAttester opens the Nitro Security Module. It fails outside an enclave.
func NewNSMAttester() (Attester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

// Attest asks attester for a document whose user data binds the signed receipt
// to the key that signed it.
func Attest(attester Attester, signed COSE, publicKeyPEM string) (COSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	payload, err := SignedPayload(signed)
	if err != nil {
		return nil, fmt.Errorf("read signed receipt: %w", err)
	}

	userDataBytes, err := json.Marshal(AttestationUserData{
		ReceiptDigest: Digest(payload),
		KeyAlgorithm:  KeyAlgorithm,
		PublicKey:     publicKeyPEM,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM attestation failed: %v", err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: Receipt attestation generated: %d bytes", len(attestationCBOR))
	return COSE(attestationCBOR), nil
}

// AttestationDocument is the CBOR payload of an NSM attestation.
type AttestationDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"`
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// Time is the moment the NSM produced the document.
func (d *AttestationDocument) Time() time.Time {
	return time.UnixMilli(int64(d.Timestamp))
}

// ParseAttestation extracts the attestation document from its COSE envelope
// and decodes the receipt binding in its user data.
func ParseAttestation(attestation COSE) (*AttestationDocument, *AttestationUserData, error) {
	payload, err := SignedPayload(attestation)
	if err != nil {
		return nil, nil, err
	}

	var doc AttestationDocument
	if err := cbor.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse attestation document: %w", err)
	}

	if len(doc.UserData) == 0 {
		return &doc, nil, nil
	}
	var userData AttestationUserData
	if err := json.Unmarshal(doc.UserData, &userData); err != nil {
		return nil, nil, fmt.Errorf("parse attestation user data: %w", err)
	}
	return &doc, &userData, nil
}

// Measurements returns the hex encoded PCRs of the attested image.
func (d *AttestationDocument) Measurements() Measurements {
	pcr := func(i uint64) string { return hex.EncodeToString(d.PCRs[i]) }
	return Measurements{
		PCR0: pcr(0),
		PCR1: pcr(1),
		PCR2: pcr(2),
		PCR3: pcr(3),
		PCR4: pcr(4),
		PCR8: pcr(8),
	}
}
