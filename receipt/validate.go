package receipt

import (
	"fmt"
	"slices"

	"github.com/cloudx-io/opennegotiation/core"
)

// ValidationInput contains everything needed to check a receipt.
type ValidationInput struct {
	Receipt      COSE
	PublicKeyPEM string
	// Attestation is optional; receipts issued outside an enclave have none.
	Attestation COSE
	// KnownImages are the accepted enclave builds. PCRs are not checked when empty.
	KnownImages []KnownImage
	// Offers are bid/utility pairs the caller expects the receipt to commit to.
	Offers []core.BidUtilPair
	// Agreement, when set, must equal the agreement recorded in the receipt.
	Agreement *core.Bid
}

// ValidationResult holds the outcome of each check.
type ValidationResult struct {
	Receipt        *Receipt
	SignatureValid bool
	OffersValid    bool
	AgreementValid bool

	AttestationPresent   bool
	AttestationSigValid  bool
	CertificateValid     bool
	PCRsValid            bool
	AttestationBindValid bool

	ValidationDetails []string
}

// IsValid returns true if the receipt and, when present, its attestation passed
// every check.
func (r *ValidationResult) IsValid() bool {
	valid := r.SignatureValid && r.OffersValid && r.AgreementValid
	if !r.AttestationPresent {
		return valid
	}
	return valid && r.AttestationSigValid && r.CertificateValid && r.PCRsValid && r.AttestationBindValid
}

func (r *ValidationResult) detail(format string, args ...any) {
	r.ValidationDetails = append(r.ValidationDetails, fmt.Sprintf(format, args...))
}

// Validate verifies a signed receipt and its optional attestation.
//
// Returns:
//   - ValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed key or receipt)
func Validate(input *ValidationInput) (*ValidationResult, error) {
	publicKey, err := ParsePublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	result := &ValidationResult{}

	r, payload, err := Verify(input.Receipt, publicKey)
	if err != nil {
		result.detail("Receipt signature verification failed: %v", err)
		return result, nil
	}
	result.Receipt = r
	result.SignatureValid = true
	result.detail("Receipt signature verified for session %s", r.SessionID)

	result.OffersValid = validateOffers(input.Offers, r, result)
	result.AgreementValid = validateAgreement(input.Agreement, r, result)

	if len(input.Attestation) == 0 {
		result.detail("No attestation supplied")
		return result, nil
	}
	result.AttestationPresent = true
	validateAttestation(input, payload, result)

	return result, nil
}

func validateOffers(offers []core.BidUtilPair, r *Receipt, result *ValidationResult) bool {
	if r.HashNonce == "" {
		result.detail("Hash nonce missing from receipt")
		return false
	}

	valid := true
	for _, offer := range offers {
		computedHash := core.ComputeOfferHash(offer.Bid, offer.Utility, r.HashNonce)
		switch {
		case slices.Contains(r.ReceivedHashes, computedHash):
			result.detail("Offer %s found among received offers", offer.Bid.Key())
		case slices.Contains(r.SentHashes, computedHash):
			result.detail("Offer %s found among sent offers", offer.Bid.Key())
		default:
			result.detail("Offer %s NOT found in receipt. Computed: %s", offer.Bid.Key(), computedHash)
			valid = false
		}
	}

	var agreement *core.Bid
	if r.Accepted() {
		b := core.NewBid(r.Agreement)
		agreement = &b
	}
	if core.ComputeSessionHash(r.SessionID, r.PartyID, agreement, r.HashNonce) != r.SessionHash {
		result.detail("Session hash does not match session outcome")
		return false
	}
	return valid
}

func validateAgreement(expected *core.Bid, r *Receipt, result *ValidationResult) bool {
	if expected == nil {
		return true
	}
	if !r.Accepted() {
		result.detail("Agreement mismatch: expected %s, receipt has no agreement", expected.Key())
		return false
	}
	if !core.NewBid(r.Agreement).Equal(*expected) {
		result.detail("Agreement mismatch: expected %s, receipt has %s", expected.Key(), core.NewBid(r.Agreement).Key())
		return false
	}
	result.detail("Agreement validation passed: %s", expected.Key())
	return true
}

func validateAttestation(input *ValidationInput, payload []byte, result *ValidationResult) {
	doc, userData, err := ParseAttestation(input.Attestation)
	if err != nil {
		result.detail("Failed to parse attestation: %v", err)
		return
	}

	if len(input.KnownImages) == 0 {
		result.PCRsValid = true
		result.detail("No known PCR sets supplied, skipping PCR validation")
	} else if i := MatchImage(doc.Measurements(), input.KnownImages); i >= 0 {
		result.PCRsValid = true
		result.detail("PCRs match known set %d (commit %s)", i, input.KnownImages[i].CommitHash)
	} else {
		result.detail("PCRs do not match any known set")
	}

	if err := doc.VerifyCertificateChain(); err != nil {
		result.detail("Certificate chain validation failed: %v", err)
	} else {
		result.CertificateValid = true
		result.detail("Certificate chain verified")
	}

	if err := VerifyAttestationSignature(input.Attestation, doc.Certificate); err != nil {
		result.detail("COSE signature verification failed: %v", err)
	} else {
		result.AttestationSigValid = true
		result.detail("COSE signature verified")
	}

	result.AttestationBindValid = validateBinding(userData, input.PublicKeyPEM, payload, result)
}

func validateBinding(userData *AttestationUserData, publicKeyPEM string, payload []byte, result *ValidationResult) bool {
	if userData == nil {
		result.detail("Attestation user data missing")
		return false
	}
	if userData.ReceiptDigest != Digest(payload) {
		result.detail("Attestation is for a different receipt: %s", userData.ReceiptDigest)
		return false
	}
	if userData.PublicKey != publicKeyPEM {
		result.detail("Attestation is for a different signing key")
		return false
	}
	result.detail("Attestation binds receipt %s", userData.ReceiptDigest)
	return true
}
