package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Receipt is the record a party signs when a session ends. Offers are only
// committed to by hash so the receipt can be shared without revealing bids.
type Receipt struct {
	SessionID        string            `cbor:"session_id" json:"session_id"`
	PartyID          string            `cbor:"party_id" json:"party_id"`
	Protocol         string            `cbor:"protocol" json:"protocol"`
	Strategy         string            `cbor:"strategy" json:"strategy"`
	Agreement        map[string]string `cbor:"agreement,omitempty" json:"agreement,omitempty"`
	AgreementUtility float64           `cbor:"agreement_utility" json:"agreement_utility"`
	BidsMade         int               `cbor:"bids_made" json:"bids_made"`
	BidsReceived     int               `cbor:"bids_received" json:"bids_received"`
	HashNonce        string            `cbor:"hash_nonce" json:"hash_nonce"`
	ReceivedHashes   []string          `cbor:"received_hashes" json:"received_hashes"`
	SentHashes       []string          `cbor:"sent_hashes" json:"sent_hashes"`
	SessionHash      string            `cbor:"session_hash" json:"session_hash"`
	TimestampMillis  int64             `cbor:"timestamp" json:"timestamp"`
}

// Accepted reports whether the session ended in an agreement.
func (r *Receipt) Accepted() bool {
	return r.Agreement != nil
}

// AttestationUserData is embedded in the NSM attestation and binds it to a
// signed receipt and the key that signed it.
type AttestationUserData struct {
	ReceiptDigest string `json:"receipt_digest"`
	KeyAlgorithm  string `json:"key_algorithm"`
	PublicKey     string `json:"public_key"`
}

// COSE holds raw COSE_Sign1 bytes: a signed receipt or an attestation document.
type COSE []byte

// COSEBase64 is COSE in standard base64.
type COSEBase64 string

// COSEURLBase64 is COSE in unpadded URL-safe base64.
type COSEURLBase64 string

func (c COSE) EncodeBase64() COSEBase64 {
	return COSEBase64(base64.StdEncoding.EncodeToString(c))
}

func (c COSE) EncodeURLSafe() COSEURLBase64 {
	return COSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

func (b COSEBase64) String() string {
	return string(b)
}

func (b COSEBase64) Decode() (COSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return COSE(data), nil
}

func (u COSEURLBase64) String() string {
	return string(u)
}

// Decode accepts the unpadded form and tolerates padding.
func (u COSEURLBase64) Decode() (COSE, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(u), "="))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return COSE(data), nil
}
