package receipt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

// encMode encodes receipts in core deterministic CBOR so a receipt always
// serializes, and therefore hashes, the same way.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("receipt: invalid CBOR options: %v", err))
	}
	return em
}()

// Build turns the snapshot of a finished session into a receipt. Every offer
// is hashed with a fresh nonce; the nonce is part of the receipt so anyone who
// knows an offer and its utility can check it was exchanged.
func Build(s party.Snapshot, now time.Time) (*Receipt, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate hash nonce: %w", err)
	}

	r := &Receipt{
		SessionID:        s.SessionID,
		PartyID:          s.PartyID,
		Protocol:         string(s.Protocol),
		Strategy:         s.Strategy,
		AgreementUtility: s.AgreementUtility,
		BidsMade:         s.BidsMade,
		BidsReceived:     s.BidsReceived,
		HashNonce:        nonce,
		ReceivedHashes:   core.ComputeOfferHashes(s.Received, nonce),
		SentHashes:       core.ComputeOfferHashes(s.Sent, nonce),
		SessionHash:      core.ComputeSessionHash(s.SessionID, s.PartyID, s.Agreement, nonce),
		TimestampMillis:  now.UnixMilli(),
	}
	if s.Agreement != nil {
		r.Agreement = core.NewBid(s.Agreement.IssueValues).IssueValues
	}
	return r, nil
}

// Encode renders r as deterministic CBOR.
func Encode(r *Receipt) ([]byte, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}
	return data, nil
}

// Decode parses a CBOR receipt.
func Decode(data []byte) (*Receipt, error) {
	var r Receipt
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return &r, nil
}

// Digest is the hex SHA-256 of an encoded receipt.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32) // 256 bits of entropy
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
