package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeOfferHash computes the commitment hash of a single offer.
// This is used both when issuing receipts and when validating them.
//
// Formula: SHA256(bid_key + "|" + sprintf("%.6f", utility) + "|" + nonce)
//
// The utility is formatted to exactly 6 decimal places to ensure consistent hashing
// regardless of how the float is represented in memory.
func ComputeOfferHash(bid Bid, utility float64, nonce string) string {
	data := fmt.Sprintf("%s|%.6f|%s", bid.Key(), utility, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeOfferHashes hashes every pair in order with the same nonce.
func ComputeOfferHashes(pairs []BidUtilPair, nonce string) []string {
	hashes := make([]string, len(pairs))
	for i, pair := range pairs {
		hashes[i] = ComputeOfferHash(pair.Bid, pair.Utility, nonce)
	}
	return hashes
}

// ComputeSessionHash computes the hash binding a session to its outcome.
//
// Formula: SHA256(session_id + "|" + party_id + "|" + agreement_key + "|" + nonce)
//
// agreement_key is empty when the session ended without agreement. Every field
// is escaped like the parts of a bid key, since party IDs come from the host.
func ComputeSessionHash(sessionID, partyID string, agreement *Bid, nonce string) string {
	agreementKey := ""
	if agreement != nil {
		agreementKey = agreement.Key()
	}
	fields := []string{sessionID, partyID, agreementKey, nonce}
	for i, field := range fields {
		fields[i] = keyEscaper.Replace(field)
	}
	data := strings.Join(fields, "|")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
