package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

var testNow = time.UnixMilli(1_760_000_000_000)

func TestBuild(t *testing.T) {
	s := agreedSnapshot()

	r, err := Build(s, testNow)
	check.NoError(t, err)

	check.Equal(t, "session-1", r.SessionID)
	check.Equal(t, "party-a", r.PartyID)
	check.Equal(t, "SAOP", r.Protocol)
	check.Equal(t, party.StrategyOHelper, r.Strategy)
	check.True(t, r.Accepted())
	check.Equal(t, "mid", r.Agreement["price"])
	check.Equal(t, 0.70, r.AgreementUtility)
	check.Equal(t, 2, r.BidsMade)
	check.Equal(t, 2, r.BidsReceived)
	check.Equal(t, testNow.UnixMilli(), r.TimestampMillis)
	check.Equal(t, 64, len(r.HashNonce))

	check.Equal(t, core.ComputeOfferHashes(s.Received, r.HashNonce), r.ReceivedHashes)
	check.Equal(t, core.ComputeOfferHashes(s.Sent, r.HashNonce), r.SentHashes)
	check.Equal(t, core.ComputeSessionHash("session-1", "party-a", s.Agreement, r.HashNonce), r.SessionHash)
}

func TestBuild_NoAgreement(t *testing.T) {
	s := agreedSnapshot()
	s.Agreement = nil
	s.AgreementUtility = 0

	r, err := Build(s, testNow)
	check.NoError(t, err)

	check.False(t, r.Accepted())
	check.Equal(t, core.ComputeSessionHash("session-1", "party-a", nil, r.HashNonce), r.SessionHash)
}

func TestBuild_FreshNoncePerReceipt(t *testing.T) {
	r1, err := Build(agreedSnapshot(), testNow)
	check.NoError(t, err)
	r2, err := Build(agreedSnapshot(), testNow)
	check.NoError(t, err)

	check.NotEqual(t, r1.HashNonce, r2.HashNonce)
	check.NotEqual(t, r1.SessionHash, r2.SessionHash)
}

func TestBuild_DoesNotAliasSnapshot(t *testing.T) {
	s := agreedSnapshot()
	r, err := Build(s, testNow)
	check.NoError(t, err)

	s.Agreement.IssueValues["price"] = "changed"
	check.Equal(t, "mid", r.Agreement["price"])
}

func TestEncode_Deterministic(t *testing.T) {
	r, err := Build(agreedSnapshot(), testNow)
	check.NoError(t, err)

	first, err := Encode(r)
	check.NoError(t, err)
	for range 10 {
		again, err := Encode(r)
		check.NoError(t, err)
		check.True(t, bytes.Equal(first, again))
	}

	decoded, err := Decode(first)
	check.NoError(t, err)
	check.Equal(t, r.SessionHash, decoded.SessionHash)
	check.Equal(t, r.ReceivedHashes, decoded.ReceivedHashes)
	check.Equal(t, r.Agreement, decoded.Agreement)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	check.Error(t, err)
}

func TestDigest(t *testing.T) {
	check.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
}
