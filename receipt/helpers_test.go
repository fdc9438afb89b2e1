package receipt

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
	calls      int
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	m.calls++
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// mustDecodeHex is a helper function to decode hex strings to actual hash bytes for testing
func mustDecodeHex(t *testing.T, hexStr string) []byte {
	t.Helper()
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		panic(fmt.Sprintf("invalid hex string: %s", hexStr))
	}
	return bytes
}

const (
	testPCR0 = "3b4cef27e672fdbcc808960a88ddfe7329dd2e367b6850c9a8d910315f0b47e4224d6db361b75e010c87691d86ca9c57"
	testPCR1 = "4b4d5b3661b3efc12920900c80e126e4ce783c522de6c02a2a5bf7af3a2b9327b86776f188e4be1c1c404a129dbda493"
	testPCR2 = "2bdd28c1d85bb3872da3617a29a6bfeb50c65750c995f92e7dac6b5f2c4c72e0f9976bdee62a0b25864d10dffb535e11"
)

// CreateMockEnclave creates a mock enclave handle that returns a structurally
// valid, unsigned attestation document.
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1234567890),
				"pcrs": map[uint64][]byte{
					0: mustDecodeHex(t, testPCR0),
					1: mustDecodeHex(t, testPCR1),
					2: mustDecodeHex(t, testPCR2),
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"public_key":  []byte("test-public-key-data"),
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}

			nestedBytes, _ := cbor.Marshal(nestedDoc)

			// AWS Nitro 4-element array format: [header, metadata, nested_doc, signature]
			result := []any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			}

			return cbor.Marshal(result)
		},
	}
}

type memSink struct {
	records []Record
	err     error
}

func (s *memSink) SaveReceipt(_ context.Context, rec Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func bid(value string) core.Bid {
	return core.NewBid(map[string]string{"price": value})
}

func pair(value string, utility float64) core.BidUtilPair {
	return core.BidUtilPair{Bid: bid(value), Utility: utility}
}

// agreedSnapshot is a two-round SAOP session that ended on "mid".
func agreedSnapshot() party.Snapshot {
	agreement := bid("mid")
	return party.Snapshot{
		SessionID:        "session-1",
		PartyID:          "party-a",
		Protocol:         party.SAOP,
		Strategy:         party.StrategyOHelper,
		Finished:         true,
		Agreement:        &agreement,
		AgreementUtility: 0.70,
		BidsMade:         2,
		BidsReceived:     2,
		Received:         []core.BidUtilPair{pair("low", 0.40), pair("mid", 0.70)},
		Sent:             []core.BidUtilPair{pair("high", 0.95), pair("high", 0.95)},
	}
}

func mustKeyManager(t *testing.T) *KeyManager {
	t.Helper()
	km, err := NewKeyManager()
	if err != nil {
		t.Fatalf("NewKeyManager: %v", err)
	}
	return km
}

func mustPEM(t *testing.T, km *KeyManager) string {
	t.Helper()
	pemStr, err := km.PublicKeyPEM()
	if err != nil {
		t.Fatalf("PublicKeyPEM: %v", err)
	}
	return pemStr
}

func mustSign(t *testing.T, km *KeyManager, s party.Snapshot) (*Receipt, COSE) {
	t.Helper()
	r, err := Build(s, testNow)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	signed, err := km.Sign(r)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return r, signed
}
