package receipt

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/opennegotiation/party"
)

// Record is a signed receipt as it is stored and served.
type Record struct {
	SessionID    string
	PartyID      string
	Accepted     bool
	Receipt      COSE
	Attestation  COSE
	PublicKeyPEM string
	CreatedAt    time.Time
}

// Sink persists records.
type Sink interface {
	SaveReceipt(ctx context.Context, rec Record) error
}

// Recorder turns finished sessions into signed, optionally attested, receipts.
// It implements party.Recorder.
type Recorder struct {
	keys     *KeyManager
	attester Attester
	sink     Sink
	now      func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithAttester attests every receipt with a.
func WithAttester(a Attester) RecorderOption {
	return func(r *Recorder) { r.attester = a }
}

// WithRecorderClock replaces the clock receipts are timestamped with.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder signs with keys and saves to sink.
func NewRecorder(keys *KeyManager, sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{keys: keys, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ party.Recorder = (*Recorder)(nil)

// Record builds, signs and saves the receipt of a finished session.
//
// Processing flow:
//  1. Build the receipt from the snapshot
//  2. Sign it with the process key
//  3. Attest it when an attester is configured
//  4. Save it to the sink
func (r *Recorder) Record(ctx context.Context, s party.Snapshot) error {
	// Step 1: Build
	now := r.now()
	rec, err := Build(s, now)
	if err != nil {
		return err
	}

	// Step 2: Sign
	signed, err := r.keys.Sign(rec)
	if err != nil {
		return err
	}

	publicKeyPEM, err := r.keys.PublicKeyPEM()
	if err != nil {
		return fmt.Errorf("failed to export public key: %w", err)
	}

	// Step 3: Attest
	var attestation COSE
	if r.attester != nil {
		attestation, err = Attest(r.attester, signed, publicKeyPEM)
		if err != nil {
			return fmt.Errorf("failed to attest receipt: %w", err)
		}
	}

	// Step 4: Save
	record := Record{
		SessionID:    rec.SessionID,
		PartyID:      rec.PartyID,
		Accepted:     rec.Accepted(),
		Receipt:      signed,
		Attestation:  attestation,
		PublicKeyPEM: publicKeyPEM,
		CreatedAt:    now,
	}
	if err := r.sink.SaveReceipt(ctx, record); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	log.Printf("INFO: Receipt for session %s saved (%d bytes, attested %t)",
		rec.SessionID, len(signed), attestation != nil)
	return nil
}
