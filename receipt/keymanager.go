package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/veraison/go-cose"
)

// KeyAlgorithm names the receipt signing key in attestations.
const KeyAlgorithm = "ECDSA-P256"

// ErrInvalidSignature is returned when a receipt does not verify.
var ErrInvalidSignature = errors.New("invalid receipt signature")

// KeyManager holds the ephemeral key receipts are signed with. A new key is
// generated per process; its public half is published alongside receipts and,
// inside an enclave, bound to the image by attestation.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
}

// NewKeyManager generates a fresh P-256 key pair.
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// ParsePublicKeyPEM reads a PEM public key as published by PublicKeyPEM.
func ParsePublicKeyPEM(data string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("no PUBLIC KEY block found")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not ECDSA", key)
	}
	return ecKey, nil
}

// Sign encodes r and wraps it in a tagged COSE_Sign1 message signed with ES256.
func (km *KeyManager) Sign(r *Receipt) (COSE, error) {
	payload, err := Encode(r)
	if err != nil {
		return nil, err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	data, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return COSE(data), nil
}

// Verify checks the signature on a signed receipt and returns the receipt
// along with its encoded payload.
func Verify(signed COSE, publicKey *ecdsa.PublicKey) (*Receipt, []byte, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	r, err := Decode(msg.Payload)
	if err != nil {
		return nil, nil, err
	}
	return r, msg.Payload, nil
}
