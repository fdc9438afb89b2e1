package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/partyapi"
	"github.com/cloudx-io/opennegotiation/receipt"
)

func main() {
	var (
		receiptInput   = flag.String("receipt", "", "Receipt response JSON from /receipts/{id} (file path or inline JSON)")
		offersInput    = flag.String("offers", "", "Offers expected in the receipt: [{\"bid\":{\"issuevalues\":{...}},\"utility\":0.7}] (file path or inline JSON)")
		agreementInput = flag.String("agreement", "", "Expected agreement: {\"issuevalues\":{...}} (file path or inline JSON)")
		pcrsPath       = flag.String("pcrs", "", "Known PCR sets JSON file (skip PCR check when empty)")
		outputFormat   = flag.String("format", "text", "Output format: text or json")
		help           = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --receipt is required\n")
		os.Exit(1)
	}

	receiptJSON, err := readJSONInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	var offersJSON, agreementJSON []byte
	if *offersInput != "" {
		if offersJSON, err = readJSONInput(*offersInput); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading offers: %v\n", err)
			os.Exit(2)
		}
	}
	if *agreementInput != "" {
		if agreementJSON, err = readJSONInput(*agreementInput); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading agreement: %v\n", err)
			os.Exit(2)
		}
	}

	validationInput, err := extractValidationInput(receiptJSON, offersJSON, agreementJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}

	if *pcrsPath != "" {
		knownImages, err := receipt.LoadKnownImages(*pcrsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading PCRs: %v\n", err)
			os.Exit(2)
		}
		validationInput.KnownImages = knownImages
	}

	result, err := receipt.Validate(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Negotiation Receipt Validator")
	fmt.Println()
	fmt.Println("Validates signed session receipts and their optional enclave attestation.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <json>                  Receipt as served by GET /receipts/{session_id}")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --offers <json>                   Offers (bid and utility) the receipt must commit to")
	fmt.Println("  --agreement <json>                Agreement the receipt must record")
	fmt.Println("  --pcrs <file>                     Known PCR sets for attested receipts")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each JSON flag accepts either a file path or inline JSON string.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  curl -s localhost:8080/receipts/$SESSION > receipt.json")
	fmt.Println("  receipt-validator --receipt receipt.json \\")
	fmt.Println("    --offers '[{\"bid\":{\"issuevalues\":{\"brand\":\"dell\",\"memory\":\"16\"}},\"utility\":1.0}]'")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readJSONInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

func extractValidationInput(receiptJSON, offersJSON, agreementJSON []byte) (*receipt.ValidationInput, error) {
	var resp partyapi.ReceiptResponse
	if err := json.Unmarshal(receiptJSON, &resp); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	if resp.Receipt == "" {
		return nil, fmt.Errorf("missing 'receipt' in receipt response")
	}
	if resp.PublicKey == "" {
		return nil, fmt.Errorf("missing 'public_key' in receipt response")
	}

	signed, err := receipt.COSEURLBase64(resp.Receipt).Decode()
	if err != nil {
		return nil, err
	}

	input := &receipt.ValidationInput{
		Receipt:      signed,
		PublicKeyPEM: resp.PublicKey,
	}

	if resp.Attestation != "" {
		attestation, err := receipt.COSEBase64(resp.Attestation).Decode()
		if err != nil {
			return nil, fmt.Errorf("attestation: %w", err)
		}
		input.Attestation = attestation
	}

	if len(offersJSON) > 0 {
		if err := json.Unmarshal(offersJSON, &input.Offers); err != nil {
			return nil, fmt.Errorf("parse offers: %w", err)
		}
	}

	if len(agreementJSON) > 0 {
		var agreement core.Bid
		if err := json.Unmarshal(agreementJSON, &agreement); err != nil {
			return nil, fmt.Errorf("parse agreement: %w", err)
		}
		if agreement.IsZero() {
			return nil, fmt.Errorf("agreement has no issue values")
		}
		input.Agreement = &agreement
	}

	return input, nil
}

func outputText(result *receipt.ValidationResult) {
	fmt.Println("Negotiation Receipt Validator")
	fmt.Println("=============================")
	fmt.Println()

	if r := result.Receipt; r != nil {
		fmt.Println("Receipt:")
		fmt.Printf("  Session:                 %s\n", r.SessionID)
		fmt.Printf("  Party:                   %s\n", r.PartyID)
		fmt.Printf("  Protocol:                %s\n", r.Protocol)
		fmt.Printf("  Strategy:                %s\n", r.Strategy)
		fmt.Printf("  Agreement:               %v\n", r.Accepted())
		fmt.Printf("  Bids made/received:      %d/%d\n", r.BidsMade, r.BidsReceived)
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Offers Valid:            %v\n", result.OffersValid)
	fmt.Printf("  Agreement Valid:         %v\n", result.AgreementValid)
	if result.AttestationPresent {
		fmt.Printf("  PCRs Valid:              %v\n", result.PCRsValid)
		fmt.Printf("  Certificate Valid:       %v\n", result.CertificateValid)
		fmt.Printf("  Attestation Sig Valid:   %v\n", result.AttestationSigValid)
		fmt.Printf("  Attestation Binding:     %v\n", result.AttestationBindValid)
	}

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("=============================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *receipt.ValidationResult) {
	output := map[string]any{
		"valid":                  result.IsValid(),
		"signature_valid":        result.SignatureValid,
		"offers_valid":           result.OffersValid,
		"agreement_valid":        result.AgreementValid,
		"attestation_present":    result.AttestationPresent,
		"pcrs_valid":             result.PCRsValid,
		"certificate_valid":      result.CertificateValid,
		"attestation_sig_valid":  result.AttestationSigValid,
		"attestation_bind_valid": result.AttestationBindValid,
		"details":                result.ValidationDetails,
	}
	if result.Receipt != nil {
		output["receipt"] = result.Receipt
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
