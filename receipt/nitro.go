package receipt

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
)

// awsNitroRootCA is the root certificate for AWS Nitro Enclaves
// Valid until 2049-10-28, P-384 self-signed certificate
// Source: https://docs.aws.amazon.com/enclaves/latest/user/verify-root.html
const awsNitroRootCA = `-----BEGIN CERTIFICATE-----
MIICETCCAZagAwIBAgIRAPkxdWgbkK/hHUbMtOTn+FYwCgYIKoZIzj0EAwMwSTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoMBkFtYXpvbjEMMAoGA1UECwwDQVdTMRswGQYD
VQQDDBJhd3Mubml0cm8tZW5jbGF2ZXMwHhcNMTkxMDI4MTMyODA1WhcNNDkxMDI4
MTQyODA1WjBJMQswCQYDVQQGEwJVUzEPMA0GA1UECgwGQW1hem9uMQwwCgYDVQQL
DANBV1MxGzAZBgNVBAMMEmF3cy5uaXRyby1lbmNsYXZlczB2MBAGByqGSM49AgEG
BSuBBAAiA2IABPwCVOumCMHzaHDimtqQvkY4MpJzbolL//Zy2YlES1BR5TSksfbb
48C8WBoyt7F2Bw7eEtaaP+ohG2bnUs990d0JX28TcPQXCEPZ3BABIeTPYwEoCWZE
h8l5YoQwTcU/9KNCMEAwDwYDVR0TAQH/BAUwAwEB/zAdBgNVHQ4EFgQUkCW1DdkF
R+eWw5b6cp3PmanfS5YwDgYDVR0PAQH/BAQDAgGGMAoGCCqGSM49BAMDA2kAMGYC
MQCjfy+Rocm9Xue4YnwWmNJVA44fA0P5W2OpYow9OYCVRaEevL8uO1XYru5xtMPW
rfMCMQCi85sWBbJwKKXdS6BptQFuZbT73o/gBh1qUxl/nNr12UO8Yfwr6wPLb+6N
IwLz3/Y=
-----END CERTIFICATE-----`

// VerifyCertificateChain checks that the document's signing certificate chains
// to the AWS Nitro root. Signing certificates live for hours, so the chain is
// checked at the time of attestation.
func (d *AttestationDocument) VerifyCertificateChain() error {
	leaf, err := x509.ParseCertificate(d.Certificate)
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM([]byte(awsNitroRootCA)) {
		return fmt.Errorf("failed to parse AWS Nitro root CA")
	}

	intermediates := x509.NewCertPool()
	for i, der := range d.CABundle {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("parse CA bundle entry %d: %w", i, err)
		}
		intermediates.AddCert(cert)
	}

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   d.Time(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("certificate chain validation failed: %w", err)
	}
	return nil
}

// Measurements are the hex encoded PCRs identifying an enclave image.
// PCR0-2 cover the image, kernel and application; the rest are optional.
type Measurements struct {
	PCR0 string `json:"pcr0"`
	PCR1 string `json:"pcr1"`
	PCR2 string `json:"pcr2"`
	PCR3 string `json:"pcr3,omitempty"`
	PCR4 string `json:"pcr4,omitempty"`
	PCR8 string `json:"pcr8,omitempty"`
}

// KnownImage is a trusted enclave build.
type KnownImage struct {
	PCR0       string `json:"pcr0"`
	PCR1       string `json:"pcr1"`
	PCR2       string `json:"pcr2"`
	CommitHash string `json:"commit_hash"`
}

// MatchImage returns the index of the first known image with the same PCR0-2,
// or -1.
func MatchImage(m Measurements, known []KnownImage) int {
	for i, image := range known {
		if image.PCR0 == m.PCR0 && image.PCR1 == m.PCR1 && image.PCR2 == m.PCR2 {
			return i
		}
	}
	return -1
}

// LoadKnownImages reads trusted images from a JSON file of the form
// {"pcr_sets": [{"pcr0": ..., "pcr1": ..., "pcr2": ..., "commit_hash": ...}]}.
func LoadKnownImages(path string) ([]KnownImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCR config file: %w", err)
	}

	var file struct {
		Images []KnownImage `json:"pcr_sets"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse PCR config: %w", err)
	}
	if len(file.Images) == 0 {
		return nil, fmt.Errorf("no PCR sets found in %s", path)
	}
	return file.Images, nil
}
