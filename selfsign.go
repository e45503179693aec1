// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"
)

// CertGenerator is the external PEM-producing helper boundary named by
// spec.md §1 ("certificate generation via an external PEM-producing
// helper" is out of scope, specified only via this interface). Given a
// primary hostname and its full alternate-name list, it returns a PEM
// certificate and private key.
type CertGenerator interface {
	Generate(primaryHost string, altNames []string) (certPEM, keyPEM []byte, err error)
}

// DefaultCertGenerator returns a [CertGenerator] producing a self-signed
// RSA certificate, so the Host Manager is runnable standalone without an
// external helper wired in. Hostnames are partitioned into DNS names and
// IP SANs by literal-IP detection, per §4.4.
func DefaultCertGenerator() CertGenerator { return selfSignGenerator{} }

type selfSignGenerator struct{}

var _ CertGenerator = selfSignGenerator{}

func (selfSignGenerator) Generate(primaryHost string, altNames []string) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, NewError(KindInternal, "self-sign: generate key", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, NewError(KindInternal, "self-sign: generate serial", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: primaryHost},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		BasicConstraintsValid: true,
	}

	seen := make(map[string]bool)
	for _, name := range append([]string{primaryHost}, altNames...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, name)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, NewError(KindInternal, "self-sign: create certificate", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, nil
}
