package credentials

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default locations checked when no explicit file paths are configured.
// The layout follows the broker vendor's download convention.
const (
	DefaultDir      = "certs"
	DefaultCAFile   = "ca.pem"
	DefaultCertFile = "service.cert"
	DefaultKeyFile  = "service.key"
)

// ErrIncomplete means neither credential source fully resolved; no connection
// is ever attempted with a partial bundle.
var ErrIncomplete = errors.New("kafka credentials incomplete")

// Source describes the two candidate credential inputs. The base64 triple is
// preferred and used only when all three values are set; otherwise the file
// triple is read, with unset paths defaulting under ./certs.
type Source struct {
	CABase64   string
	CertBase64 string
	KeyBase64  string

	CAFile   string
	CertFile string
	KeyFile  string
}

// Bundle holds decoded PEM material for one TLS client identity.
type Bundle struct {
	CA   []byte
	Cert []byte
	Key  []byte
}

// Resolve assembles a Bundle from the first fully-present source. Resolution
// performs file reads at most; it never touches the network.
func Resolve(src Source) (Bundle, error) {
	ca := strings.TrimSpace(src.CABase64)
	cert := strings.TrimSpace(src.CertBase64)
	key := strings.TrimSpace(src.KeyBase64)

	if ca != "" && cert != "" && key != "" {
		return decodeBundle(ca, cert, key)
	}

	return readBundle(
		defaultPath(src.CAFile, DefaultCAFile),
		defaultPath(src.CertFile, DefaultCertFile),
		defaultPath(src.KeyFile, DefaultKeyFile),
	)
}

// TLSConfig turns the bundle into a client TLS configuration: the CA becomes
// the root pool used to verify the broker, the cert/key pair becomes the
// client identity presented during the handshake.
func (b Bundle) TLSConfig() (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b.CA) {
		return nil, errors.New("ca certificate: no PEM data found")
	}
	pair, err := tls.X509KeyPair(b.Cert, b.Key)
	if err != nil {
		return nil, fmt.Errorf("client keypair: %w", err)
	}
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func decodeBundle(ca, cert, key string) (Bundle, error) {
	var bundle Bundle
	var err error
	if bundle.CA, err = base64.StdEncoding.DecodeString(ca); err != nil {
		return Bundle{}, fmt.Errorf("decode ca certificate: %w", err)
	}
	if bundle.Cert, err = base64.StdEncoding.DecodeString(cert); err != nil {
		return Bundle{}, fmt.Errorf("decode client certificate: %w", err)
	}
	if bundle.Key, err = base64.StdEncoding.DecodeString(key); err != nil {
		return Bundle{}, fmt.Errorf("decode client key: %w", err)
	}
	return bundle, nil
}

func readBundle(caPath, certPath, keyPath string) (Bundle, error) {
	var bundle Bundle
	var err error
	if bundle.CA, err = os.ReadFile(caPath); err != nil {
		return Bundle{}, fmt.Errorf("%w: ca certificate %s unreadable", ErrIncomplete, caPath)
	}
	if bundle.Cert, err = os.ReadFile(certPath); err != nil {
		return Bundle{}, fmt.Errorf("%w: client certificate %s unreadable", ErrIncomplete, certPath)
	}
	if bundle.Key, err = os.ReadFile(keyPath); err != nil {
		return Bundle{}, fmt.Errorf("%w: client key %s unreadable", ErrIncomplete, keyPath)
	}
	return bundle, nil
}

func defaultPath(configured, fallback string) string {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		return trimmed
	}
	return filepath.Join(DefaultDir, fallback)
}
