package jwtx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
)

// ErrKeySource means the private signing key could not be obtained. It is a
// configuration fault, never a client error.
var ErrKeySource = errors.New("jwtx: key source unavailable")

// Key source kinds accepted by configuration.
const (
	KeySourceFile      = "file"
	KeySourcePEM       = "pem"
	KeySourceEphemeral = "ephemeral"
)

// KeySource supplies the RSA private key used for access tokens.
type KeySource interface {
	Name() string
	PrivateKeyPEM() ([]byte, error)
}

// FileKeySource reads a PEM private key from disk on every call.
type FileKeySource struct {
	Path string
}

func (s FileKeySource) Name() string { return KeySourceFile }

func (s FileKeySource) PrivateKeyPEM() ([]byte, error) {
	if s.Path == "" {
		return nil, errors.New("no key path configured")
	}
	return os.ReadFile(filepath.Clean(s.Path))
}

// PEMKeySource holds inline PEM bytes from configuration.
type PEMKeySource struct {
	PEM []byte
}

func (s PEMKeySource) Name() string { return KeySourcePEM }

func (s PEMKeySource) PrivateKeyPEM() ([]byte, error) {
	if len(s.PEM) == 0 {
		return nil, errors.New("no inline key configured")
	}
	return s.PEM, nil
}

// EphemeralKeySource generates one key in memory on first use. All access
// tokens become unverifiable when the process restarts.
type EphemeralKeySource struct {
	Bits int

	once sync.Once
	pem  []byte
	err  error
}

func (s *EphemeralKeySource) Name() string { return KeySourceEphemeral }

func (s *EphemeralKeySource) PrivateKeyPEM() ([]byte, error) {
	s.once.Do(func() {
		bits := s.Bits
		if bits == 0 {
			bits = 2048
		}
		s.pem, s.err = cryptox.GenerateRSAKey(bits)
	})
	return s.pem, s.err
}

// NewKeySource builds a KeySource from its configured kind.
func NewKeySource(kind, path, inline string, bits int) (KeySource, error) {
	switch kind {
	case KeySourceFile, "":
		return FileKeySource{Path: path}, nil
	case KeySourcePEM:
		return PEMKeySource{PEM: []byte(inline)}, nil
	case KeySourceEphemeral:
		return &EphemeralKeySource{Bits: bits}, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported key source %q (supported: file, pem, ephemeral)", kind)
	}
}
