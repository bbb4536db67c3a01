package stanza

import (
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const saltSize = 16

// newKey stretches password into a 32-byte database key. The salt is created on first use and kept next to
// the database so the same password always opens it.
func newKey(password, root, saltName string) ([]byte, error) {
	salt, err := loadSalt(filepath.Join(root, saltName))
	if err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32), nil
}

func loadSalt(saltPath string) ([]byte, error) {
	salt := make([]byte, saltSize)
	f, err := os.OpenFile(saltPath, os.O_RDONLY, 0o400) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return salt, writeSalt(saltPath, salt)
	} else if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(f, salt); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reading salt %s: %w", saltPath, err)
	}
	return salt, f.Close()
}

func writeSalt(saltPath string, salt []byte) error {
	if _, err := crypto_rand.Read(salt); err != nil {
		return err
	}
	f, err := os.OpenFile(saltPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_SYNC, 0o400) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := f.Write(salt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
