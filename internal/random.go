package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	codeIDSize     = 16
	codeSecretSize = 32
	actionCodeSize = codeIDSize + codeSecretSize
)

// CodeID identifies a stored action code record.
type CodeID [codeIDSize]byte

// NewCodeID returns a random record ID.
func NewCodeID() (CodeID, error) {
	var id CodeID
	_, err := rand.Read(id[:])
	return id, err
}

func (c CodeID) String() string {
	return base64.RawURLEncoding.EncodeToString(c[:])
}

// NewCodeSecret returns a random action code secret.
func NewCodeSecret() ([codeSecretSize]byte, error) {
	var secret [codeSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashCodeSecret returns the stored form of secret.
func HashCodeSecret(secret [codeSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeActionCode packs id and secret into the opaque code mailed to users.
func EncodeActionCode(id CodeID, secret [codeSecretSize]byte) string {
	var raw [actionCodeSize]byte
	copy(raw[:codeIDSize], id[:])
	copy(raw[codeIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeActionCode reverses [EncodeActionCode].
func DecodeActionCode(code string) (CodeID, [codeSecretSize]byte, error) {
	var (
		id     CodeID
		secret [codeSecretSize]byte
	)

	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return id, secret, err
	}
	if len(raw) != actionCodeSize {
		return id, secret, errors.New("invalid action code size")
	}

	copy(id[:], raw[:codeIDSize])
	copy(secret[:], raw[codeIDSize:])
	return id, secret, nil
}
