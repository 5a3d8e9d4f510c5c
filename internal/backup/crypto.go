package backup

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"serotonyl.ru/pullups/internal/common"
)

// EncryptedFormat — метка зашифрованного файла выгрузки.
const EncryptedFormat = "pullups-backup+xchacha20poly1305"

// Параметры argon2id (рекомендации RFC 9106 для интерактивного режима).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
)

// envelope — зашифрованный файл. Байтовые поля кодируются в base64 самим encoding/json.
type envelope struct {
	Format     string `json:"format"`
	KDF        string `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Encrypt шифрует plain паролем и возвращает JSON-конверт.
func Encrypt(plain []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("ошибка генерации соли: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации шифра: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return json.MarshalIndent(envelope{
		Format:     EncryptedFormat,
		KDF:        "argon2id",
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plain, []byte(EncryptedFormat)),
	}, "", "  ")
}

// Decrypt расшифровывает конверт. Неверный пароль или повреждённые
// данные дают common.ErrBadPassphrase.
func Decrypt(data []byte, passphrase string) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Format != EncryptedFormat {
		return nil, fmt.Errorf("%w: не зашифрованная выгрузка", common.ErrInvalidImport)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, env.Salt))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации шифра: %w", err)
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: неверная длина nonce", common.ErrInvalidImport)
	}

	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(EncryptedFormat))
	if err != nil {
		return nil, common.ErrBadPassphrase
	}
	return plain, nil
}

// IsEncrypted сообщает, является ли data зашифрованным конвертом.
func IsEncrypted(data []byte) bool {
	var probe struct {
		Format string `json:"format"`
	}
	return json.Unmarshal(data, &probe) == nil && probe.Format == EncryptedFormat
}
