package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fernet/fernet-go"
)

// ErrMalformedCiphertext is returned when a payload cannot be decrypted with
// any of the configured keys. It is distinct from a message with no text.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// opensslMagic prefixes passphrase-encrypted payloads produced by CryptoJS
// and `openssl enc -md md5`.
const opensslMagic = "Salted__"

// Encryptor provides symmetric encryption for message text with a single
// shared secret. New payloads are AES-256-GCM; OpenSSL-style passphrase
// payloads and legacy Fernet tokens are accepted on decrypt.
type Encryptor struct {
	aead       cipher.AEAD
	passphrase []byte
	fernetKeys []*fernet.Key
}

func NewEncryptor(secret []byte, legacyKeys []string) (*Encryptor, error) {
	if len(secret) == 0 {
		return nil, errors.New("encryption secret must not be empty")
	}
	// Arbitrary-length secrets are stretched to an AES-256 key.
	sum := sha256.Sum256(secret)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	fernetKeys := make([]*fernet.Key, 0, len(legacyKeys))
	for _, rawKey := range legacyKeys {
		if fk := parseFernetKey(rawKey); fk != nil {
			fernetKeys = append(fernetKeys, fk)
		}
	}

	return &Encryptor{
		aead:       aead,
		passphrase: append([]byte(nil), secret...),
		fernetKeys: fernetKeys,
	}, nil
}

func parseFernetKey(raw string) *fernet.Key {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	key, err := fernet.DecodeKey(trimmed)
	if err != nil {
		return nil
	}
	return key
}

// Encrypt seals plain under a fresh random nonce, so equal inputs never
// produce equal outputs.
func (e *Encryptor) Encrypt(plain string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := e.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a payload produced by Encrypt, by a CryptoJS client sharing
// the same passphrase, or by a legacy Fernet key. Anything else yields
// ErrMalformedCiphertext.
func (e *Encryptor) Decrypt(enc string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err == nil {
		if bytes.HasPrefix(raw, []byte(opensslMagic)) {
			if plain, err := e.openSalted(raw); err == nil {
				return plain, nil
			}
		} else if len(raw) >= e.aead.NonceSize()+e.aead.Overhead() {
			nonce := raw[:e.aead.NonceSize()]
			plain, openErr := e.aead.Open(nil, nonce, raw[e.aead.NonceSize():], nil)
			if openErr == nil {
				return string(plain), nil
			}
		}
	}

	if len(e.fernetKeys) > 0 {
		if plain := fernet.VerifyAndDecrypt([]byte(enc), 0*time.Second, e.fernetKeys); plain != nil {
			return string(plain), nil
		}
	}

	return "", ErrMalformedCiphertext
}

// DecryptOrEmpty is the tolerant variant of Decrypt: any failure yields "".
func (e *Encryptor) DecryptOrEmpty(enc string) string {
	plain, err := e.Decrypt(enc)
	if err != nil {
		return ""
	}
	return plain
}

func (e *Encryptor) openSalted(raw []byte) (string, error) {
	if len(raw) < len(opensslMagic)+8+aes.BlockSize {
		return "", ErrMalformedCiphertext
	}
	salt := raw[len(opensslMagic) : len(opensslMagic)+8]
	body := raw[len(opensslMagic)+8:]
	if len(body)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	key, iv := evpBytesToKey(e.passphrase, salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}

// evpBytesToKey is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func evpBytesToKey(passphrase, salt []byte, keyLen, ivLen int) ([]byte, []byte) {
	var out, prev []byte
	for len(out) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:keyLen], out[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrMalformedCiphertext
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, ErrMalformedCiphertext
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrMalformedCiphertext
		}
	}
	return b[:len(b)-n], nil
}
