package browsercookie

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"runtime"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Salt       = "saltysalt"
	pbkdf2Iterations = 1003
	pbkdf2KeyLen     = 16
	aesBlockSize     = 16
)

func platform() string { return runtime.GOOS }

// deriveKey turns the browser's Safe Storage password into the AES-128 key
// Chromium uses to encrypt cookie values.
func deriveKey(b Browser) ([]byte, error) {
	password, err := safeStoragePassword(b)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key([]byte(password), []byte(pbkdf2Salt), pbkdf2Iterations, pbkdf2KeyLen, sha1.New), nil
}

// decrypt reverses Chromium's v10/v11 cookie encryption: a 3-byte version
// prefix, a 16-byte IV, then AES-128-CBC ciphertext padded with PKCS#7.
func decrypt(encrypted, key []byte) (string, error) {
	if len(encrypted) < 3+aesBlockSize {
		return "", &Error{Kind: KindDecryptionFailed, Message: "encrypted value too short"}
	}

	version := string(encrypted[:3])
	if version != "v10" && version != "v11" {
		return "", &Error{Kind: KindDecryptionFailed, Message: "unsupported cookie encryption version " + version}
	}

	iv := encrypted[3 : 3+aesBlockSize]
	ciphertext := encrypted[3+aesBlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aesBlockSize != 0 {
		return "", &Error{Kind: KindDecryptionFailed, Message: "ciphertext is not block-aligned"}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &Error{Kind: KindDecryptionFailed, Message: err.Error()}
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	plaintext = removePKCS7Padding(plaintext)

	return postProcess(plaintext)
}

func removePKCS7Padding(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	padLen := int(b[len(b)-1])
	if padLen <= 0 || padLen > aesBlockSize || padLen > len(b) {
		return b
	}
	return b[:len(b)-padLen]
}

// postProcess recovers the cookie value from the decrypted plaintext.
// Chromium's v10/v11 format leaves room for the value to start with a
// 16-byte SHA1-derived artifact on some platforms; prefer a clean UTF-8
// string starting with an alphanumeric character or underscore, fall back to
// skipping that artifact, and otherwise take the longest printable run.
func postProcess(plaintext []byte) (string, error) {
	if isCleanValue(plaintext) {
		return string(plaintext), nil
	}

	if len(plaintext) > aesBlockSize {
		skipped := plaintext[aesBlockSize:]
		if isCleanValue(skipped) {
			return string(skipped), nil
		}
	}

	if run := longestPrintableRun(plaintext); len(run) >= 10 {
		return run, nil
	}

	return "", &Error{Kind: KindDecryptionFailed, Message: "could not recover a clean cookie value"}
}

func isCleanValue(b []byte) bool {
	if len(b) == 0 || !bytes.Equal(b, bytes.ToValidUTF8(b, nil)) {
		return false
	}
	r := rune(b[0])
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func longestPrintableRun(b []byte) string {
	best := ""
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if run := string(b[start:end]); len(run) > len(best) {
			best = run
		}
		start = -1
	}
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(b))
	return best
}
