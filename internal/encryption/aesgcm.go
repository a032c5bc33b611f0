// Package encryption implements the chunked AES-256-GCM stream used for
// encrypted reports.
//
// Stream layout:
//
//	magic (8) | salt (16) | nonce prefix (8) | record* | final record
//	record:       uint32 plaintext length | ciphertext + tag
//	final record: uint32 0                | tag
//
// Each record's nonce is the prefix followed by a big-endian uint32
// counter. The header is authenticated as additional data on every record,
// and the final record carries a distinct marker so a truncated stream
// fails to decrypt.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/scrypt"
)

// Ext is appended to keys of encrypted objects.
const Ext = ".enc"

const (
	saltSize        = 16
	noncePrefixSize = 8
	headerSize      = len(magic) + saltSize + noncePrefixSize
	chunkSize       = 32 * 1024
)

var magic = [8]byte{'C', 'R', 'O', 'N', 'K', 'I', 'T', 1}

var (
	ErrEmptyPassword = errors.New("encryption password is empty")
	ErrBadHeader     = errors.New("invalid encrypted stream header")
	ErrTruncated     = errors.New("encrypted stream is truncated")
)

// scrypt parameters, interactive-login strength
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

func deriveGCM(password string, salt []byte) (cipher.AEAD, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

func additionalData(header []byte, final bool) []byte {
	ad := make([]byte, len(header)+1)
	copy(ad, header)
	if final {
		ad[len(header)] = 1
	}
	return ad
}

// EncryptAESGCM encrypts src into dst and returns the plaintext byte count.
func EncryptAESGCM(dst io.Writer, src io.Reader, password string) (int64, error) {
	header := make([]byte, headerSize)
	copy(header, magic[:])
	if _, err := rand.Read(header[len(magic):]); err != nil {
		return 0, fmt.Errorf("random header: %w", err)
	}

	gcm, err := deriveGCM(password, header[len(magic):len(magic)+saltSize])
	if err != nil {
		return 0, err
	}
	if _, err := dst.Write(header); err != nil {
		return 0, err
	}

	nonce := make([]byte, gcm.NonceSize())
	copy(nonce, header[len(magic)+saltSize:])
	dataAD := additionalData(header, false)

	var counter uint32
	seal := func(plain, ad []byte) error {
		if counter == math.MaxUint32 {
			return fmt.Errorf("stream too long")
		}
		binary.BigEndian.PutUint32(nonce[noncePrefixSize:], counter)
		counter++

		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(plain)))
		if _, err := dst.Write(lenBuf[:]); err != nil {
			return err
		}
		_, err := dst.Write(gcm.Seal(nil, nonce, plain, ad))
		return err
	}

	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if err := seal(buf[:n], dataAD); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}

	if err := seal(nil, additionalData(header, true)); err != nil {
		return total, err
	}
	return total, nil
}

// DecryptAESGCM reverses EncryptAESGCM.
func DecryptAESGCM(dst io.Writer, src io.Reader, password string) (int64, error) {
	if password == "" {
		return 0, ErrEmptyPassword
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if !bytes.Equal(header[:len(magic)], magic[:]) {
		return 0, ErrBadHeader
	}

	gcm, err := deriveGCM(password, header[len(magic):len(magic)+saltSize])
	if err != nil {
		return 0, err
	}

	nonce := make([]byte, gcm.NonceSize())
	copy(nonce, header[len(magic)+saltSize:])
	dataAD := additionalData(header, false)
	finalAD := additionalData(header, true)

	var counter uint32
	var lenBuf [4]byte
	var total int64
	for {
		if _, err := io.ReadFull(src, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, ErrTruncated
			}
			return total, err
		}
		plainLen := binary.BigEndian.Uint32(lenBuf[:])
		if plainLen > chunkSize {
			return total, fmt.Errorf("record length %d exceeds chunk size", plainLen)
		}

		sealed := make([]byte, int(plainLen)+gcm.Overhead())
		if _, err := io.ReadFull(src, sealed); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, ErrTruncated
			}
			return total, err
		}

		binary.BigEndian.PutUint32(nonce[noncePrefixSize:], counter)
		counter++

		ad := dataAD
		if plainLen == 0 {
			ad = finalAD
		}
		plaintext, err := gcm.Open(nil, nonce, sealed, ad)
		if err != nil {
			return total, fmt.Errorf("decrypt failed: %w", err)
		}
		if plainLen == 0 {
			return total, nil
		}

		if _, err := dst.Write(plaintext); err != nil {
			return total, err
		}
		total += int64(len(plaintext))
	}
}
