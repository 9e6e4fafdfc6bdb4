package draftdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	envelopeMagic     = "DRAFTPAD-ENVELOPE"
	envelopeVersionV1 = uint16(1)
	envFlagCompressed = uint16(1 << 0)
	envFlagEncrypted  = uint16(1 << 1)

	envSaltSize   = 16
	envNonceSize  = 12
	kdfIterations = 200000
	kdfKeyLen     = 32

	envOffVersion = len(envelopeMagic)
	envOffFlags   = envOffVersion + 2
	envOffSalt    = envOffFlags + 2
	envOffNonce   = envOffSalt + envSaltSize
	envOffLen     = envOffNonce + envNonceSize
	envHeaderSize = envOffLen + 8
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

func (o SaveOptions) wrapped() bool {
	return o.Compression || o.Encryption.Enabled
}

type LoadOptions struct {
	Password string
}

type EnvelopeInfo struct {
	Wrapped     bool
	Compressed  bool
	Encrypted   bool
	EnvelopeVer uint16
}

func isEnvelope(b []byte) bool {
	return bytes.HasPrefix(b, []byte(envelopeMagic))
}

func InspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	var info EnvelopeInfo
	if !isEnvelope(b) {
		return info, nil
	}
	if len(b) < envHeaderSize {
		return info, ErrInvalidSecureFile
	}
	version := binary.LittleEndian.Uint16(b[envOffVersion:envOffFlags])
	if version != envelopeVersionV1 {
		return info, fmt.Errorf("%w: envelope version %d", ErrUnsupportedVer, version)
	}
	flags := binary.LittleEndian.Uint16(b[envOffFlags:envOffSalt])
	info.Wrapped = true
	info.Compressed = flags&envFlagCompressed != 0
	info.Encrypted = flags&envFlagEncrypted != 0
	info.EnvelopeVer = version
	return info, nil
}

func wrapEnvelope(payload []byte, opts SaveOptions) ([]byte, error) {
	var flags uint16
	var err error
	if opts.Compression {
		flags |= envFlagCompressed
		if payload, err = deflate(payload); err != nil {
			return nil, err
		}
	}

	salt := make([]byte, envSaltSize)
	nonce := make([]byte, envNonceSize)
	if opts.Encryption.Enabled {
		if strings.TrimSpace(opts.Encryption.Password) == "" {
			return nil, ErrPasswordRequired
		}
		flags |= envFlagEncrypted
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
		gcm, err := newGCM(opts.Encryption.Password, salt)
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, nonce, payload, nil)
	}

	out := make([]byte, envHeaderSize, envHeaderSize+len(payload))
	copy(out, envelopeMagic)
	binary.LittleEndian.PutUint16(out[envOffVersion:envOffFlags], envelopeVersionV1)
	binary.LittleEndian.PutUint16(out[envOffFlags:envOffSalt], flags)
	copy(out[envOffSalt:envOffNonce], salt)
	copy(out[envOffNonce:envOffLen], nonce)
	binary.LittleEndian.PutUint64(out[envOffLen:envHeaderSize], uint64(len(payload)))
	return append(out, payload...), nil
}

func unwrapEnvelope(b []byte, opts LoadOptions) ([]byte, error) {
	info, err := InspectEnvelopeBytes(b)
	if err != nil {
		return nil, err
	}
	if !info.Wrapped {
		return nil, ErrInvalidSecureFile
	}
	if binary.LittleEndian.Uint64(b[envOffLen:envHeaderSize]) != uint64(len(b)-envHeaderSize) {
		return nil, ErrInvalidSecureFile
	}
	payload := append([]byte(nil), b[envHeaderSize:]...)

	if info.Encrypted {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := newGCM(opts.Password, b[envOffSalt:envOffNonce])
		if err != nil {
			return nil, err
		}
		if payload, err = gcm.Open(nil, b[envOffNonce:envOffLen], payload, nil); err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if info.Compressed {
		if payload, err = inflate(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSecureFile, err)
		}
	}
	return payload, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, kdfKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func deflate(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
