package stacks

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	signedMessagePrefix       = "\x17Stacks Signed Message:\n"
	legacySignedMessagePrefix = "\x18Stacks Message Signing:\n"

	// r || s || recovery id
	rsvSignatureLength = 65
	compactSigLength   = 64
)

// SignatureVerifier checks RSV encoded secp256k1 signatures over Stacks signed messages.
type SignatureVerifier struct{}

func NewSignatureVerifier() SignatureVerifier {
	return SignatureVerifier{}
}

// Verify accepts high-S signatures, wallets do not always normalize them.
// A signature over the legacy message prefix is accepted too.
func (SignatureVerifier) Verify(message, publicKey, signature string) bool {
	rawKey, err := decodeHex(publicKey)
	if err != nil {
		return false
	}
	key, err := secp256k1.ParsePubKey(rawKey)
	if err != nil {
		return false
	}
	sig, ok := parseRSV(signature)
	if !ok {
		return false
	}
	if sig.Verify(HashMessage(message), key) {
		return true
	}
	return sig.Verify(hashLegacyMessage(message), key)
}

// HashMessage is sha256(prefix || varint(len(message)) || message).
func HashMessage(message string) []byte {
	return hashPrefixedMessage(signedMessagePrefix, message)
}

// hashLegacyMessage only differs from HashMessage by its prefix.
func hashLegacyMessage(message string) []byte {
	return hashPrefixedMessage(legacySignedMessagePrefix, message)
}

func hashPrefixedMessage(prefix, message string) []byte {
	buf := make([]byte, 0, len(prefix)+binary.MaxVarintLen64+len(message))
	buf = append(buf, prefix...)
	buf = appendVarint(buf, uint64(len(message)))
	buf = append(buf, message...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// SignMessage produces the RSV hex signature a Stacks wallet returns for message.
func SignMessage(key *secp256k1.PrivateKey, message string) string {
	return signHash(key, HashMessage(message))
}

func signHash(key *secp256k1.PrivateKey, hash []byte) string {
	// compact is recovery code || r || s, the code being 27 + id (+4 when compressed)
	compact := ecdsa.SignCompact(key, hash, true)
	rsv := make([]byte, 0, rsvSignatureLength)
	rsv = append(rsv, compact[1:]...)
	rsv = append(rsv, compact[0]-27-4)
	return hex.EncodeToString(rsv)
}

func parseRSV(signature string) (*ecdsa.Signature, bool) {
	raw, err := decodeHex(signature)
	if err != nil {
		return nil, false
	}
	if len(raw) != rsvSignatureLength && len(raw) != compactSigLength {
		return nil, false
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(raw[:32]); overflow || r.IsZero() {
		return nil, false
	}
	if overflow := s.SetByteSlice(raw[32:64]); overflow || s.IsZero() {
		return nil, false
	}
	return ecdsa.NewSignature(&r, &s), true
}

// appendVarint writes a bitcoin style variable length integer.
func appendVarint(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		return binary.LittleEndian.AppendUint16(append(buf, 0xfd), uint16(n))
	case n <= 0xffffffff:
		return binary.LittleEndian.AppendUint32(append(buf, 0xfe), uint32(n))
	default:
		return binary.LittleEndian.AppendUint64(append(buf, 0xff), n)
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return hex.DecodeString(s)
}
