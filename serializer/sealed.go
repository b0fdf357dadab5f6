package serializer

import (
	"go.hackfix.me/forage/crypto"
)

// Sealed wraps inner with symmetric encryption using the given secret key.
// Values are serialized with inner and then encrypted, and decrypted before
// being deserialized with inner.
//
// If inner is incomplete or key is nil, the returned pair is incomplete as
// well, and rejected by NewCodec.
func Sealed(inner SyncPair, key *[crypto.KeySize]byte) SyncPair {
	if inner.Serialize == nil || inner.Deserialize == nil || key == nil {
		return SyncPair{}
	}

	return SyncPair{
		Serialize: func(value any) ([]byte, error) {
			data, err := inner.Serialize(value)
			if err != nil {
				return nil, err
			}
			return crypto.EncryptSym(data, key)
		},
		Deserialize: func(data []byte) (any, error) {
			plain, err := crypto.DecryptSym(data, key)
			if err != nil {
				return nil, err
			}
			return inner.Deserialize(plain)
		},
	}
}
