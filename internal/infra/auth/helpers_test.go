package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

const testKeyName = "private.pem"

var (
	testKeysOnce sync.Once
	testKeys     [2]*rsa.PrivateKey
	testKeysErr  error
)

// testRSAKeys returns two distinct 2048-bit keys shared by the package tests.
func testRSAKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()

	testKeysOnce.Do(func() {
		for i := range testKeys {
			testKeys[i], testKeysErr = rsa.GenerateKey(rand.Reader, 2048)
			if testKeysErr != nil {
				return
			}
		}
	})
	require.NoError(t, testKeysErr)

	return testKeys[0], testKeys[1]
}

func pkcs1PEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func pkcs8PEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// memOpener returns an opener that serves objects from a fresh in-memory bucket
// on every call, so tests can change objects between reads.
func memOpener(objects map[string][]byte, opens *int) BucketOpener {
	return func(ctx context.Context) (*blob.Bucket, error) {
		if opens != nil {
			*opens++
		}

		bucket := memblob.OpenBucket(nil)
		for name, data := range objects {
			if err := bucket.WriteAll(ctx, name, data, nil); err != nil {
				_ = bucket.Close()

				return nil, err
			}
		}

		return bucket, nil
	}
}

func newTestKeyProvider(t *testing.T, key *rsa.PrivateKey) *RSAKeyProvider {
	t.Helper()

	return NewRSAKeyProvider(memOpener(map[string][]byte{testKeyName: pkcs1PEM(key)}, nil), testKeyName)
}
