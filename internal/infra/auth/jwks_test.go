package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"authservice/config"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jwksServer serves whatever key set the test currently holds and counts hits.
type jwksServer struct {
	*httptest.Server
	hits atomic.Int32
	set  atomic.Pointer[jose.JSONWebKeySet]
}

func newJWKSServer(t *testing.T, keys ...*rsa.PrivateKey) *jwksServer {
	t.Helper()

	srv := &jwksServer{}
	srv.publish(t, keys...)
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		srv.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(srv.set.Load())
	}))
	t.Cleanup(srv.Close)

	return srv
}

func (s *jwksServer) publish(t *testing.T, keys ...*rsa.PrivateKey) {
	t.Helper()

	set := &jose.JSONWebKeySet{}
	for _, key := range keys {
		jwk, _, err := PublicJWK(&key.PublicKey)
		require.NoError(t, err)
		set.Keys = append(set.Keys, jwk)
	}
	s.set.Store(set)
}

func kidOf(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	_, kid, err := PublicJWK(&key.PublicKey)
	require.NoError(t, err)

	return kid
}

func TestLocalKeySource(t *testing.T) {
	key, other := testRSAKeys(t)
	source := NewLocalKeySource(newTestKeyProvider(t, key))

	pub, err := source.VerificationKey(context.Background(), kidOf(t, key))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	pub, err = source.VerificationKey(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = source.VerificationKey(context.Background(), kidOf(t, other))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalidSignature))
}

func TestRemoteJWKSSource_CachesWithinTTL(t *testing.T) {
	key, _ := testRSAKeys(t)
	srv := newJWKSServer(t, key)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := newRemoteJWKSSource(srv.URL, time.Minute, srv.Client(), func() time.Time { return now })

	for range 3 {
		pub, err := source.VerificationKey(context.Background(), kidOf(t, key))
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(pub))
	}
	assert.Equal(t, int32(1), srv.hits.Load())

	now = now.Add(2 * time.Minute)
	_, err := source.VerificationKey(context.Background(), kidOf(t, key))
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestRemoteJWKSSource_RefetchesOnUnknownKid(t *testing.T) {
	key, rotated := testRSAKeys(t)
	srv := newJWKSServer(t, key)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := newRemoteJWKSSource(srv.URL, time.Hour, srv.Client(), func() time.Time { return now })

	_, err := source.VerificationKey(context.Background(), kidOf(t, key))
	require.NoError(t, err)

	srv.publish(t, key, rotated)

	// Within the cooldown the cached set is authoritative.
	_, err = source.VerificationKey(context.Background(), kidOf(t, rotated))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalidSignature))
	assert.Equal(t, int32(1), srv.hits.Load())

	now = now.Add(defaultJWKSMinRefetch)
	pub, err := source.VerificationKey(context.Background(), kidOf(t, rotated))
	require.NoError(t, err)
	assert.True(t, rotated.PublicKey.Equal(pub))
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestRemoteJWKSSource_UnknownKidsDoNotFetchPerRequest(t *testing.T) {
	key, _ := testRSAKeys(t)
	srv := newJWKSServer(t, key)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := newRemoteJWKSSource(srv.URL, time.Hour, srv.Client(), func() time.Time { return now })

	_, err := source.VerificationKey(context.Background(), kidOf(t, key))
	require.NoError(t, err)

	for i := range 50 {
		_, err := source.VerificationKey(context.Background(), fmt.Sprintf("forged-%d", i))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalidSignature))
	}
	assert.Equal(t, int32(1), srv.hits.Load())

	// Past the cooldown one refetch is allowed, then the window closes again.
	now = now.Add(defaultJWKSMinRefetch)
	for i := range 50 {
		_, err := source.VerificationKey(context.Background(), fmt.Sprintf("forged-%d", i))
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), srv.hits.Load())

	pub, err := source.VerificationKey(context.Background(), kidOf(t, key))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestRemoteJWKSSource_ConcurrentColdStartFetchesOnce(t *testing.T) {
	key, _ := testRSAKeys(t)
	release := make(chan struct{})
	var hits atomic.Int32

	jwk, _, err := PublicJWK(&key.PublicKey)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	}))
	defer srv.Close()

	source := newRemoteJWKSSource(srv.URL, time.Hour, srv.Client(), time.Now)
	kid := kidOf(t, key)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := source.VerificationKey(context.Background(), kid)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, hits.Load(), int32(2))
}

func TestRemoteJWKSSource_UnknownKidAfterRefetch(t *testing.T) {
	key, other := testRSAKeys(t)
	srv := newJWKSServer(t, key)
	source := newRemoteJWKSSource(srv.URL, time.Hour, srv.Client(), time.Now)

	_, err := source.VerificationKey(context.Background(), kidOf(t, other))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalidSignature))
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestRemoteJWKSSource_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewRemoteJWKSSource(srv.URL, time.Minute, srv.Client())

	_, err := source.VerificationKey(context.Background(), "any")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrKeyUnavailable))
}

func TestNewVerificationKeySource(t *testing.T) {
	key, _ := testRSAKeys(t)
	provider := newTestKeyProvider(t, key)

	local := NewVerificationKeySource(VerificationKeySourceParams{
		Config: &config.Config{Token: &config.TokenConfig{}},
		Keys:   provider,
	})
	assert.IsType(t, &localKeySource{}, local)

	remote := NewVerificationKeySource(VerificationKeySourceParams{
		Config: &config.Config{Token: &config.TokenConfig{JWKSURL: "http://127.0.0.1/jwks.json"}},
		Keys:   provider,
	})
	assert.IsType(t, &remoteJWKSSource{}, remote)
}
