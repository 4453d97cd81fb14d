package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"authservice/config"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/service"
	"authservice/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"
)

const (
	defaultJWKSCacheTTL   = 10 * time.Minute
	defaultJWKSMinRefetch = time.Minute
	jwksFetchTimeout      = 5 * time.Second
	maxJWKSResponseLength = 1 << 20
)

// VerificationKeySourceParams defines the dependencies of the verification key source.
type VerificationKeySourceParams struct {
	fx.In

	Config *config.Config
	Keys   service.KeyProvider
}

// NewVerificationKeySource verifies against a remote JWKS endpoint when
// token.jwksUrl is set, and against the local signing key otherwise.
func NewVerificationKeySource(params VerificationKeySourceParams) service.VerificationKeySource {
	if params.Config.Token.JWKSURL != "" {
		return NewRemoteJWKSSource(
			params.Config.Token.JWKSURL,
			params.Config.Token.JWKSCacheTTL,
			&http.Client{Timeout: jwksFetchTimeout},
		)
	}

	return NewLocalKeySource(params.Keys)
}

type localKeySource struct {
	keys service.KeyProvider
}

// NewLocalKeySource resolves verification keys from the local key provider.
func NewLocalKeySource(keys service.KeyProvider) service.VerificationKeySource {
	return &localKeySource{keys: keys}
}

func (s *localKeySource) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	current, err := s.keys.KeyID(ctx)
	if err != nil {
		return nil, err
	}
	if kid != "" && kid != current {
		return nil, errors.Wrapf(domainerrors.ErrTokenInvalidSignature, "unknown key id %q", kid)
	}

	return s.keys.PublicKey(ctx)
}

// remoteJWKSSource caches a fetched key set for ttl. A token naming a kid the
// cached set lacks triggers an early refetch, at most once per minRefetch, so
// forged kids cannot turn verification into a fetch per request.
type remoteJWKSSource struct {
	url        string
	ttl        time.Duration
	minRefetch time.Duration
	client     *http.Client
	now        func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	set       *jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewRemoteJWKSSource creates a key source backed by the JWKS document at url.
func NewRemoteJWKSSource(url string, ttl time.Duration, client *http.Client) service.VerificationKeySource {
	return newRemoteJWKSSource(url, ttl, client, time.Now)
}

func newRemoteJWKSSource(url string, ttl time.Duration, client *http.Client, now func() time.Time) *remoteJWKSSource {
	if ttl <= 0 {
		ttl = defaultJWKSCacheTTL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &remoteJWKSSource{
		url:        url,
		ttl:        ttl,
		minRefetch: min(defaultJWKSMinRefetch, ttl),
		client:     client,
		now:        now,
	}
}

func (s *remoteJWKSSource) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	set, fetchedAt := s.set, s.fetchedAt
	s.mu.RUnlock()

	age := s.now().Sub(fetchedAt)

	var err error
	switch {
	case set == nil || age >= s.ttl:
		set, err = s.refresh(ctx)
	case age >= s.minRefetch:
		// Unknown kid on a cached set usually means the signer rotated keys.
		if _, found := lookupRSAKey(set, kid); !found {
			set, err = s.refresh(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	key, found := lookupRSAKey(set, kid)
	if !found {
		return nil, errors.Wrapf(domainerrors.ErrTokenInvalidSignature, "no RSA key for kid %q", kid)
	}

	return key, nil
}

// refresh fetches the key set once for all concurrent callers. The fetch is
// detached from any single caller's cancellation and bounded by the client timeout.
func (s *remoteJWKSSource) refresh(ctx context.Context) (*jose.JSONWebKeySet, error) {
	v, err, _ := s.group.Do(s.url, func() (any, error) {
		set, err := s.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, errors.Wrapf(domainerrors.ErrKeyUnavailable, "fetch %s: %v", s.url, err)
		}

		s.mu.Lock()
		s.set = set
		s.fetchedAt = s.now()
		s.mu.Unlock()

		return set, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*jose.JSONWebKeySet), nil
}

func (s *remoteJWKSSource) fetch(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSResponseLength)).Decode(&set); err != nil {
		return nil, errors.Wrap(err, "decode key set")
	}

	return &set, nil
}

// lookupRSAKey returns the RSA public key for kid. An empty kid matches only a
// set holding exactly one key.
func lookupRSAKey(set *jose.JSONWebKeySet, kid string) (*rsa.PublicKey, bool) {
	if set == nil {
		return nil, false
	}

	candidates := set.Keys
	if kid != "" {
		candidates = set.Key(kid)
	} else if len(candidates) != 1 {
		return nil, false
	}

	for _, jwk := range candidates {
		if pub, ok := jwk.Key.(*rsa.PublicKey); ok {
			return pub, true
		}
	}

	return nil, false
}
