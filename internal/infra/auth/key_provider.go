package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"log/slog"
	"sync"

	"authservice/config"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/lifecycle"
	"authservice/internal/domain/service"
	"authservice/internal/errors"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"gocloud.dev/blob"

	// Bucket drivers selectable through token.keyBucketUrl.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

// BucketOpener opens the bucket holding the PEM encoded signing key.
type BucketOpener func(ctx context.Context) (*blob.Bucket, error)

// URLBucketOpener opens a bucket by gocloud URL, e.g. file:///certs or gs://bucket.
func URLBucketOpener(bucketURL string) BucketOpener {
	return func(ctx context.Context) (*blob.Bucket, error) {
		return blob.OpenBucket(ctx, bucketURL)
	}
}

// RSAKeyProvider loads the RSA private key once and keeps it in memory.
// Failed reads are not cached; the next call retries.
type RSAKeyProvider struct {
	open    BucketOpener
	keyName string

	mu   sync.RWMutex
	key  *rsa.PrivateKey
	kid  string
	jwks *jose.JSONWebKeySet
}

// KeyProviderParams defines the dependencies of the key provider.
type KeyProviderParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewKeyProvider builds the key provider from config and loads the key on start,
// so a missing or unreadable key fails startup instead of the first login.
func NewKeyProvider(params KeyProviderParams) service.KeyProvider {
	provider := NewRSAKeyProvider(
		URLBucketOpener(params.Config.Token.KeyBucketURL),
		params.Config.Token.KeyName,
	)

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			kid, err := provider.KeyID(ctx)
			if err != nil {
				return err
			}
			params.Logger.Info("Signing key loaded",
				slog.String("bucket", params.Config.Token.KeyBucketURL),
				slog.String("key", params.Config.Token.KeyName),
				slog.String("kid", kid),
			)

			return nil
		},
	})

	return provider
}

// NewRSAKeyProvider creates a provider reading keyName from the opened bucket.
func NewRSAKeyProvider(open BucketOpener, keyName string) *RSAKeyProvider {
	return &RSAKeyProvider{
		open:    open,
		keyName: keyName,
	}
}

// SigningKey returns the cached private key, reading it on first use.
func (p *RSAKeyProvider) SigningKey(ctx context.Context) (*rsa.PrivateKey, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.key, nil
}

// PublicKey returns the public half of the signing key.
func (p *RSAKeyProvider) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	key, err := p.SigningKey(ctx)
	if err != nil {
		return nil, err
	}

	return &key.PublicKey, nil
}

// KeyID returns the RFC 7638 thumbprint of the public key.
func (p *RSAKeyProvider) KeyID(ctx context.Context) (string, error) {
	if err := p.load(ctx); err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.kid, nil
}

// JWKS returns the public key set published at /.well-known/jwks.json.
func (p *RSAKeyProvider) JWKS(ctx context.Context) (*jose.JSONWebKeySet, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.jwks, nil
}

func (p *RSAKeyProvider) load(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.key != nil
	p.mu.RUnlock()
	if loaded {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return nil
	}

	pemBytes, err := p.read(ctx)
	if err != nil {
		return errors.Wrapf(domainerrors.ErrKeyUnavailable, "read %s: %v", p.keyName, err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return errors.Wrapf(domainerrors.ErrKeyUnavailable, "parse %s: %v", p.keyName, err)
	}

	jwk, kid, err := PublicJWK(&key.PublicKey)
	if err != nil {
		return errors.Wrapf(domainerrors.ErrKeyUnavailable, "thumbprint %s: %v", p.keyName, err)
	}

	p.key = key
	p.kid = kid
	p.jwks = &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}

	return nil
}

func (p *RSAKeyProvider) read(ctx context.Context) ([]byte, error) {
	bucket, err := p.open(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open bucket")
	}
	defer bucket.Close()

	data, err := bucket.ReadAll(ctx, p.keyName)
	if err != nil {
		return nil, errors.Wrap(err, "read object")
	}

	return data, nil
}

// PublicJWK describes pub as a signing JWK whose key id is its SHA-256 thumbprint.
func PublicJWK(pub *rsa.PublicKey) (jose.JSONWebKey, string, error) {
	jwk := jose.JSONWebKey{
		Key:       pub,
		Algorithm: jwt.SigningMethodRS256.Alg(),
		Use:       "sig",
	}

	thumbprint, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return jose.JSONWebKey{}, "", errors.Wrap(err, "compute thumbprint")
	}
	jwk.KeyID = base64.RawURLEncoding.EncodeToString(thumbprint)

	return jwk, jwk.KeyID, nil
}
