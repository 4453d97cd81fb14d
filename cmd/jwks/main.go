// Command jwks prints the public JWK of a PEM-encoded RSA private key, so the
// key set other services verify access tokens with can be published offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"authservice/internal/infra/auth"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

const defaultKeyPath = "certs/private.pem"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("jwks", flag.ContinueOnError)
	keyPath := flags.String("key", defaultKeyPath, "Path to the PEM-encoded RSA private key (PKCS#1 or PKCS#8)")
	asSet := flags.Bool("set", false, `Wrap the key in a {"keys":[...]} set`)
	if err := flags.Parse(args); err != nil {
		return errors.WithStack(err)
	}

	dir, err := filepath.Abs(filepath.Dir(*keyPath))
	if err != nil {
		return errors.Wrap(err, "resolve key directory")
	}

	provider := auth.NewRSAKeyProvider(func(context.Context) (*blob.Bucket, error) {
		return fileblob.OpenBucket(dir, nil)
	}, filepath.Base(*keyPath))

	set, err := provider.JWKS(ctx)
	if err != nil {
		return errors.Wrapf(err, "load %s", *keyPath)
	}

	var doc any = set
	if !*asSet {
		doc = set.Keys[0]
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return errors.WithStack(encoder.Encode(doc))
}
