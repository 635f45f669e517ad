package oidc

import (
	"crypto/sha1"
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/go-jose/go-jose/v3"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// handleJWKS implements the JSON Web Key Set endpoint. It walks the
// configured signing credentials and emits the public half of every
// RSA key, skipping algorithms that aren't RS256/384/512.
func handleJWKS(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()

	keys := &types.JWKSet{Keys: []types.JWK{}}
	for _, cred := range s.opts.SigningCredentials {
		switch cred.Algorithm {
		case jose.RS256, jose.RS384, jose.RS512:
		default:
			continue
		}
		keys.Keys = append(keys.Keys, jwkFor(cred))
	}

	cc := &CryptographyEndpointContext{Context: ctx, Keys: keys}
	if err := s.provider.CryptographyEndpoint(ctx, cc); err != nil {
		render.JSON(w, render.Options{Status: http.StatusInternalServerError, Data: types.NewError(types.ErrCodeServerError, "internal error"), Logger: &logger})
		return
	}

	render.JSON(w, render.Options{Data: cc.Keys, Logger: &logger})
}

func jwkFor(cred SigningCredential) types.JWK {
	jwk := types.JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: string(cred.Algorithm),
		Kid: signingKeyID(&cred),
	}
	if cred.PrivateKey != nil {
		pub := cred.PrivateKey.PublicKey
		jwk.N = base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
		jwk.E = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	}
	if cred.Certificate != nil {
		sum := sha1.Sum(cred.Certificate.Raw)
		jwk.X5T = base64.RawURLEncoding.EncodeToString(sum[:])
		jwk.X5C = []string{base64.StdEncoding.EncodeToString(cred.Certificate.Raw)}
	}
	return jwk
}
