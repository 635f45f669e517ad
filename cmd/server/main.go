// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command server runs a standalone OpenID Connect authorization server
// demonstrating how to mount the oidc middleware behind a chi router
// with an in-process client/user registry. It generates a throwaway
// RSA signing key and TLS certificate on every start, so tokens don't
// survive a restart; point SigningCredentials and a real TLS
// certificate at persistent material for anything long-lived.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"flag"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-jose/go-jose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hooklift/oidc"
	oidccache "github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/providers/memory"
	"github.com/hooklift/oidc/types"
)

type serverOptions struct {
	listenAddress     string
	issuer            string
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	logLevel          string
}

func (o *serverOptions) addFlags(f *flag.FlagSet) {
	f.StringVar(&o.listenAddress, "listen-address", ":8443", "TLS listener address.")
	f.StringVar(&o.issuer, "issuer", "https://localhost:8443", "Issuer URL advertised in discovery and tokens.")
	f.DurationVar(&o.readTimeout, "read-timeout", time.Second, "How long to wait for the client to send the request body.")
	f.DurationVar(&o.readHeaderTimeout, "read-header-timeout", time.Second, "How long to wait for the client to send headers.")
	f.DurationVar(&o.writeTimeout, "write-timeout", 10*time.Second, "How long to wait for the server to respond.")
	f.StringVar(&o.logLevel, "log-level", "info", "Logging level: debug, info, warn, error.")
}

func main() {
	opts := &serverOptions{}
	opts.addFlags(flag.CommandLine)
	flag.Parse()

	logger := newLogger(opts.logLevel)

	signingKey, signingCert, err := generateSigningCredential()
	if err != nil {
		logger.Fatal().Err(err).Msg("generating signing credential")
	}

	tlsCert, err := generateServerCertificate()
	if err != nil {
		logger.Fatal().Err(err).Msg("generating TLS certificate")
	}

	var symmetricKey [32]byte
	if _, err := rand.Read(symmetricKey[:]); err != nil {
		logger.Fatal().Err(err).Msg("generating opaque token key")
	}

	cache, err := oidccache.NewLRU(10_000)
	if err != nil {
		logger.Fatal().Err(err).Msg("building continuation/code cache")
	}

	provider := memory.New()
	provider.RegisterClient(memory.Client{
		ID:           "demo-client",
		Secret:       "demo-secret",
		RedirectURIs: []string{"https://localhost:8443/callback"},
		Confidential: true,
	})
	provider.RegisterUser(memory.User{
		Subject:  "u-1",
		Username: "alice",
		Password: "hunter2",
		Claims: []types.Claim{
			{Type: "given_name", Value: "Alice", Destinations: []string{types.DestinationIDToken}},
		},
	})
	provider.Authenticate = func(r *http.Request) (types.Principal, bool) {
		sub, _, ok := r.BasicAuth()
		if !ok {
			return types.Principal{}, false
		}
		return types.NewPrincipal(types.Claim{
			Type:         "name_identifier",
			Value:        sub,
			Destinations: []string{types.DestinationAccessToken, types.DestinationIDToken},
		}), true
	}

	oidcOpts := &oidc.Options{
		AuthorizationEndpointPath: "/connect/authorize",
		TokenEndpointPath:         "/connect/token",
		ValidationEndpointPath:    "/connect/introspect",
		ProfileEndpointPath:       "/connect/userinfo",
		LogoutEndpointPath:        "/connect/logout",
		ConfigurationEndpointPath: "/.well-known/openid-configuration",
		CryptographyEndpointPath:  "/.well-known/jwks.json",
		Issuer:                    opts.issuer,
		AuthorizationCodeLifetime: 5 * time.Minute,
		AccessTokenLifetime:       time.Hour,
		IdentityTokenLifetime:     time.Hour,
		RefreshTokenLifetime:      30 * 24 * time.Hour,
		SigningCredentials: []oidc.SigningCredential{{
			Algorithm:   jose.RS256,
			PrivateKey:  signingKey,
			Certificate: signingCert,
			Kid:         "default",
		}},
		AccessTokenFormat:      oidc.FormatOpaque,
		RefreshTokenFormat:     oidc.FormatOpaque,
		AuthorizationCodeFormat: oidc.FormatOpaque,
		Cache:                  cache,
		SymmetricKey:           symmetricKey,
		Logger:                 &logger,
	}

	srv, err := oidc.New(oidcOpts, provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("building oidc server")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Handle("/*", srv.Handler(http.NotFoundHandler()))

	httpServer := &http.Server{
		Addr:              opts.listenAddress,
		Handler:           router,
		ReadTimeout:       opts.readTimeout,
		ReadHeaderTimeout: opts.readHeaderTimeout,
		WriteTimeout:      opts.writeTimeout,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{tlsCert}},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("address", opts.listenAddress).Msg("starting server")
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "oidc").Logger()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// generateSigningCredential mints a throwaway RSA key and a matching
// self-signed certificate for the JWKS endpoint's x5c/x5t fields.
func generateSigningCredential() (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "oidc-signing-key"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}

	return key, cert, nil
}

// generateServerCertificate mints a throwaway TLS server certificate
// for localhost so the demo can listen with HTTPS, a hard requirement
// of every endpoint this package serves.
func generateServerCertificate() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
