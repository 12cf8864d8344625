package main

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

type tlsFiles struct {
	ca, cert, key string
}

func (f tlsFiles) enabled() bool {
	return f.cert != "" && f.key != ""
}

// serverConfig loads the key pair and, when a CA is given, verifies client certificates that are presented.
func (f tlsFiles) serverConfig() (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(f.cert, f.key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load key pair %s", f.cert)
	}

	conf := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
		NextProtos:   []string{"h2"},
	}
	if f.ca == "" {
		return conf, nil
	}

	pem, err := os.ReadFile(f.ca)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read CA %s", f.ca)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("no certificates in %s", f.ca)
	}

	conf.ClientAuth = tls.VerifyClientCertIfGiven
	conf.ClientCAs = pool
	return conf, nil
}
