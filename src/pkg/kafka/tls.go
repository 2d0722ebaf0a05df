package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

func tlsConfigFromPEM(ca string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(ca)) {
		return nil, errors.New("kafka ca cert: no certificates found")
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
