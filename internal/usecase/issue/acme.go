package issue

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
	jose "github.com/go-jose/go-jose/v4"

	"github.com/mrled/suns/dnsrenew/internal/store"
)

// ACMEClient is the part of a lego client the issuer drives
type ACMEClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	ResolveAccountByKey() (*registration.Resource, error)
	SetDNS01Provider(provider challenge.Provider, opts ...dns01.ChallengeOption) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

// ClientFactory builds an ACMEClient for a lego configuration
type ClientFactory func(cfg *lego.Config) (ACMEClient, error)

// NewLegoClient is the ClientFactory backed by a real lego client
func NewLegoClient(cfg *lego.Config) (ACMEClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) ResolveAccountByKey() (*registration.Resource, error) {
	return l.client.Registration.ResolveAccountByKey()
}

func (l *legoClientAdapter) SetDNS01Provider(provider challenge.Provider, opts ...dns01.ChallengeOption) error {
	return l.client.Challenge.SetDNS01Provider(provider, opts...)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

// accountUser implements registration.User
type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string {
	return u.email
}

func (u *accountUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *accountUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}

// KeyMaker generates a private key
type KeyMaker func() (crypto.Signer, error)

// NewAccountKey generates an EC P-256 account key
func NewAccountKey() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// NewCertificateKey generates an RSA-2048 certificate key
func NewCertificateKey() (crypto.Signer, error) {
	key, err := certcrypto.GeneratePrivateKey(certcrypto.RSA2048)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", key)
	}
	return signer, nil
}

// EncodeKeypair renders key in the PEM and JWK forms the store keeps
func EncodeKeypair(key crypto.Signer) (store.Keypair, error) {
	pub, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return store.Keypair{}, fmt.Errorf("marshal public key: %w", err)
	}
	privJWK, err := jose.JSONWebKey{Key: key}.MarshalJSON()
	if err != nil {
		return store.Keypair{}, fmt.Errorf("marshal private jwk: %w", err)
	}
	pubJWK, err := jose.JSONWebKey{Key: key.Public()}.MarshalJSON()
	if err != nil {
		return store.Keypair{}, fmt.Errorf("marshal public jwk: %w", err)
	}

	return store.Keypair{
		PrivateKeyPEM: string(certcrypto.PEMEncode(key)),
		PrivateKeyJWK: privJWK,
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})),
		PublicKeyJWK:  pubJWK,
	}, nil
}

// DecodeKeypair parses the private key of a stored keypair
func DecodeKeypair(kp *store.Keypair) (crypto.PrivateKey, error) {
	key, err := certcrypto.ParsePEMPrivateKey([]byte(kp.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
