package challenge

import (
	"errors"
	"log/slog"

	"github.com/mrled/suns/dnsrenew/internal/provider/cloudflare"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
)

// CreateOptions configure a Cloudflare-backed Provider
type CreateOptions struct {
	Email   string
	Key     string
	Token   string
	BaseURL string

	ACMEPrefix        string
	VerifyPropagation *dnsverification.Policy
	// Resolver is used for propagation checks; defaults to the system resolver
	Resolver dnsverification.Resolver
	Logger   *slog.Logger
}

// Create builds a Provider that manages records through Cloudflare
func Create(o CreateOptions) (*Provider, error) {
	if o.Token == "" && (o.Email == "" || o.Key == "") {
		return nil, errors.New("cloudflare credentials required: token, or email and key")
	}

	resolver := o.Resolver
	if resolver == nil {
		resolver = &dnsverification.DefaultResolver{}
	}

	api := cloudflare.NewClient(cloudflare.Config{
		BaseURL:  o.BaseURL,
		Email:    o.Email,
		APIKey:   o.Key,
		APIToken: o.Token,
	})

	return New(api, Options{
		ACMEPrefix:  o.ACMEPrefix,
		Propagation: o.VerifyPropagation,
		Verifier:    dnsverification.NewServiceWithResolver(resolver, o.Logger),
		Logger:      o.Logger,
	}), nil
}
