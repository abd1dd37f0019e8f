package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kytnacode/go-jrpcclient/auth"
)

const (
	defaultURL             = "http://localhost:8080/rpc"
	defaultTimeout         = 30 * time.Second
	defaultClientSecretEnv = "JRPC_CLIENT_SECRET"
)

var errUnknownProfile = errors.New("unknown profile")

// profile is the resolved configuration of a destination.
type profile struct {
	Name    string
	URL     string
	Timeout time.Duration
	CBOR    bool
	Headers map[string]string
	Auth    auth.Config
}

type fileConfig struct {
	DefaultProfile string                 `toml:"default_profile"`
	Profiles       map[string]fileProfile `toml:"profiles"`
}

type fileProfile struct {
	URL     string            `toml:"url"`
	Timeout string            `toml:"timeout"`
	CBOR    bool              `toml:"cbor"`
	Headers map[string]string `toml:"headers"`
	Auth    fileAuth          `toml:"auth"`
}

type fileAuth struct {
	Mode            string   `toml:"mode"`
	Token           string   `toml:"token"`
	Issuer          string   `toml:"issuer"`
	ClientID        string   `toml:"client_id"`
	ClientSecretEnv string   `toml:"client_secret_env"`
	Scopes          []string `toml:"scopes"`
	Audience        string   `toml:"audience"`
}

func defaultProfile() profile {
	return profile{
		Name:    "default",
		URL:     defaultURL,
		Timeout: defaultTimeout,
		Headers: map[string]string{},
		Auth:    auth.Config{Mode: auth.ModeNone},
	}
}

// loadProfile resolves the profile name of the file at path over the defaults, then applies the environment. An empty
// path skips the file, an empty name selects default_profile.
func loadProfile(path, name string, getenv func(string) string) (profile, error) {
	cfg := defaultProfile()

	if path != "" {
		var err error

		cfg, err = loadFileProfile(path, name, getenv)
		if err != nil {
			return profile{}, err
		}
	}

	if v := strings.TrimSpace(getenv("JRPC_URL")); v != "" {
		cfg.URL = v
	}

	if v := strings.TrimSpace(getenv("JRPC_TOKEN")); v != "" {
		cfg.Auth = auth.Config{Mode: auth.ModeBearer, Token: v}
	}

	return cfg, nil
}

func loadFileProfile(path, name string, getenv func(string) string) (profile, error) {
	cfg := defaultProfile()

	var raw fileConfig

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return profile{}, fmt.Errorf("load config: %w", err)
	}

	if name == "" {
		name = strings.TrimSpace(raw.DefaultProfile)
	}

	if name == "" {
		return cfg, nil
	}

	p, ok := raw.Profiles[name]
	if !ok {
		return profile{}, fmt.Errorf("%w %q in %s", errUnknownProfile, name, path)
	}

	cfg.Name = name

	if meta.IsDefined("profiles", name, "url") {
		cfg.URL = strings.TrimSpace(p.URL)
	}

	if meta.IsDefined("profiles", name, "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(p.Timeout))
		if err != nil {
			return profile{}, fmt.Errorf("parse timeout of profile %q: %w", name, err)
		}

		cfg.Timeout = d
	}

	if meta.IsDefined("profiles", name, "cbor") {
		cfg.CBOR = p.CBOR
	}

	if meta.IsDefined("profiles", name, "headers") {
		for k, v := range p.Headers {
			cfg.Headers[k] = v
		}
	}

	if meta.IsDefined("profiles", name, "auth") {
		secretEnv := defaultClientSecretEnv
		if meta.IsDefined("profiles", name, "auth", "client_secret_env") {
			secretEnv = strings.TrimSpace(p.Auth.ClientSecretEnv)
		}

		cfg.Auth = auth.Config{
			Mode:         strings.TrimSpace(p.Auth.Mode),
			Token:        p.Auth.Token,
			Issuer:       strings.TrimSpace(p.Auth.Issuer),
			ClientID:     strings.TrimSpace(p.Auth.ClientID),
			ClientSecret: getenv(secretEnv),
			Scopes:       p.Auth.Scopes,
			Audience:     strings.TrimSpace(p.Auth.Audience),
		}
	}

	return cfg, nil
}
