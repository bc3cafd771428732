// Package registry implements the fleet registration client: on startup, a
// configured gateway announces itself to the Blockfrost fleet registry and
// receives back the route prefix it must then serve under.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/logging"
)

// Registrar is satisfied both by a real HTTP client and by Standalone, a
// no-op that always reports the root prefix.
type Registrar interface {
	// Register announces this instance and returns the route prefix it must
	// serve requests under afterward ("/" for a standalone instance).
	Register() (string, error)
}

// Standalone is a no-op Registrar: it performs no registration and always
// reports the root prefix.
type Standalone struct{}

func (Standalone) Register() (string, error) { return "/", nil }

// request is the body POSTed to /register.
type request struct {
	Secret        string `json:"secret"`
	Mode          string `json:"mode"`
	Port          int    `json:"port"`
	RewardAddress string `json:"reward_address"`
}

type response struct {
	Route string `json:"route"`
}

type errorResponse struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// HTTPRegistrar is the real Registrar implementation.
type HTTPRegistrar struct {
	client *http.Client
	log    *logging.Logger

	baseURL       string
	secret        string
	mode          string
	port          int
	rewardAddress string
}

// Config is everything HTTPRegistrar needs to construct its registration
// request body.
type Config struct {
	BaseURL       string
	Secret        string
	Mode          string
	Port          int
	RewardAddress string
}

// New builds an HTTPRegistrar. The caller is expected to have already
// resolved BaseURL from the network, see BaseURLForNetwork.
func New(cfg Config, log *logging.Logger) *HTTPRegistrar {
	return &HTTPRegistrar{
		client:        &http.Client{Timeout: 15 * time.Second},
		log:           log,
		baseURL:       cfg.BaseURL,
		secret:        cfg.Secret,
		mode:          cfg.Mode,
		port:          cfg.Port,
		rewardAddress: cfg.RewardAddress,
	}
}

// BaseURLForNetwork resolves the registry host: dev for preprod/preview,
// production for mainnet.
func BaseURLForNetwork(network string) string {
	switch network {
	case "preprod", "preview":
		return "https://api-dev.icebreakers.blockfrost.io"
	default:
		return "https://icebreakers-api.blockfrost.io"
	}
}

// Register posts this instance's identity to the registry and returns the
// route prefix it was assigned.
func (r *HTTPRegistrar) Register() (string, error) {
	r.log.Infof("Registering with icebreakers api...")

	body, err := json.Marshal(request{
		Secret:        r.secret,
		Mode:          r.mode,
		Port:          r.port,
		RewardAddress: r.rewardAddress,
	})
	if err != nil {
		return "", apperrors.RegistrationError(fmt.Sprintf("encoding request: %s", err))
	}

	req, err := http.NewRequest(http.MethodPost, r.baseURL+"/register", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.RegistrationError(fmt.Sprintf("building request: %s", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperrors.RegistrationError(fmt.Sprintf("registering failed: %s", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok response
		if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
			return "", apperrors.RegistrationError(fmt.Sprintf("failed to parse success response: %s", err))
		}
		r.log.Infof("Successfully registered with Icebreakers API.")
		return ok.Route, nil
	}

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", apperrors.RegistrationError(fmt.Sprintf("failed to parse error response: %s", err))
	}
	return "", apperrors.RegistrationError(fmt.Sprintf(
		"failed to register with Icebreakers API: %s details: %s", errResp.Reason, errResp.Details))
}

// solitaryBanner is logged verbatim when no registry secret is configured.
const solitaryBanner = `
 __________________________________________
/ Running in solitary mode.                \
|                                          |
\ You're not part of the Blockfrost fleet! /
 ------------------------------------------
        \   ^__^
         \  (oo)\_______
            (__)\       )\/\
                ||----w |
                ||     ||`

// LogSolitaryMode prints the standalone-mode banner at warn level.
func LogSolitaryMode(log *logging.Logger) {
	log.Warnf("%s", solitaryBanner)
}
