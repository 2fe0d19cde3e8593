// Package payment is the simulated card gateway: initialize returns a redirect URL, verify
// always succeeds. Both calls wait a configurable delay to mimic a network round trip.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

var (
	ErrGatewayInit   = errors.New("payment gateway initialize failed")
	ErrGatewayVerify = errors.New("payment gateway verify failed")
)

const (
	DefaultInitDelay   = time.Second
	DefaultVerifyDelay = 500 * time.Millisecond
	DefaultCallbackURL = "/payment/verify"
)

type InitRequest struct {
	Email      string `json:"email"`
	AmountKobo int64  `json:"amount"`
	Reference  string `json:"reference"`
}

type InitResponse struct {
	Success          bool   `json:"success"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

// Gateway is what the booking workflow needs from a payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (*InitResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

type Options struct {
	CallbackURL string
	InitDelay   time.Duration
	VerifyDelay time.Duration
}

// SimulatedGateway stands in for the card provider.
type SimulatedGateway struct {
	opts Options
	log  *logger.Logger
}

var _ Gateway = (*SimulatedGateway)(nil)

func NewSimulatedGateway(opts Options, log *logger.Logger) *SimulatedGateway {
	if opts.CallbackURL == "" {
		opts.CallbackURL = DefaultCallbackURL
	}
	if opts.InitDelay < 0 {
		opts.InitDelay = DefaultInitDelay
	}
	if opts.VerifyDelay < 0 {
		opts.VerifyDelay = DefaultVerifyDelay
	}
	return &SimulatedGateway{opts: opts, log: log}
}

func (g *SimulatedGateway) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	if req.Reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrGatewayInit)
	}
	g.log.LogPayment("INITIALIZE", req.Reference, fmt.Sprintf("amount=%d kobo email=%s", req.AmountKobo, req.Email))

	if err := sleep(ctx, g.opts.InitDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayInit, err)
	}

	return &InitResponse{
		Success:          true,
		AuthorizationURL: CallbackURL(g.opts.CallbackURL, req.Reference),
		AccessCode:       utils.GenerateAccessCode(),
		Reference:        req.Reference,
	}, nil
}

// Verify reports success for any reference; there is no real provider behind it.
func (g *SimulatedGateway) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	g.log.LogPayment("VERIFY", reference, "verifying with gateway")

	if err := sleep(ctx, g.opts.VerifyDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayVerify, err)
	}

	return &VerifyResponse{Success: true, Status: "success", Reference: reference}, nil
}

// CallbackURL appends the reference query parameter to base.
func CallbackURL(base, reference string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "reference=" + url.QueryEscape(reference)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
