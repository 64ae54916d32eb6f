// Package lnurl generates Lightning invoices for a merchant lightning address
// via the LNURL-pay flow: resolve the address to a callback endpoint, then
// request a bounded-amount invoice from it.
package lnurl

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMinSendable = 1000         // 1 sat in msat
	defaultMaxSendable = 100000000000 // 100M sats in msat
)

type payParams struct {
	Callback    string `json:"callback"`
	MinSendable uint64 `json:"minSendable"`
	MaxSendable uint64 `json:"maxSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

type invoiceResponse struct {
	Pr     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type gateway struct {
	address string
	client  *http.Client
	// resolveURL overrides the well-known endpoint derivation in tests.
	resolveURL string
}

func NewGateway(address string, timeout time.Duration) ports.InvoiceGateway {
	return &gateway{
		address: address,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *gateway) Validate(ctx context.Context) error {
	_, err := g.resolve(ctx)
	return err
}

func (g *gateway) GenerateInvoice(ctx context.Context, amountSats uint64, orderID string) (string, error) {
	params, err := g.resolve(ctx)
	if err != nil {
		return "", err
	}

	// sats to msat would wrap above MaxUint64/1000, treat it as out of range
	if amountSats > math.MaxUint64/1000 {
		return "", &AmountOutOfRangeError{
			AmountMsat:  math.MaxUint64,
			MinSendable: params.MinSendable,
			MaxSendable: params.MaxSendable,
		}
	}

	amountMsat := amountSats * 1000
	if amountMsat < params.MinSendable || amountMsat > params.MaxSendable {
		return "", &AmountOutOfRangeError{
			AmountMsat:  amountMsat,
			MinSendable: params.MinSendable,
			MaxSendable: params.MaxSendable,
		}
	}

	shortID := orderID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	invoice, err := g.requestInvoice(ctx, params.Callback, amountMsat, fmt.Sprintf("Order %s", shortID))
	if err != nil {
		return "", err
	}

	log.Debugf("lnurl: generated invoice for %d sats (order %s)", amountSats, shortID)
	return invoice, nil
}

func (g *gateway) resolve(ctx context.Context) (*payParams, error) {
	endpoint := g.resolveURL
	if endpoint == "" {
		name, domain, ok := strings.Cut(g.address, "@")
		if !ok || name == "" || domain == "" {
			return nil, &ResolutionError{
				Address: g.address,
				Cause:   fmt.Errorf("not a name@domain address"),
			}
		}
		endpoint = fmt.Sprintf("https://%s/.well-known/lnurlp/%s", domain, name)
	}

	params := &payParams{}
	if err := g.getJSON(ctx, endpoint, params); err != nil {
		return nil, &ResolutionError{Address: g.address, Cause: err}
	}
	if strings.EqualFold(params.Status, "ERROR") {
		return nil, &ResolutionError{
			Address: g.address,
			Cause:   fmt.Errorf("endpoint returned error: %s", params.Reason),
		}
	}
	if params.Callback == "" {
		return nil, &ResolutionError{
			Address: g.address,
			Cause:   fmt.Errorf("missing callback in response"),
		}
	}

	if params.MinSendable == 0 {
		params.MinSendable = defaultMinSendable
	}
	if params.MaxSendable == 0 {
		params.MaxSendable = defaultMaxSendable
	}
	return params, nil
}

func (g *gateway) requestInvoice(ctx context.Context, callback string, amountMsat uint64, comment string) (string, error) {
	callbackURL, err := url.Parse(callback)
	if err != nil {
		return "", &InvoiceRequestError{Cause: err}
	}
	query := callbackURL.Query()
	query.Set("amount", strconv.FormatUint(amountMsat, 10))
	if comment != "" {
		query.Set("comment", comment)
	}
	callbackURL.RawQuery = query.Encode()

	resp := &invoiceResponse{}
	if err := g.getJSON(ctx, callbackURL.String(), resp); err != nil {
		return "", &InvoiceRequestError{Cause: err}
	}
	if strings.EqualFold(resp.Status, "ERROR") {
		return "", &InvoiceRequestError{
			Cause: fmt.Errorf("endpoint returned error: %s", resp.Reason),
		}
	}
	if resp.Pr == "" {
		return "", &InvoiceRequestError{
			Cause: fmt.Errorf("missing payment request in response"),
		}
	}
	return resp.Pr, nil
}

func (g *gateway) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
