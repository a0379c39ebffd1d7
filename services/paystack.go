package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// PaymentGateway wraps the Paystack REST API used for the escrow flow:
// initialize a checkout, verify a transaction by reference, and release the
// held funds to the carrier once delivery is confirmed.
//
// ErrGatewayTimeout means the outcome is UNDETERMINED: the local transaction
// must stay PENDING and the caller retries verification later.
var ErrGatewayTimeout = errors.New("payment gateway timed out")

type PaymentGateway struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewPaymentGateway() *PaymentGateway {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaymentGateway{
		BaseURL:    baseURL,
		SecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type InitializeResult struct {
	Reference        string
	AuthorizationURL string
}

// Initialize opens a checkout session. Amount is in the currency's major
// unit; Paystack wants minor units.
func (g *PaymentGateway) Initialize(email string, amount float64, currency string, reference string) (*InitializeResult, error) {
	payload := map[string]interface{}{
		"email":     email,
		"amount":    int64(amount * 100),
		"currency":  currency,
		"reference": reference,
	}

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := g.post("/transaction/initialize", payload, &res); err != nil {
		return nil, err
	}
	if !res.Status {
		return nil, fmt.Errorf("gateway rejected initialize: %s", res.Message)
	}
	return &InitializeResult{
		Reference:        res.Data.Reference,
		AuthorizationURL: res.Data.AuthorizationURL,
	}, nil
}

// Verify returns the gateway's status for a reference: "success", "failed",
// or anything else meaning still pending/abandoned.
func (g *PaymentGateway) Verify(reference string) (string, error) {
	var res struct {
		Status bool `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := g.get("/transaction/verify/"+reference, &res); err != nil {
		return "", err
	}
	if !res.Status {
		return "", fmt.Errorf("gateway rejected verify: %s", res.Message)
	}
	return res.Data.Status, nil
}

// Release pays the held amount out to the carrier and returns the amount in
// major units.
func (g *PaymentGateway) Release(reference string) (float64, error) {
	payload := map[string]interface{}{
		"source":    "balance",
		"reference": reference,
	}

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			Amount int64 `json:"amount"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := g.post("/transfer", payload, &res); err != nil {
		return 0, err
	}
	if !res.Status {
		return 0, fmt.Errorf("gateway rejected release: %s", res.Message)
	}
	return float64(res.Data.Amount) / 100, nil
}

func (g *PaymentGateway) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *PaymentGateway) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, g.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *PaymentGateway) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)

	res, err := g.HTTPClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrGatewayTimeout
		}
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		return fmt.Errorf("gateway error: status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
