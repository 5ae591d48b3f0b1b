package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sportsbook/internal/models"
)

// SuiClient handles Sui blockchain interactions. The rest of the system only
// ever verifies a transaction digest or broadcasts a payout through it.
type SuiClient struct {
	httpClient      *http.Client
	rpcURL          string
	network         string
	treasuryAddress string
	sbetCoinType    string
}

// RPCRequest represents a JSON-RPC request
type RPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// RPCResponse represents a JSON-RPC response
type RPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// VerifyResult reports whether a transaction digest is confirmed on chain.
type VerifyResult struct {
	Confirmed bool
}

// PayoutResult reports the outcome of an on-chain payout broadcast.
type PayoutResult struct {
	Success  bool
	TxDigest string
}

// NewSuiClient creates a new Sui client
func NewSuiClient(network, treasuryAddress, sbetCoinType string) *SuiClient {
	var rpcURL string
	switch network {
	case "mainnet":
		rpcURL = "https://fullnode.mainnet.sui.io:443"
	case "testnet":
		rpcURL = "https://fullnode.testnet.sui.io:443"
	case "devnet":
		rpcURL = "https://fullnode.devnet.sui.io:443"
	default:
		rpcURL = "https://fullnode.devnet.sui.io:443"
	}

	return &SuiClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rpcURL:          rpcURL,
		network:         network,
		treasuryAddress: treasuryAddress,
		sbetCoinType:    sbetCoinType,
	}
}

// ValidateWalletAddress checks the Sui address format (0x-prefixed, 64 hex chars).
func (s *SuiClient) ValidateWalletAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	hexPart := address[2:]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifyTransaction checks whether a transaction digest exists on chain and
// executed successfully.
func (s *SuiClient) VerifyTransaction(ctx context.Context, txDigest string) (*VerifyResult, error) {
	result, err := s.rpcCall(ctx, "sui_getTransactionBlock", []interface{}{
		txDigest,
		map[string]bool{"showEffects": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txDigest, err)
	}

	var txBlock struct {
		Effects struct {
			Status struct {
				Status string `json:"status"`
			} `json:"status"`
		} `json:"effects"`
	}
	if err := json.Unmarshal(result, &txBlock); err != nil {
		return nil, fmt.Errorf("failed to decode transaction block: %w", err)
	}

	confirmed := txBlock.Effects.Status.Status == "success"
	if !confirmed {
		log.Printf("[SuiClient] Transaction %s not confirmed (status: %s)", txDigest, txBlock.Effects.Status.Status)
	}

	return &VerifyResult{Confirmed: confirmed}, nil
}

// SendPayout broadcasts a transfer of amount to the recipient wallet. SUI
// payouts move the native coin; SBET payouts move the platform token.
func (s *SuiClient) SendPayout(ctx context.Context, recipient string, amount decimal.Decimal, currency models.Currency) (*PayoutResult, error) {
	if !s.ValidateWalletAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient address: %s", recipient)
	}

	method := "unsafe_paySui"
	params := []interface{}{
		s.treasuryAddress,
		[]string{recipient},
		[]string{amount.Shift(9).Truncate(0).String()}, // MIST units
	}
	if currency == models.CurrencySBET {
		method = "unsafe_pay"
		params = append(params, s.sbetCoinType)
	}

	result, err := s.rpcCall(ctx, method, params)
	if err != nil {
		return nil, fmt.Errorf("failed to send payout: %w", err)
	}

	var payout struct {
		Digest string `json:"digest"`
	}
	if err := json.Unmarshal(result, &payout); err != nil {
		return nil, fmt.Errorf("failed to decode payout response: %w", err)
	}

	log.Printf("[SuiClient] Payout sent: %s %s to %s (digest: %s)", amount, currency, recipient, payout.Digest)

	return &PayoutResult{
		Success:  true,
		TxDigest: payout.Digest,
	}, nil
}

// rpcCall performs a raw JSON-RPC call against the configured fullnode.
func (s *SuiClient) rpcCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	reqBody := RPCRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("RPC error: %d - %s", resp.StatusCode, string(body))
	}

	var rpcResp RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}
