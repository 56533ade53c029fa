package server

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"flip-bridge/pkg/types"
)

// RouteRequest asks for an exact-input route
type RouteRequest struct {
	TokenIn     types.TokenRef
	TokenOut    types.TokenRef
	AmountIn    *big.Int
	Recipient   common.Address
	SlippageBps uint32
}

// Route is an executable swap route
type Route struct {
	CallData  []byte
	Value     *big.Int
	AmountOut *big.Int
}

// Router computes swap routes. Path finding itself is delegated.
type Router interface {
	Route(ctx context.Context, req RouteRequest) (*Route, error)
}

// AggregatorRouter routes through a 1inch-compatible /swap endpoint
type AggregatorRouter struct {
	baseURL    string
	apiKey     string
	executor   common.Address
	httpClient *http.Client
}

// NewAggregatorRouter creates a router. executor is the account that will
// execute the returned call data, the destination receiver contract.
func NewAggregatorRouter(baseURL, apiKey string, executor common.Address, timeout time.Duration) *AggregatorRouter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AggregatorRouter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		executor:   executor,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type aggregatorResponse struct {
	DstAmount   string `json:"dstAmount"`
	Description string `json:"description"`
	Tx          struct {
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
}

// Route implements Router
func (a *AggregatorRouter) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	query := url.Values{}
	query.Set("src", req.TokenIn.Address.Hex())
	query.Set("dst", req.TokenOut.Address.Hex())
	query.Set("amount", req.AmountIn.String())
	query.Set("from", a.executor.Hex())
	query.Set("origin", req.Recipient.Hex())
	query.Set("receiver", req.Recipient.Hex())
	query.Set("slippage", decimal.New(int64(req.SlippageBps), -2).String())
	query.Set("disableEstimate", "true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/swap?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "aggregator request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read aggregator response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed aggregatorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Description != "" {
			return nil, errors.Errorf("aggregator returned status %d: %s", resp.StatusCode, parsed.Description)
		}
		return nil, errors.Errorf("aggregator returned status %d", resp.StatusCode)
	}

	var parsed aggregatorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "malformed aggregator response")
	}

	out, ok := new(big.Int).SetString(parsed.DstAmount, 10)
	if !ok {
		return nil, errors.Errorf("aggregator returned invalid amount %q", parsed.DstAmount)
	}
	callData, err := hexutil.Decode(parsed.Tx.Data)
	if err != nil || len(callData) == 0 {
		return nil, errors.New("aggregator returned no call data")
	}
	value := new(big.Int)
	if parsed.Tx.Value != "" {
		if _, ok := value.SetString(parsed.Tx.Value, 0); !ok {
			return nil, errors.Errorf("aggregator returned invalid value %q", parsed.Tx.Value)
		}
	}

	return &Route{CallData: callData, Value: value, AmountOut: out}, nil
}
