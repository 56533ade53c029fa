package bridge

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 3 * time.Second
)

// Config holds the bridge endpoints and the source-chain vault
type Config struct {
	BackendURL   string
	Vault        common.Address // vault contract on the source chain
	Timeout      time.Duration
	PollInterval time.Duration
	// GasBufferPercent is added on top of the source-chain estimate for the vault call.
	GasBufferPercent uint64
}

// Client quotes and executes bridge swaps. Quotes and status come from the
// bridge backend over HTTP; execution is a payable call on the source vault.
type Client struct {
	config     Config
	httpClient *http.Client
	source     SourceBackend
	logger     *logrus.Logger
}

// NewClient creates a new bridge client. source may be nil for a quote-only client.
func NewClient(cfg Config, source SourceBackend, logger *logrus.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GasBufferPercent == 0 {
		cfg.GasBufferPercent = 20
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		source:     source,
		logger:     logger,
	}
}

// quoteResponse mirrors the backend quote body. Older backends nest the
// fields under "quote".
type quoteResponse struct {
	quoteFields
	Quote   *quoteFields `json:"quote,omitempty"`
	Message string       `json:"message,omitempty"`
}

type quoteFields struct {
	EgressAmount             string      `json:"egressAmount"`
	EstimatedDurationSeconds float64     `json:"estimatedDurationSeconds,omitempty"`
	IncludedFees             []feeFields `json:"includedFees,omitempty"`
}

type feeFields struct {
	Type   string `json:"type"`
	Chain  string `json:"chain"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// GetQuote asks the bridge how much will arrive for params. Any failure,
// including insufficient liquidity, is reported as ErrBridgeQuoteUnavailable.
func (c *Client) GetQuote(ctx context.Context, params types.BridgeSwapParams) (*types.BridgeQuoteResult, error) {
	if err := validateParams(params); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}

	query := url.Values{}
	query.Set("srcChain", params.SourceChain.String())
	query.Set("srcAsset", params.SourceAsset.Symbol())
	query.Set("destChain", params.DestChain.String())
	query.Set("destAsset", params.DestAsset.Symbol())
	query.Set("amount", params.Amount.String())
	if params.CCM != nil {
		query.Set("ccmGasBudget", params.CCM.GasBudget.String())
		query.Set("ccmMessageLengthBytes", strconv.Itoa(len(params.CCM.Message)))
	}

	log := c.logger.WithFields(logrus.Fields{
		"src":    params.SourceAsset.String(),
		"dest":   params.DestAsset.String(),
		"amount": params.Amount.String(),
	})
	log.Debug("requesting bridge quote")

	body, status, err := c.get(ctx, c.config.BackendURL+"/quote?"+query.Encode())
	if err != nil {
		log.WithError(err).Warn("bridge quote request failed")
		return nil, errors.Wrap(apperrors.ErrBridgeQuoteUnavailable, err.Error())
	}
	if status < 200 || status >= 300 {
		return nil, errors.Wrapf(apperrors.ErrBridgeQuoteUnavailable, "bridge returned status %d: %s", status, errorMessage(body))
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(apperrors.ErrBridgeQuoteUnavailable, "malformed bridge quote response")
	}

	result, err := resp.narrow()
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrBridgeQuoteUnavailable, err.Error())
	}

	log.WithField("egress", result.ExpectedOutputAmount.String()).Debug("bridge quote received")
	return result, nil
}

func (r quoteResponse) narrow() (*types.BridgeQuoteResult, error) {
	fields := r.quoteFields
	if fields.EgressAmount == "" && r.Quote != nil {
		fields = *r.Quote
	}
	if fields.EgressAmount == "" {
		if r.Message != "" {
			return nil, errors.New(r.Message)
		}
		return nil, errors.New("bridge quote has no egress amount")
	}

	egress, ok := new(big.Int).SetString(fields.EgressAmount, 10)
	if !ok || egress.Sign() <= 0 {
		return nil, errors.Errorf("bridge quote egress amount is invalid: %s", fields.EgressAmount)
	}

	result := &types.BridgeQuoteResult{
		ExpectedOutputAmount: egress,
		EstimatedDuration:    time.Duration(fields.EstimatedDurationSeconds * float64(time.Second)),
	}
	for _, fee := range fields.IncludedFees {
		amount, ok := new(big.Int).SetString(fee.Amount, 10)
		if !ok {
			continue
		}
		result.IncludedFees = append(result.IncludedFees, types.BridgeFee{
			Type:   fee.Type,
			Asset:  fee.Asset,
			Amount: amount,
		})
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to read response body")
	}
	return body, resp.StatusCode, nil
}

func validateParams(params types.BridgeSwapParams) error {
	if params.SourceAsset.Symbol() == "" {
		return errors.Errorf("unsupported source asset %s", params.SourceAsset)
	}
	if params.DestAsset.Symbol() == "" {
		return errors.Errorf("unsupported destination asset %s", params.DestAsset)
	}
	if params.SourceAsset.Chain() != params.SourceChain {
		return errors.Errorf("asset %s is not on %s", params.SourceAsset, params.SourceChain)
	}
	if params.DestAsset.Chain() != params.DestChain {
		return errors.Errorf("asset %s is not on %s", params.DestAsset, params.DestChain)
	}
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	if params.CCM != nil {
		if len(params.CCM.Message) == 0 {
			return errors.New("cross-chain message is empty")
		}
		if params.CCM.GasBudget == nil || params.CCM.GasBudget.Sign() < 0 {
			return errors.New("cross-chain gas budget is invalid")
		}
		if params.CCM.GasBudget.Cmp(params.Amount) >= 0 {
			return errors.New("gas budget exceeds the bridged amount")
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
