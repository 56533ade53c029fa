package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Client talks to the quoting service. The service computes a swap route and
// returns router call data for it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new quoting service client
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Response is the wire shape of the quoting service. The original backend
// misspelled "quote"; both spellings are accepted.
type Response struct {
	RouteCallData string          `json:"routeCallData"`
	RouteValue    json.RawMessage `json:"routeValue,omitempty"`
	Quote         string          `json:"quote,omitempty"`
	LegacyQuote   string          `json:"qoute,omitempty"`
}

// GetSwapQuote requests a swap route for req. Every failure is reported as
// apperrors.ErrQuoteUnavailable.
func (c *Client) GetSwapQuote(ctx context.Context, req types.SwapQuoteRequest) (*types.SwapQuoteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}

	// Convert to base units first so the amount sent never carries more
	// precision than the token supports.
	raw, err := amount.ToBaseUnits(req.AmountIn, req.SourceToken.Decimals)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}
	if raw.Sign() <= 0 {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest, "amount %s is below the smallest unit of %s", req.AmountIn, req.SourceToken.Symbol)
	}
	humanAmount := amount.Format(raw, req.SourceToken.Decimals)

	endpoint := c.endpoint(req, humanAmount)
	log := c.logger.WithFields(logrus.Fields{
		"from":   req.SourceToken.Symbol,
		"to":     req.DestToken.Symbol,
		"amount": humanAmount,
	})
	log.Debug("requesting swap quote")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrQuoteUnavailable, err.Error())
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("quote request failed")
		return nil, errors.Wrap(apperrors.ErrQuoteUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrQuoteUnavailable, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("status", resp.StatusCode).Warn("quoting service returned an error")
		return nil, errors.Wrapf(apperrors.ErrQuoteUnavailable, "quoting service returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(apperrors.ErrQuoteUnavailable, "malformed quote response")
	}

	result, err := payload.narrow()
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrQuoteUnavailable, err.Error())
	}

	log.WithField("quote_out", result.QuoteOut).Debug("swap quote received")
	return result, nil
}

func (c *Client) endpoint(req types.SwapQuoteRequest, humanAmount string) string {
	segments := []string{
		req.SourceToken.Address.Hex(),
		fmt.Sprintf("%d", req.SourceToken.Decimals),
		req.SourceToken.Symbol,
		req.DestToken.Address.Hex(),
		fmt.Sprintf("%d", req.DestToken.Decimals),
		req.DestToken.Symbol,
		humanAmount,
		req.Recipient.Hex(),
	}
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(segments, "/")
}

// narrow validates the upstream shape before anything downstream trusts it
func (r Response) narrow() (*types.SwapQuoteResult, error) {
	if r.RouteCallData == "" {
		return nil, errors.New("quote has no route call data")
	}
	callData, err := hexutil.Decode(r.RouteCallData)
	if err != nil {
		return nil, errors.Wrap(err, "route call data is not hex")
	}
	if len(callData) == 0 {
		return nil, errors.New("quote has empty route call data")
	}

	value, err := parseValue(r.RouteValue)
	if err != nil {
		return nil, err
	}

	quoteOut := r.Quote
	if quoteOut == "" {
		quoteOut = r.LegacyQuote
	}
	if _, err := amount.Parse(quoteOut); err != nil {
		return nil, errors.Wrap(err, "quote amount is invalid")
	}

	return &types.SwapQuoteResult{
		CallData: callData,
		Value:    value,
		QuoteOut: quoteOut,
	}, nil
}

// parseValue accepts "0x..." hex, a decimal string or a JSON number
func parseValue(raw json.RawMessage) (*big.Int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return new(big.Int), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := hexutil.DecodeBig(normalizeHex(s))
		if err != nil {
			return nil, errors.Wrap(err, "route value is not valid hex")
		}
		return v, nil
	}

	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("route value is not a valid integer: %s", s)
	}
	return v, nil
}

// normalizeHex strips leading zeros which hexutil rejects ("0x00")
func normalizeHex(s string) string {
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
