package price

import (
	"context"
	"net/http"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the 1Click API used for token prices
const DefaultBaseURL = "https://1click.chaindefuser.com"

// DefaultTimeout bounds a single token listing request
const DefaultTimeout = 5 * time.Second

// Token is a priced token as listed by a price source
type Token struct {
	AssetID         string          `json:"asset_id"`
	Symbol          string          `json:"symbol"`
	Blockchain      string          `json:"blockchain"`
	ContractAddress string          `json:"contract_address,omitempty"`
	Decimals        uint8           `json:"decimals"`
	PriceUSD        decimal.Decimal `json:"price_usd"`
	PriceUpdatedAt  time.Time       `json:"price_updated_at"`
}

// Source lists tokens with their current USD price
type Source interface {
	Tokens(ctx context.Context) ([]Token, error)
}

// OneClickSource wraps the 1Click SDK token listing
type OneClickSource struct {
	client   *oneclick.APIClient
	jwtToken string
}

// NewOneClickSource creates a new 1Click API price source. A zero timeout
// uses DefaultTimeout.
func NewOneClickSource(baseURL, jwtToken string, timeout time.Duration) *OneClickSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config := oneclick.NewConfiguration()
	config.HTTPClient = &http.Client{Timeout: timeout}
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{
			{URL: strings.TrimRight(baseURL, "/")},
		}
	}

	return &OneClickSource{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

// Tokens retrieves all supported tokens with their prices
func (s *OneClickSource) Tokens(ctx context.Context) ([]Token, error) {
	if s.jwtToken != "" {
		ctx = context.WithValue(ctx, oneclick.ContextAccessToken, s.jwtToken)
	}

	resp, httpResp, err := s.client.OneClickAPI.GetTokens(ctx).Execute()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tokens")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, errors.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	out := make([]Token, 0, len(resp))
	for _, t := range resp {
		out = append(out, Token{
			AssetID:         t.GetAssetId(),
			Symbol:          strings.ToUpper(t.GetSymbol()),
			Blockchain:      strings.ToLower(t.GetBlockchain()),
			ContractAddress: t.GetContractAddress(),
			Decimals:        uint8(t.GetDecimals()),
			PriceUSD:        decimal.NewFromFloat(float64(t.GetPrice())),
			PriceUpdatedAt:  t.GetPriceUpdatedAt(),
		})
	}
	return out, nil
}
