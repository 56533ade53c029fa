package price

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/parser"
)

// Feed resolves display prices for the destination chain. Prices are only
// ever shown to the user; they never feed an orchestration run.
type Feed struct {
	source     Source
	blockchain string
	logger     *logrus.Logger
}

// NewFeed creates a feed that prefers tokens listed on blockchain
func NewFeed(source Source, blockchain string, logger *logrus.Logger) *Feed {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Feed{
		source:     source,
		blockchain: strings.ToLower(blockchain),
		logger:     logger,
	}
}

// Tokens lists the source's tokens, filtered by chain and symbol substring
// when those are non-empty.
func (f *Feed) Tokens(ctx context.Context, chain, symbol string) ([]Token, error) {
	all, err := f.source.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	var out []Token
	for _, t := range all {
		if chain != "" && !strings.EqualFold(t.Blockchain, chain) {
			continue
		}
		if symbol != "" && !strings.Contains(t.Symbol, strings.ToUpper(symbol)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// USDPrices returns a USD price per requested symbol. Wrapped symbols fall
// back to the asset they track. Symbols without a price are left out.
func (f *Feed) USDPrices(ctx context.Context, symbols ...string) (map[string]decimal.Decimal, error) {
	all, err := f.source.Tokens(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch prices")
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if p, ok := f.find(all, symbol); ok {
			prices[symbol] = p
			continue
		}
		if p, ok := f.find(all, parser.NormalizeTokenSymbol(symbol)); ok {
			prices[symbol] = p
			continue
		}
		f.logger.WithField("symbol", symbol).Debug("no price listed")
	}
	return prices, nil
}

func (f *Feed) find(all []Token, symbol string) (decimal.Decimal, bool) {
	var fallback *Token
	for i := range all {
		t := all[i]
		if t.Symbol != symbol || !t.PriceUSD.IsPositive() {
			continue
		}
		if f.blockchain == "" || t.Blockchain == f.blockchain {
			return t.PriceUSD, true
		}
		if fallback == nil {
			fallback = &all[i]
		}
	}
	if fallback != nil {
		return fallback.PriceUSD, true
	}
	return decimal.Zero, false
}

// ValueUSD prices a human readable amount, rounded to cents
func ValueUSD(human string, price decimal.Decimal) (decimal.Decimal, error) {
	d, err := amount.Parse(human)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Mul(price).Round(2), nil
}
