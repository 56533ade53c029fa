package server

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/types"
)

// quoteResponse matches what the quote client narrows. Qoute repeats Quote
// under the spelling older clients read.
type quoteResponse struct {
	RouteCallData string `json:"routeCallData"`
	RouteValue    string `json:"routeValue"`
	Quote         string `json:"quote"`
	Qoute         string `json:"qoute"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := parseRouteRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}
	req.SlippageBps = s.config.SlippageBps

	route, err := s.router.Route(r.Context(), *req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"in":  req.TokenIn.Symbol,
			"out": req.TokenOut.Symbol,
		}).Warn("route lookup failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "no route available"})
		return
	}

	quote := amount.Format(route.AmountOut, req.TokenOut.Decimals)
	value := route.Value
	if value == nil {
		value = new(big.Int)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, quoteResponse{
		RouteCallData: hexutil.Encode(route.CallData),
		RouteValue:    hexutil.EncodeBig(value),
		Quote:         quote,
		Qoute:         quote,
	})
}

func parseRouteRequest(r *http.Request) (*RouteRequest, error) {
	in, err := parseToken(chi.URLParam(r, "srcAddr"), chi.URLParam(r, "srcDecimals"), chi.URLParam(r, "srcSymbol"))
	if err != nil {
		return nil, errors.Wrap(err, "source token")
	}
	out, err := parseToken(chi.URLParam(r, "dstAddr"), chi.URLParam(r, "dstDecimals"), chi.URLParam(r, "dstSymbol"))
	if err != nil {
		return nil, errors.Wrap(err, "destination token")
	}
	if in.Address == out.Address {
		return nil, errors.New("source and destination token are the same")
	}

	raw, err := amount.ToBaseUnits(chi.URLParam(r, "amount"), in.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() <= 0 {
		return nil, errors.New("amount must be greater than 0")
	}

	recipient := chi.URLParam(r, "recipient")
	if !common.IsHexAddress(recipient) {
		return nil, errors.Errorf("invalid recipient address: %s", recipient)
	}

	return &RouteRequest{
		TokenIn:   in,
		TokenOut:  out,
		AmountIn:  raw,
		Recipient: common.HexToAddress(recipient),
	}, nil
}

func parseToken(address, decimals, symbol string) (types.TokenRef, error) {
	if !common.IsHexAddress(address) {
		return types.TokenRef{}, errors.Errorf("invalid address: %s", address)
	}
	dec, err := strconv.ParseUint(decimals, 10, 8)
	if err != nil {
		return types.TokenRef{}, errors.Errorf("invalid decimals: %s", decimals)
	}
	t := types.TokenRef{
		Address:  common.HexToAddress(address),
		Decimals: uint8(dec),
		Symbol:   strings.ToUpper(symbol),
		ChainID:  1,
	}
	return t, t.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
