package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/quote"
	"flip-bridge/pkg/tokens"
	"flip-bridge/pkg/types"
)

var wallet = common.HexToAddress("0x67ff09c184d8e9e7B90C5187ED04cbFbDba741C8")

type fakeRouter struct {
	got   *RouteRequest
	route *Route
	err   error
}

func (f *fakeRouter) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func newTestServer(t *testing.T, router Router) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.RatePerMinute = 0
	cfg.EnableMetrics = false
	srv := httptest.NewServer(New(cfg, router, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func quotePath(amount string) string {
	return "/" + tokens.WETH.Address.Hex() + "/18/WETH/" + tokens.PEPE.Address.Hex() + "/18/PEPE/" + amount + "/" + wallet.Hex()
}

func TestHandleQuote(t *testing.T) {
	out, _ := new(big.Int).SetString("123456789000000000000000000", 10)
	router := &fakeRouter{route: &Route{CallData: []byte{0xab, 0xcd}, Value: big.NewInt(0), AmountOut: out}}
	srv := newTestServer(t, router)

	resp, err := http.Get(srv.URL + quotePath("1.5"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body quoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "0xabcd", body.RouteCallData)
	assert.Equal(t, "0x0", body.RouteValue)
	assert.Equal(t, "123456789", body.Quote)
	assert.Equal(t, body.Quote, body.Qoute)

	require.NotNil(t, router.got)
	assert.Equal(t, "1500000000000000000", router.got.AmountIn.String())
	assert.Equal(t, uint32(50), router.got.SlippageBps)
	assert.Equal(t, wallet, router.got.Recipient)
	assert.Equal(t, "PEPE", router.got.TokenOut.Symbol)
}

func TestHandleQuote_BadRequests(t *testing.T) {
	router := &fakeRouter{}
	srv := newTestServer(t, router)

	for _, path := range []string{
		quotePath("0"),
		quotePath("abc"),
		"/0xnothex/18/WETH/" + tokens.PEPE.Address.Hex() + "/18/PEPE/1/" + wallet.Hex(),
		"/" + tokens.WETH.Address.Hex() + "/300/WETH/" + tokens.PEPE.Address.Hex() + "/18/PEPE/1/" + wallet.Hex(),
		"/" + tokens.WETH.Address.Hex() + "/18/WETH/" + tokens.WETH.Address.Hex() + "/18/WETH/1/" + wallet.Hex(),
		"/" + tokens.WETH.Address.Hex() + "/18/WETH/" + tokens.PEPE.Address.Hex() + "/18/PEPE/1/0x123",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
	assert.Nil(t, router.got)
}

func TestHandleQuote_RouterFailure(t *testing.T) {
	srv := newTestServer(t, &fakeRouter{err: errors.New("no liquidity")})

	resp, err := http.Get(srv.URL + quotePath("1"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestQuoteClientAgainstServer(t *testing.T) {
	out, _ := new(big.Int).SetString("985507301000000000000", 10)
	router := &fakeRouter{route: &Route{CallData: []byte{0x01, 0x02}, Value: big.NewInt(7), AmountOut: out}}
	srv := newTestServer(t, router)

	logger, _ := test.NewNullLogger()
	client := quote.NewClient(srv.URL, 0, logger)

	result, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: tokens.WETH,
		DestToken:   tokens.PEPE,
		AmountIn:    "0.985507301",
		Recipient:   wallet,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, result.CallData)
	assert.Equal(t, int64(7), result.Value.Int64())
	assert.Equal(t, "985.507301", result.QuoteOut)
	assert.Equal(t, "985507301000000000", router.got.AmountIn.String())

	_, err = client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: tokens.WETH,
		DestToken:   tokens.PEPE,
		AmountIn:    "1",
		Recipient:   wallet,
	})
	require.NoError(t, err)

	router.err = errors.New("down")
	_, err = client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: tokens.WETH,
		DestToken:   tokens.PEPE,
		AmountIn:    "1",
		Recipient:   wallet,
	})
	assert.True(t, errors.Is(err, apperrors.ErrQuoteUnavailable))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRouter{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeRouter{route: &Route{CallData: []byte{1}, AmountOut: big.NewInt(1)}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+quotePath("1"), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.RatePerMinute = 1
	cfg.EnableMetrics = false
	srv := httptest.NewServer(New(cfg, &fakeRouter{}, logger).Handler())
	defer srv.Close()

	first, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
