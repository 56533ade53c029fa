package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

var (
	weth = types.TokenRef{
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Decimals: 18,
		Symbol:   "WETH",
		ChainID:  1,
	}
	usdc = types.TokenRef{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Decimals: 6,
		Symbol:   "USDC",
		ChainID:  1,
	}
	wallet = common.HexToAddress("0x67ff09c184d8e9e7B90C5187ED04cbFbDba741C8")
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, _ := test.NewNullLogger()
	return NewClient(srv.URL, 0, logger), srv
}

func TestGetSwapQuote(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"routeCallData":"0xdeadbeef","routeValue":"0x00","quote":"3120.55"}`))
	})

	result, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: weth,
		DestToken:   usdc,
		AmountIn:    "1.50",
		Recipient:   wallet,
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, result.CallData)
	require.Equal(t, int64(0), result.Value.Int64())
	require.Equal(t, "3120.55", result.QuoteOut)

	segments := strings.Split(strings.TrimPrefix(gotPath, "/"), "/")
	require.Len(t, segments, 8)
	require.Equal(t, weth.Address.Hex(), segments[0])
	require.Equal(t, "18", segments[1])
	require.Equal(t, "WETH", segments[2])
	require.Equal(t, usdc.Address.Hex(), segments[3])
	require.Equal(t, "6", segments[4])
	require.Equal(t, "USDC", segments[5])
	require.Equal(t, "1.5", segments[6])
	require.Equal(t, wallet.Hex(), segments[7])
}

func TestGetSwapQuote_TruncatesBeyondTokenDecimals(t *testing.T) {
	var gotAmount string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAmount = strings.Split(r.URL.Path, "/")[7]
		_, _ = w.Write([]byte(`{"routeCallData":"0x01","routeValue":"0","quote":"1"}`))
	})

	_, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: usdc,
		DestToken:   weth,
		AmountIn:    "10.1234567",
		Recipient:   wallet,
	})
	require.NoError(t, err)
	require.Equal(t, "10.123456", gotAmount)
}

func TestGetSwapQuote_LegacyField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routeCallData":"0x01","routeValue":"1000","qoute":"42.1"}`))
	})

	result, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: weth, DestToken: usdc, AmountIn: "1", Recipient: wallet,
	})
	require.NoError(t, err)
	require.Equal(t, "42.1", result.QuoteOut)
	require.Equal(t, int64(1000), result.Value.Int64())
}

func TestGetSwapQuote_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"upstream error", http.StatusInternalServerError, `{"error":"no route"}`},
		{"malformed json", http.StatusOK, `not json`},
		{"missing call data", http.StatusOK, `{"routeValue":"0","quote":"1"}`},
		{"non hex call data", http.StatusOK, `{"routeCallData":"zz","quote":"1"}`},
		{"bad quote", http.StatusOK, `{"routeCallData":"0x01","quote":"lots"}`},
		{"bad value", http.StatusOK, `{"routeCallData":"0x01","routeValue":"-5","quote":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
				SourceToken: weth, DestToken: usdc, AmountIn: "1", Recipient: wallet,
			})
			require.Error(t, err)
			require.True(t, errors.Is(err, apperrors.ErrQuoteUnavailable), "got %v", err)
		})
	}
}

func TestGetSwapQuote_Unreachable(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.GetSwapQuote(context.Background(), types.SwapQuoteRequest{
		SourceToken: weth, DestToken: usdc, AmountIn: "1", Recipient: wallet,
	})
	require.True(t, errors.Is(err, apperrors.ErrQuoteUnavailable))
}

func TestGetSwapQuote_InvalidRequest(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	tests := []types.SwapQuoteRequest{
		{SourceToken: weth, DestToken: usdc, AmountIn: "0", Recipient: wallet},
		{SourceToken: weth, DestToken: weth, AmountIn: "1", Recipient: wallet},
		{SourceToken: weth, DestToken: usdc, AmountIn: "1"},
		{SourceToken: usdc, DestToken: weth, AmountIn: "0.0000001", Recipient: wallet},
	}
	for _, req := range tests {
		_, err := client.GetSwapQuote(context.Background(), req)
		require.True(t, errors.Is(err, apperrors.ErrInvalidRequest), "request %+v: %v", req, err)
	}
	require.Zero(t, calls)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("http://localhost:3000/", 0, nil)
	require.Equal(t, "http://localhost:3000", client.baseURL)
	require.Equal(t, defaultTimeout, client.httpClient.Timeout)
	require.Equal(t, logrus.StandardLogger(), client.logger)
}
