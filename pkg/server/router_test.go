package server

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/tokens"
)

var receiver = common.HexToAddress("0xa8c9718d3a790604311206d1748a1e17334eef8b")

func TestAggregatorRouter(t *testing.T) {
	var query map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		auth = r.Header.Get("Authorization")
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{"dstAmount":"1000","tx":{"to":"0x1111111254EEB25477B68fb85Ed929f73A960582","data":"0xdeadbeef","value":"0"}}`))
	}))
	defer srv.Close()

	router := NewAggregatorRouter(srv.URL+"/", "key", receiver, time.Second)
	route, err := router.Route(context.Background(), RouteRequest{
		TokenIn:     tokens.WETH,
		TokenOut:    tokens.PEPE,
		AmountIn:    big.NewInt(1e18),
		Recipient:   wallet,
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, route.CallData)
	assert.Equal(t, int64(1000), route.AmountOut.Int64())
	assert.Zero(t, route.Value.Sign())

	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "0.5", query["slippage"])
	assert.Equal(t, receiver.Hex(), query["from"])
	assert.Equal(t, wallet.Hex(), query["receiver"])
	assert.Equal(t, "1000000000000000000", query["amount"])
}

func TestAggregatorRouter_Errors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"description":"insufficient liquidity"}`))
		},
		"no call data": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"dstAmount":"1","tx":{"data":"0x"}}`))
		},
		"bad amount": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"dstAmount":"x","tx":{"data":"0x01"}}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewAggregatorRouter(srv.URL, "", receiver, 0).Route(context.Background(), RouteRequest{
				TokenIn:  tokens.WETH,
				TokenOut: tokens.PEPE,
				AmountIn: big.NewInt(1),
			})
			assert.Error(t, err)
		})
	}
}
