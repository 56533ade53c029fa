package orchestrator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/amount"
	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/ccm"
	"flip-bridge/pkg/signer"
	"flip-bridge/pkg/types"
)

// SwapQuoter prices and routes the destination swap
type SwapQuoter interface {
	GetSwapQuote(ctx context.Context, req types.SwapQuoteRequest) (*types.SwapQuoteResult, error)
}

// GasEstimator sizes the destination gas budget
type GasEstimator interface {
	EstimateDestinationGas(
		ctx context.Context,
		callData []byte,
		recipientOnSource common.Address,
		destinationContract common.Address,
		principal *big.Int,
	) (*types.GasBudget, error)
}

// Bridge quotes and executes the cross-chain transfer
type Bridge interface {
	GetQuote(ctx context.Context, params types.BridgeSwapParams) (*types.BridgeQuoteResult, error)
	ExecuteSwap(ctx context.Context, params types.BridgeSwapParams, s signer.Signer) (*types.SubmissionResult, error)
}

// Config fixes the bridge route and the destination receiver
type Config struct {
	SourceChain types.Chain
	DestChain   types.Chain
	SourceAsset types.Asset
	DestAsset   types.Asset
	// Receiver is the destination contract that executes the swap call data.
	Receiver common.Address
	// NativeDecimals are the decimals of the bridged native asset. The swap's
	// source token must be denominated the same way.
	NativeDecimals uint8
}

// DefaultConfig bridges ETH from Arbitrum to Ethereum
func DefaultConfig(receiver common.Address) Config {
	return Config{
		SourceChain:    types.ChainArbitrum,
		DestChain:      types.ChainEthereum,
		SourceAsset:    types.AssetArbETH,
		DestAsset:      types.AssetETH,
		Receiver:       receiver,
		NativeDecimals: 18,
	}
}

// Request is one user-triggered swap
type Request struct {
	SourceToken types.TokenRef
	DestToken   types.TokenRef
	Amount      string // human readable, in SourceToken decimals
	Recipient   common.Address
	// DryRun stops after the re-quote and never touches the signer.
	DryRun bool
}

// Result carries every intermediate value of a run. Fields are filled as the
// run progresses, so a failed run still reports how far it got.
type Result struct {
	RunID        string                   `json:"run_id"`
	State        State                    `json:"state"`
	Amount       string                   `json:"amount"`
	Principal    *big.Int                 `json:"principal,omitempty"`
	InitialQuote *types.SwapQuoteResult   `json:"initial_quote,omitempty"`
	Gas          *types.GasBudget         `json:"gas,omitempty"`
	BridgeParams *types.BridgeSwapParams  `json:"bridge_params,omitempty"`
	BridgeQuote  *types.BridgeQuoteResult `json:"bridge_quote,omitempty"`
	NetAmount    string                   `json:"net_amount,omitempty"`
	FinalQuote   *types.SwapQuoteResult   `json:"final_quote,omitempty"`
	Submission   *types.SubmissionResult  `json:"submission,omitempty"`
	Submitted    bool                     `json:"submitted"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   time.Time                `json:"finished_at"`
}

// Orchestrator runs the quote, estimate, bridge quote, re-quote and submit
// pipeline. It holds no state between runs.
type Orchestrator struct {
	quoter    SwapQuoter
	estimator GasEstimator
	bridge    Bridge
	signer    signer.Signer
	config    Config
	observer  Observer
	logger    *logrus.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSigner sets the signer used at submission
func WithSigner(s signer.Signer) Option {
	return func(o *Orchestrator) {
		o.signer = s
	}
}

// WithObserver registers a transition observer
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a new orchestrator
func New(quoter SwapQuoter, estimator GasEstimator, bridge Bridge, cfg Config, opts ...Option) *Orchestrator {
	if cfg.NativeDecimals == 0 {
		cfg.NativeDecimals = 18
	}
	o := &Orchestrator{
		quoter:    quoter,
		estimator: estimator,
		bridge:    bridge,
		config:    cfg,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run tracks the current state of a single Run call
type run struct {
	o       *Orchestrator
	result  *Result
	entered time.Time
	log     *logrus.Entry
}

func (r *run) transition(to State, err error) {
	now := time.Now()
	t := Transition{
		RunID:   r.result.RunID,
		From:    r.result.State,
		To:      to,
		Elapsed: now.Sub(r.entered),
		Err:     err,
	}
	r.result.State = to
	r.entered = now

	entry := r.log.WithFields(logrus.Fields{"from": t.From, "to": t.To})
	if err != nil {
		entry.WithError(err).Warn("run failed")
	} else {
		entry.Debug("state changed")
	}
	if r.o.observer != nil {
		r.o.observer.OnTransition(t)
	}
}

func (r *run) fail(stage State, err error) (*Result, error) {
	runErr := &RunError{Stage: stage, Err: err}
	r.result.FinishedAt = time.Now()
	r.transition(StateFailed, runErr)
	return r.result, runErr
}

// Run executes one orchestration for req. On failure the returned error is a
// *RunError and the Result holds everything computed before the failing stage.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	now := time.Now()
	r := &run{
		o: o,
		result: &Result{
			RunID:     uuid.New().String(),
			State:     StateIdle,
			Amount:    req.Amount,
			StartedAt: now,
		},
		entered: now,
	}
	r.log = o.logger.WithFields(logrus.Fields{
		"run":    r.result.RunID,
		"source": req.SourceToken.Symbol,
		"dest":   req.DestToken.Symbol,
		"amount": req.Amount,
	})

	principal, err := o.validate(req)
	if err != nil {
		return r.fail(StateIdle, err)
	}
	r.result.Principal = principal

	// Stage 1: quote for the requested amount
	r.transition(StateQuotingSwap, nil)
	initial, err := o.quoter.GetSwapQuote(ctx, types.SwapQuoteRequest{
		SourceToken: req.SourceToken,
		DestToken:   req.DestToken,
		AmountIn:    req.Amount,
		Recipient:   req.Recipient,
	})
	if err != nil {
		return r.fail(StateQuotingSwap, kindOr(err, apperrors.ErrQuoteUnavailable))
	}
	r.result.InitialQuote = initial

	// Stage 2: size the destination gas budget on the provisional call data
	r.transition(StateEstimatingGas, nil)
	gas, err := o.estimator.EstimateDestinationGas(ctx, initial.CallData, req.Recipient, o.config.Receiver, principal)
	if err != nil {
		return r.fail(StateEstimatingGas, kindOr(err, apperrors.ErrGasEstimationFailed))
	}
	if gas.NativeTokenNeededWei == nil || gas.NativeTokenNeededWei.Sign() <= 0 {
		return r.fail(StateEstimatingGas, errors.Wrap(apperrors.ErrGasEstimationFailed, "gas budget is not positive"))
	}
	r.result.Gas = gas

	// Stage 3: quote the bridge for principal + gas budget
	r.transition(StateQuotingBridge, nil)
	provisional, err := ccm.EncodeMessage(initial.CallData, req.Recipient)
	if err != nil {
		return r.fail(StateQuotingBridge, errors.Wrap(apperrors.ErrBridgeQuoteUnavailable, err.Error()))
	}
	params := o.bridgeParams(principal, gas.NativeTokenNeededWei, provisional)
	if err := checkBridgeAmount(params, principal, gas); err != nil {
		return r.fail(StateQuotingBridge, err)
	}
	r.result.BridgeParams = &params

	bridgeQuote, err := o.bridge.GetQuote(ctx, params)
	if err != nil {
		return r.fail(StateQuotingBridge, kindOr(err, apperrors.ErrBridgeQuoteUnavailable))
	}
	r.result.BridgeQuote = bridgeQuote

	// Stage 4: re-quote the swap for what actually arrives after the gas budget
	r.transition(StateRequotingSwap, nil)
	net, err := netAmount(bridgeQuote.ExpectedOutputAmount, gas.NativeTokenNeededWei)
	if err != nil {
		return r.fail(StateRequotingSwap, err)
	}
	r.result.NetAmount = amount.Format(net, req.SourceToken.Decimals)

	final, err := o.quoter.GetSwapQuote(ctx, types.SwapQuoteRequest{
		SourceToken: req.SourceToken,
		DestToken:   req.DestToken,
		AmountIn:    r.result.NetAmount,
		Recipient:   req.Recipient,
	})
	if err != nil {
		return r.fail(StateRequotingSwap, kindOr(err, apperrors.ErrQuoteUnavailable))
	}
	r.result.FinalQuote = final

	message, err := ccm.EncodeMessage(final.CallData, req.Recipient)
	if err != nil {
		return r.fail(StateRequotingSwap, errors.Wrap(apperrors.ErrQuoteUnavailable, err.Error()))
	}
	finalParams := params
	finalParams.CCM = &types.CCMMetadata{
		Message:   message,
		GasBudget: new(big.Int).Set(gas.NativeTokenNeededWei),
	}
	r.result.BridgeParams = &finalParams

	if req.DryRun {
		r.result.FinishedAt = time.Now()
		r.transition(StateSucceeded, nil)
		return r.result, nil
	}

	// Stage 5: submit
	r.transition(StateSubmitting, nil)
	submission, err := o.bridge.ExecuteSwap(ctx, finalParams, o.signer)
	if err != nil {
		return r.fail(StateSubmitting, kindOr(err, apperrors.ErrSubmissionFailed))
	}
	r.result.Submission = submission
	r.result.Submitted = true
	r.result.FinishedAt = time.Now()
	r.log.WithField("tx", submission.TxHash.Hex()).Info("bridge swap submitted")
	r.transition(StateSucceeded, nil)
	return r.result, nil
}

func (o *Orchestrator) validate(req Request) (*big.Int, error) {
	if err := (types.SwapQuoteRequest{
		SourceToken: req.SourceToken,
		DestToken:   req.DestToken,
		AmountIn:    req.Amount,
		Recipient:   req.Recipient,
	}).Validate(); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}
	if req.SourceToken.Decimals != o.config.NativeDecimals {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest,
			"source token %s must have %d decimals to match the bridged asset", req.SourceToken.Symbol, o.config.NativeDecimals)
	}
	if o.config.Receiver == (common.Address{}) {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "receiver contract not configured")
	}
	if !req.DryRun && o.signer == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "a signer is required to submit")
	}

	principal, err := amount.ToBaseUnits(req.Amount, req.SourceToken.Decimals)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, err.Error())
	}
	if principal.Sign() <= 0 {
		return nil, errors.Wrapf(apperrors.ErrInvalidRequest, "amount %s is below the token precision", req.Amount)
	}
	return principal, nil
}

func (o *Orchestrator) bridgeParams(principal, gasBudget *big.Int, message []byte) types.BridgeSwapParams {
	return types.BridgeSwapParams{
		SourceChain:        o.config.SourceChain,
		DestChain:          o.config.DestChain,
		SourceAsset:        o.config.SourceAsset,
		DestAsset:          o.config.DestAsset,
		Amount:             new(big.Int).Add(principal, gasBudget),
		DestinationAddress: o.config.Receiver,
		CCM: &types.CCMMetadata{
			Message:   message,
			GasBudget: new(big.Int).Set(gasBudget),
		},
	}
}

// checkBridgeAmount asserts amount == principal + gas budget before anything
// leaves for the bridge.
func checkBridgeAmount(params types.BridgeSwapParams, principal *big.Int, gas *types.GasBudget) error {
	want := new(big.Int).Add(principal, gas.NativeTokenNeededWei)
	if params.Amount.Cmp(want) != 0 {
		return errors.Errorf("bridge amount %s does not equal principal %s plus gas budget %s",
			params.Amount, principal, gas.NativeTokenNeededWei)
	}
	if params.CCM == nil || params.CCM.GasBudget.Cmp(gas.NativeTokenNeededWei) != 0 {
		return errors.New("cross-chain gas budget differs from the estimated budget")
	}
	return nil
}

func netAmount(expected, gasBudget *big.Int) (*big.Int, error) {
	if expected == nil {
		return nil, errors.Wrap(apperrors.ErrBridgeQuoteUnavailable, "bridge quote has no output amount")
	}
	net := new(big.Int).Sub(expected, gasBudget)
	if net.Sign() <= 0 {
		return nil, errors.Wrapf(apperrors.ErrBridgeQuoteUnavailable,
			"bridge output %s does not cover destination gas %s", expected, gasBudget)
	}
	return net, nil
}

// kindOr keeps err when it already carries an error kind and wraps it in
// fallback otherwise.
func kindOr(err error, fallback error) error {
	if apperrors.Kind(err) != nil {
		return err
	}
	return errors.Wrap(fallback, err.Error())
}
