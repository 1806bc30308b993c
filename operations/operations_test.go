package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"finco/conversions/blockchains/evm"
	"finco/conversions/bridge"
	l1common "finco/conversions/common"
	"finco/conversions/errors"
	"finco/conversions/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// fakeStore mirrors the conditional-update semantics of the Mongo store:
// terminal rows refuse further writes.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]l1common.User
	rows  map[string]l1common.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]l1common.User{},
		rows:  map[string]l1common.Transaction{},
	}
}

func (s *fakeStore) UpsertUser(ctx context.Context, fid, custodyAddress, signerAddress string) (l1common.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[fid]
	u.Fid = fid
	if custodyAddress != "" {
		u.CustodyAddress = custodyAddress
	}
	if signerAddress != "" {
		u.SignerAddress = signerAddress
	}
	s.users[fid] = u
	return u, nil
}

func (s *fakeStore) FindUser(ctx context.Context, fid string) (l1common.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[fid]
	if !ok {
		return u, errors.New(errors.UserNotFoundError)
	}
	return u, nil
}

func (s *fakeStore) SetStripeAccount(ctx context.Context, fid, accountId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[fid]
	u.StripeAccountID = accountId
	s.users[fid] = u
	return nil
}

func (s *fakeStore) InsertTransaction(ctx context.Context, tx l1common.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[tx.BizId]; exists {
		return errors.New(errors.WriteTxError)
	}
	s.rows[tx.BizId] = tx
	return nil
}

func (s *fakeStore) FindTransactionByHash(ctx context.Context, fid, chainTxHash string) (l1common.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest l1common.Transaction
	var found bool
	for _, row := range s.rows {
		if row.Fid == fid && row.ChainTxHash == chainTxHash {
			if !found || row.CreatedAt.After(newest.CreatedAt) {
				newest = row
				found = true
			}
		}
	}
	return newest, found, nil
}

func (s *fakeStore) RecentTransactions(ctx context.Context, fid string, limit int64) ([]l1common.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []l1common.Transaction
	for _, row := range s.rows {
		if row.Fid == fid {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeStore) AdvanceStatus(ctx context.Context, bizId, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[bizId]
	if !ok || l1common.IsTerminalStatus(row.Status) {
		return false, nil
	}
	if row.Status != from && !(from == l1common.TxPending && l1common.IsPendingStatus(row.Status)) {
		return false, nil
	}
	row.Status = to
	s.rows[bizId] = row
	return true, nil
}

func (s *fakeStore) SetChainTxHash(ctx context.Context, bizId, chainTxHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[bizId]
	if !ok || l1common.IsTerminalStatus(row.Status) {
		return nil
	}
	row.ChainTxHash = chainTxHash
	s.rows[bizId] = row
	return nil
}

func (s *fakeStore) SetTransfer(ctx context.Context, bizId, transferId, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[bizId]
	if !ok || row.Status != l1common.TxProcessing {
		return false, nil
	}
	if transferId != "" {
		row.TransferID = transferId
	}
	row.Status = status
	s.rows[bizId] = row
	return true, nil
}

// fakeFiat counts transfers and remembers idempotency keys.
type fakeFiat struct {
	mu        sync.Mutex
	transfers int
	keys      []string
	fail      bool
}

func (f *fakeFiat) CreateAccount() (string, error) {
	return "acct_test", nil
}

func (f *fakeFiat) OnboardingLink(accountId string) (string, error) {
	return "https://connect.example/" + accountId, nil
}

func (f *fakeFiat) Transfer(amountMinor int64, currency, destination, description, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New(errors.PayoutTransferError + ": insufficient available balance")
	}
	f.transfers++
	f.keys = append(f.keys, idempotencyKey)
	return fmt.Sprintf("tr_%d", f.transfers), nil
}

// fakeChecker maps hashes to outcomes; unknown hashes are pending.
type fakeChecker struct {
	outcomes map[string]evm.Outcome
}

func (f *fakeChecker) VerifyHash(ctx context.Context, txHash string) (evm.Outcome, error) {
	if out, ok := f.outcomes[txHash]; ok {
		return out, nil
	}
	return evm.OutcomePending, nil
}

type fakeQuotes struct {
	quote bridge.Quote
	err   error
}

func (f *fakeQuotes) GetQuote(ctx context.Context, req bridge.QuoteRequest) (bridge.Quote, error) {
	return f.quote, f.err
}

func (f *fakeQuotes) CheckRouteSupport(ctx context.Context, originChainId, destinationChainId int64) bool {
	return true
}

// fakeTokens serves a fixed balance and USDC-shaped metadata.
type fakeTokens struct {
	balance *big.Int
}

func (f *fakeTokens) TokenBalance(ctx context.Context, token, owner ethcommon.Address) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeTokens) TokenDecimals(ctx context.Context, token ethcommon.Address) (uint8, error) {
	return 6, nil
}

func (f *fakeTokens) TokenSymbol(ctx context.Context, token ethcommon.Address) (string, error) {
	return "USDC", nil
}

type nopSigner struct{}

func (nopSigner) Address() ethcommon.Address {
	return ethcommon.HexToAddress("0x3333333333333333333333333333333333333333")
}

func (nopSigner) SignHash(digest []byte) ([]byte, error) {
	return make([]byte, 65), nil
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	l1common.SetupCustomValidators()
	router := gin.New()

	api := router.Group("/api")
	api.POST("/auth/login", Login)
	api.GET("/user/stats/:fid", GetUserStats)
	api.POST("/user/stripe/connect", ConnectPayoutAccount)
	api.POST("/trade/submit", SubmitTrade)
	api.GET("/trade/history/:fid", TradeHistory)
	api.POST("/trade/reconcile/:fid", Reconcile)
	api.POST("/payout/create", CreatePayout)
	api.GET("/quote", BridgeQuote)
	api.POST("/trade/execute", ExecuteTrade)
	return router
}

func seedUser(store *fakeStore, withStripe bool) {
	u := l1common.User{
		Fid:            "1234",
		CustodyAddress: "0x1111111111111111111111111111111111111111",
		SignerAddress:  "0x2222222222222222222222222222222222222222",
	}
	if withStripe {
		u.StripeAccountID = "acct_test"
	}
	store.users["1234"] = u
}

func TestSubmitTradeOutputAmountDefaultsToZero(t *testing.T) {
	store := newFakeStore()
	seedUser(store, false)
	SetDeps(Deps{Store: store, Checker: &fakeChecker{}})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"25.50"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/trade/submit", payload))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}

	var resp models.SubmitTradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.OutputAmount != "0" {
		t.Error("absent output amount must default to 0, got", resp.OutputAmount)
	}
	if resp.FeeAmount != "0.3825" {
		t.Error("expected 1.5% fee of 25.50, got", resp.FeeAmount)
	}
	if resp.Status != l1common.TxPending {
		t.Error("new rows must start PENDING, got", resp.Status)
	}
}

func TestSubmitTradeOutputAmountRoundTrip(t *testing.T) {
	store := newFakeStore()
	seedUser(store, false)
	SetDeps(Deps{Store: store, Checker: &fakeChecker{}})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","outputAmount":"9.85"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/trade/submit", payload))

	var resp models.SubmitTradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.OutputAmount != "9.85" {
		t.Error("explicit output amount must round trip, got", resp.OutputAmount)
	}

	row := store.rows[resp.BizId]
	if row.OutputAmount != "9.85" {
		t.Error("stored row lost the output amount, got", row.OutputAmount)
	}
}

func TestPayoutWithoutStripeAccount(t *testing.T) {
	store := newFakeStore()
	seedUser(store, false)
	fiat := &fakeFiat{}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: &fakeChecker{}})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","txHash":"0xabc"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", payload))

	if w.Code != 400 {
		t.Error("expected 400, got", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Stripe account not connected") {
		t.Error("expected verbatim missing-account message, got", w.Body.String())
	}
	if fiat.transfers != 0 {
		t.Error("no transfer may happen without a connected account")
	}
	if len(store.rows) != 0 {
		t.Error("no ledger row may be written for a refused payout")
	}
}

func TestPayoutRevertedTransactionFailsWithoutTransfer(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{}
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{"0xdead": evm.OutcomeReverted}}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: checker})

	store.rows["biz-1"] = l1common.Transaction{
		BizId: "biz-1", Fid: "1234", Status: l1common.TxPending, ChainTxHash: "0xdead",
	}

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","txHash":"0xdead"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", payload))

	if w.Code != 400 {
		t.Error("expected 400 for reverted tx, got", w.Code)
	}
	if fiat.transfers != 0 {
		t.Error("reverted settlement must never pay out")
	}
	if store.rows["biz-1"].Status != l1common.TxFailed {
		t.Error("row must be FAILED after revert, got", store.rows["biz-1"].Status)
	}
}

func TestPayoutSuccessThenIdempotentRetry(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{}
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{"0xok": evm.OutcomeSettled}}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: checker})

	router := testRouter()
	payload := `{"fid":"1234","amount":"10","txHash":"0xok"}`

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", strings.NewReader(payload)))
	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}

	var first models.PayoutResponse
	json.Unmarshal(w.Body.Bytes(), &first)
	if first.Status != l1common.TxCompleted || first.TransferId == "" {
		t.Error("expected COMPLETED with transfer id, got", first.Status, first.TransferId)
	}
	if fiat.keys[0] != first.BizId {
		t.Error("processor idempotency key must be the business id")
	}

	// same hash again: answered from the ledger, no second transfer
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", strings.NewReader(payload)))
	if w.Code != 200 {
		t.Fatal("expected 200 on retry, got", w.Code)
	}

	var second models.PayoutResponse
	json.Unmarshal(w.Body.Bytes(), &second)
	if second.BizId != first.BizId || second.TransferId != first.TransferId {
		t.Error("retry must return the original attempt")
	}
	if fiat.transfers != 1 {
		t.Error("expected exactly one transfer, got", fiat.transfers)
	}
}

func TestPayoutProcessorFailureMarksRowFailed(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{fail: true}
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{"0xok": evm.OutcomeSettled}}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: checker})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","txHash":"0xok"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", payload))

	if w.Code != 502 {
		t.Error("expected 502, got", w.Code)
	}
	if !strings.Contains(w.Body.String(), "insufficient available balance") {
		t.Error("processor message must surface verbatim, got", w.Body.String())
	}

	var failed bool
	for _, row := range store.rows {
		if row.Status == l1common.TxFailed {
			failed = true
		}
	}
	if !failed {
		t.Error("expected the payout row marked FAILED")
	}
}

func TestPayoutFailedAttemptIsRetriable(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{fail: true}
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{"0xok": evm.OutcomeSettled}}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: checker})

	router := testRouter()
	payload := `{"fid":"1234","amount":"10","txHash":"0xok"}`

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", strings.NewReader(payload)))
	if w.Code != 502 {
		t.Fatal("expected 502 on processor failure, got", w.Code)
	}

	var failedBizId string
	for _, row := range store.rows {
		if row.Status == l1common.TxFailed {
			failedBizId = row.BizId
		}
	}
	if failedBizId == "" {
		t.Fatal("expected a FAILED row after the first attempt")
	}

	// processor recovered; the same hash must be payable again
	fiat.fail = false
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", strings.NewReader(payload)))
	if w.Code != 200 {
		t.Fatal("expected 200 on retry after failure, got", w.Code, w.Body.String())
	}

	var resp models.PayoutResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != l1common.TxCompleted || resp.TransferId == "" {
		t.Error("retry must complete with a transfer, got", resp.Status, resp.TransferId)
	}
	if resp.BizId == failedBizId {
		t.Error("retry must run under a fresh business id")
	}
	if fiat.transfers != 1 {
		t.Error("expected exactly one transfer across both attempts, got", fiat.transfers)
	}
	if store.rows[failedBizId].Status != l1common.TxFailed {
		t.Error("the failed attempt must stay on record, got", store.rows[failedBizId].Status)
	}
}

func TestPayoutDuplicateWhileProcessingDoesNotTransfer(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{}
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{"0xok": evm.OutcomeSettled}}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: checker})

	// another request already holds the row; this one must back off
	store.rows["biz-p"] = l1common.Transaction{
		BizId: "biz-p", Fid: "1234", Status: l1common.TxProcessing, ChainTxHash: "0xok",
	}

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","txHash":"0xok"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", payload))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}
	if fiat.transfers != 0 {
		t.Error("a row already PROCESSING must never reach the processor again")
	}

	var resp models.PayoutResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.BizId != "biz-p" || resp.Status != l1common.TxProcessing {
		t.Error("duplicate must report the in-flight row as-is, got", resp.BizId, resp.Status)
	}
	if store.rows["biz-p"].Status != l1common.TxProcessing {
		t.Error("in-flight row must be left untouched, got", store.rows["biz-p"].Status)
	}
}

func TestPayoutPendingSettlementDefers(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{}
	SetDeps(Deps{Store: store, Fiat: fiat, Checker: &fakeChecker{}})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234","amount":"10","txHash":"0xunknown"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/payout/create", payload))

	if w.Code != 202 {
		t.Error("pending settlement should defer with 202, got", w.Code)
	}
	if fiat.transfers != 0 {
		t.Error("no transfer before settlement is confirmed")
	}
}

func TestReconcileAdvancesRevertedRows(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	checker := &fakeChecker{outcomes: map[string]evm.Outcome{
		"0xdead": evm.OutcomeReverted,
		"0xok":   evm.OutcomeSettled,
	}}
	SetDeps(Deps{Store: store, Checker: checker})

	store.rows["r1"] = l1common.Transaction{BizId: "r1", Fid: "1234", Status: l1common.TxPending, ChainTxHash: "0xdead"}
	store.rows["r2"] = l1common.Transaction{BizId: "r2", Fid: "1234", Status: l1common.TxPending, ChainTxHash: "0xok"}
	store.rows["r3"] = l1common.Transaction{BizId: "r3", Fid: "1234", Status: l1common.TxCompleted, ChainTxHash: "0xdead", TransferID: "tr_1"}
	store.rows["r4"] = l1common.Transaction{BizId: "r4", Fid: "1234", Status: l1common.TxProcessing, ChainTxHash: "0xok", TransferID: "tr_2"}

	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/trade/reconcile/1234", nil))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code)
	}

	if store.rows["r1"].Status != l1common.TxFailed {
		t.Error("reverted pending row must become FAILED, got", store.rows["r1"].Status)
	}
	if store.rows["r2"].Status != l1common.TxPending {
		t.Error("settled but unpaid row must stay PENDING, got", store.rows["r2"].Status)
	}
	if store.rows["r3"].Status != l1common.TxCompleted {
		t.Error("terminal rows are untouchable, got", store.rows["r3"].Status)
	}
	if store.rows["r4"].Status != l1common.TxCompleted {
		t.Error("settled PROCESSING row with a transfer id completes, got", store.rows["r4"].Status)
	}
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	store := newFakeStore()
	store.rows["t1"] = l1common.Transaction{BizId: "t1", Status: l1common.TxFailed}

	ok, err := store.AdvanceStatus(context.Background(), "t1", l1common.TxPending, l1common.TxCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("terminal row accepted a transition")
	}

	ok, _ = store.SetTransfer(context.Background(), "t1", "tr_X", l1common.TxCompleted)
	if ok {
		t.Error("terminal row accepted a transfer write")
	}
	if store.rows["t1"].TransferID != "" {
		t.Error("terminal row was mutated")
	}

	// a transition may only leave the status it expects to find
	store.rows["t2"] = l1common.Transaction{BizId: "t2", Status: l1common.TxProcessing}
	ok, _ = store.AdvanceStatus(context.Background(), "t2", l1common.TxPending, l1common.TxProcessing)
	if ok {
		t.Error("PROCESSING row matched a PENDING expectation")
	}
}

func TestConnectPayoutAccountReusesExisting(t *testing.T) {
	store := newFakeStore()
	seedUser(store, true)
	fiat := &fakeFiat{}
	SetDeps(Deps{Store: store, Fiat: fiat})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"1234"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/user/stripe/connect", payload))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}

	var resp models.ConnectAccountResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.AccountId != "acct_test" {
		t.Error("existing account must be reused, got", resp.AccountId)
	}
	if resp.OnboardingURL == "" {
		t.Error("expected a fresh onboarding link")
	}
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	SetDeps(Deps{Store: newFakeStore()})

	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/user/stats/999", nil))

	if w.Code != 404 {
		t.Error("expected 404 for unknown user, got", w.Code)
	}
}

func TestLoginUpsertsUser(t *testing.T) {
	store := newFakeStore()
	SetDeps(Deps{Store: store})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{"fid":"42","walletAddress":"0x1111111111111111111111111111111111111111"}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/auth/login", payload))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}
	if store.users["42"].CustodyAddress != "0x1111111111111111111111111111111111111111" {
		t.Error("custody address not stored")
	}
}

func TestResolveModeFollowsWalletPreference(t *testing.T) {
	saved := l1common.ServiceConfigurations.Wallet.Preference
	defer func() { l1common.ServiceConfigurations.Wallet.Preference = saved }()

	user := l1common.User{
		Fid:            "1234",
		CustodyAddress: "0x1111111111111111111111111111111111111111",
		SignerAddress:  "0x2222222222222222222222222222222222222222",
	}

	SetDeps(Deps{})
	l1common.ServiceConfigurations.Wallet.Preference = []string{l1common.WalletEmbedded, l1common.WalletConnected}
	if mode := resolveMode("", user); mode != l1common.ModeBatched {
		t.Error("embedded-first policy with a custody wallet must go batched, got", mode)
	}

	// an explicit request always wins over the policy
	if mode := resolveMode(l1common.ModeDirect, user); mode != l1common.ModeDirect {
		t.Error("explicit mode must be honored, got", mode)
	}

	SetDeps(Deps{CustodySigner: nopSigner{}})
	l1common.ServiceConfigurations.Wallet.Preference = []string{l1common.WalletConnected, l1common.WalletEmbedded}
	if mode := resolveMode("", user); mode != l1common.ModeDirect {
		t.Error("connected-first policy with a signer must go direct, got", mode)
	}

	// no custody wallet: embedded is unusable, fall through to connected
	l1common.ServiceConfigurations.Wallet.Preference = []string{l1common.WalletEmbedded, l1common.WalletConnected}
	if mode := resolveMode("", l1common.User{Fid: "1234"}); mode != l1common.ModeDirect {
		t.Error("unusable embedded wallet must fall through, got", mode)
	}
}

func TestBridgeQuoteIncludesTokenMetadata(t *testing.T) {
	quote := bridge.Quote{
		OriginChainId:      8453,
		DestinationChainId: 10,
		InputToken:         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		OutputToken:        "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		InputAmount:        "1000000",
		OutputAmount:       "985000",
		SpokePoolAddress:   "0x09aea4b2242abc8bb4bb78d537a67a245a7bec64",
	}
	SetDeps(Deps{Quotes: &fakeQuotes{quote: quote}, Tokens: &fakeTokens{balance: big.NewInt(0)}})

	router := testRouter()
	w := httptest.NewRecorder()
	target := "/api/quote?originChainId=8453&destinationChainId=10" +
		"&inputToken=0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913" +
		"&outputToken=0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85&amount=1000000"
	router.ServeHTTP(w, httptest.NewRequest("GET", target, nil))

	if w.Code != 200 {
		t.Fatal("expected 200, got", w.Code, w.Body.String())
	}

	var resp models.QuoteResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.OutputAmount != "985000" {
		t.Error("quote fields must pass through, got", resp.OutputAmount)
	}
	if resp.InputTokenSymbol != "USDC" || resp.InputTokenDecimals != 6 {
		t.Error("expected input token metadata, got", resp.InputTokenSymbol, resp.InputTokenDecimals)
	}
}

func TestExecuteTradeRejectsInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	seedUser(store, false)
	quote := bridge.Quote{
		OriginChainId:      8453,
		DestinationChainId: 10,
		InputToken:         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		OutputToken:        "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		InputAmount:        "1000000",
		OutputAmount:       "985000",
		SpokePoolAddress:   "0x09aea4b2242abc8bb4bb78d537a67a245a7bec64",
	}
	SetDeps(Deps{
		Store:  store,
		Quotes: &fakeQuotes{quote: quote},
		Tokens: &fakeTokens{balance: big.NewInt(42)},
	})

	router := testRouter()
	w := httptest.NewRecorder()
	payload := strings.NewReader(`{
		"fid":"1234","amount":"1000000","originChainId":8453,"destinationChainId":10,
		"inputToken":"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		"outputToken":"0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		"permitR":"0x01","permitS":"0x02","permitV":27,"permitDeadline":4102444800
	}`)
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/trade/execute", payload))

	if w.Code != 400 {
		t.Fatal("expected 400 for an uncovered pull, got", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "insufficient token balance") {
		t.Error("expected the balance error surfaced, got", w.Body.String())
	}
	if len(store.rows) != 0 {
		t.Error("no ledger row may be written before the balance clears")
	}
}
