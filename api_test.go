package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Lingaraj-Patil/farm-yield/auth"
	"github.com/Lingaraj-Patil/farm-yield/test_helpers"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

func newTestAPI(t *testing.T) (*testEnv, http.Handler) {
	t.Helper()
	env := newTestEnv(t)
	api := NewAPI(env.service, auth.New("test-secret"))
	return env, api.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, wallet string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if wallet != "" {
		req.Header.Set("X-Wallet-Address", wallet)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPISubmitReport(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/reports", test_helpers.OwnerWallet, validSubmitRequest())
	require.Equal(t, http.StatusCreated, rec.Code)

	var report types.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Equal(t, types.StatusPending, report.Status)
	require.Equal(t, test_helpers.OwnerWallet, report.Owner)
}

func TestAPISubmitRequiresIdentity(t *testing.T) {
	_, handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/reports", "", validSubmitRequest())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPISubmitRejectsBadPayload(t *testing.T) {
	_, handler := newTestAPI(t)
	req := validSubmitRequest()
	req.CropType = ""
	rec := doJSON(t, handler, http.MethodPost, "/api/reports", test_helpers.OwnerWallet, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIVoteFlow(t *testing.T) {
	env, handler := newTestAPI(t)
	report := env.seedReport(t, test_helpers.OwnerWallet)
	votePath := fmt.Sprintf("/api/reports/%s/vote", report.ID)

	rec := doJSON(t, handler, http.MethodPost, votePath, test_helpers.Voter1,
		voteRequest{Decision: types.VoteApprove})
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.VoteResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, types.StatusPending, result.Status)
	require.Equal(t, 1, result.Tally.Approve)

	t.Run("self vote forbidden", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, votePath, test_helpers.OwnerWallet,
			voteRequest{Decision: types.VoteApprove})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate vote conflicts", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, votePath, test_helpers.Voter1,
			voteRequest{Decision: types.VoteReject})
		require.Equal(t, http.StatusConflict, rec.Code)

		// the error body carries the committed tallies so the UI can refresh
		var body struct {
			Error  string             `json:"error"`
			Status types.ReportStatus `json:"status"`
			Votes  types.Tally        `json:"votes"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.NotEmpty(t, body.Error)
		require.Equal(t, types.StatusPending, body.Status)
		require.Equal(t, types.Tally{Approve: 1}, body.Votes)
	})

	t.Run("bad decision", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, votePath, test_helpers.Voter2,
			voteRequest{Decision: "maybe"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown report", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/reports/missing/vote", test_helpers.Voter2,
			voteRequest{Decision: types.VoteApprove})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPIGetAndListReports(t *testing.T) {
	env, handler := newTestAPI(t)
	report := env.seedReport(t, test_helpers.OwnerWallet)

	rec := doJSON(t, handler, http.MethodGet, "/api/reports/"+report.ShortID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/reports?cropType=rice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Reports []*types.Report `json:"reports"`
		Total   int             `json:"total"`
		Page    int             `json:"page"`
		Limit   int             `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listing))
	require.Equal(t, 1, listing.Total)
	require.Equal(t, 1, listing.Page)

	rec = doJSON(t, handler, http.MethodGet, "/api/reports?cropType=bananas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listing))
	require.Zero(t, listing.Total)
}

func TestAPIReportMetadata(t *testing.T) {
	env, handler := newTestAPI(t)
	report := env.seedReport(t, test_helpers.OwnerWallet)

	rec := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/reports/%s/metadata", report.ShortID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc MetadataDocument
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	require.Equal(t, "Harvest Report "+report.ShortID, doc.Name)
}

func TestAPIMapSummary(t *testing.T) {
	env, handler := newTestAPI(t)
	env.seedReport(t, test_helpers.OwnerWallet)

	rec := doJSON(t, handler, http.MethodGet, "/api/map/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	require.Len(t, stats, 1)
	require.Equal(t, "rice", stats[0]["cropType"])
}

func TestAPIUserEndpoints(t *testing.T) {
	_, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/users/"+test_helpers.OwnerWallet, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user types.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	require.Equal(t, test_helpers.OwnerWallet, user.WalletAddress)

	rec = doJSON(t, handler, http.MethodGet, "/api/users/"+test_helpers.OwnerWallet+"/transactions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPILeaderboard(t *testing.T) {
	env, handler := newTestAPI(t)
	ctx := context.Background()

	seed := func(wallet string, total, verified, score int) {
		_, err := env.store.MutateUser(ctx, wallet, func(u *types.User) error {
			u.TotalReports = total
			u.VerifiedReports = verified
			u.ReputationScore = score
			return nil
		})
		require.NoError(t, err)
	}
	seed(test_helpers.OwnerWallet, 4, 1, 25)
	seed(test_helpers.Voter1, 10, 9, 90)
	seed(test_helpers.Voter2, 20, 10, 50)

	var body struct {
		Leaderboard []*types.User `json:"leaderboard"`
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Leaderboard, 3)
	require.Equal(t, test_helpers.Voter1, body.Leaderboard[0].WalletAddress, "reputation ranking is the default")

	rec = doJSON(t, handler, http.MethodGet, "/api/users?type=reports&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Leaderboard, 2)
	require.Equal(t, test_helpers.Voter2, body.Leaderboard[0].WalletAddress)
}

func TestAPITransactionWebhook(t *testing.T) {
	env, handler := newTestAPI(t)

	events := []map[string]interface{}{
		{
			"signature": "webhook-sig-1",
			"type":      "TRANSFER",
			"timestamp": 1756300000,
			"slot":      123456,
			"nativeTransfers": []map[string]interface{}{
				{
					"fromUserAccount": test_helpers.Voter1,
					"toUserAccount":   test_helpers.OwnerWallet,
					"amount":          10000000,
				},
			},
		},
		{
			// no signature, skipped
			"type": "TRANSFER",
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/webhooks/transactions", "", events)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp["ingested"])

	txs, err := env.store.UserTransactions(context.Background(), test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, types.TxReward, txs[0].Type)
	require.Equal(t, types.TxConfirmed, txs[0].Status)
	require.True(t, txs[0].Amount.Equal(decimal.New(10000000, -9)), "lamports convert to native units")
}
