package harvest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield/auth"
	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/types"
	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

// API is the HTTP surface of the verification service.
type API struct {
	service *Service
	auth    *auth.Authenticator
	logger  log.Logger
}

func NewAPI(service *Service, authenticator *auth.Authenticator) *API {
	return &API{
		service: service,
		auth:    authenticator,
		logger:  log.New("module", "api"),
	}
}

// Handler returns the routed handler, including the metrics endpoint.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reports", a.reportsCollection)
	mux.HandleFunc("/api/reports/", a.reportSubtree)
	mux.HandleFunc("/api/map/summary", a.mapSummary)
	mux.HandleFunc("/api/users", a.leaderboard)
	mux.HandleFunc("/api/users/", a.userSubtree)
	mux.HandleFunc("/api/webhooks/transactions", a.transactionWebhook)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (a *API) reportsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listReports(w, r)
	case http.MethodPost:
		a.submitReport(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// reportSubtree routes /api/reports/{id}[/vote|/votes|/metadata].
func (a *API) reportSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		a.getReport(w, r, id)
	case action == "vote" && r.Method == http.MethodPost:
		a.vote(w, r, id)
	case action == "votes" && r.Method == http.MethodGet:
		a.listVotes(w, r, id)
	case action == "metadata" && r.Method == http.MethodGet:
		a.reportMetadata(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// userSubtree routes /api/users/{wallet}[/transactions].
func (a *API) userSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	wallet, action, _ := strings.Cut(rest, "/")
	if wallet == "" {
		http.NotFound(w, r)
		return
	}
	switch action {
	case "":
		a.userProfile(w, r, wallet)
	case "transactions":
		a.userTransactions(w, r, wallet)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) submitReport(w http.ResponseWriter, r *http.Request) {
	wallet, err := a.auth.WalletFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, errInvalidBody(err))
		return
	}
	req.Owner = wallet
	report, err := a.service.SubmitReport(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, report)
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReportFilter{
		Status:   q.Get("status"),
		CropType: q.Get("cropType"),
		Province: q.Get("province"),
		District: q.Get("district"),
		Owner:    q.Get("farmer"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	reports, total, err := a.service.Reports(r.Context(), filter)
	if err != nil {
		a.writeError(w, err)
		return
	}
	filter.Normalize()
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request, id string) {
	report, err := a.service.Report(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}

type voteRequest struct {
	Decision    types.VoteDecision `json:"decision"`
	Comment     string             `json:"comment"`
	TxSignature string             `json:"txSignature"`
}

func (a *API) vote(w http.ResponseWriter, r *http.Request, id string) {
	wallet, err := a.auth.WalletFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, errInvalidBody(err))
		return
	}
	result, err := a.service.ApplyVote(r.Context(), id, wallet, req.Decision, req.Comment, req.TxSignature)
	if err != nil {
		// AlreadyVoted and AlreadyFinalized come back with the report's
		// committed state so the client can refresh its tallies.
		if result != nil {
			a.writeJSON(w, errorStatus(err), map[string]interface{}{
				"error":  err.Error(),
				"status": result.Status,
				"votes":  result.Tally,
			})
			return
		}
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) listVotes(w http.ResponseWriter, r *http.Request, id string) {
	votes, err := a.service.ReportVotes(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, votes)
}

func (a *API) reportMetadata(w http.ResponseWriter, r *http.Request, id string) {
	report, err := a.service.Report(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, BuildMetadata(report))
}

func (a *API) mapSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := a.service.RegionSummary(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit := 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = n
	}
	users, err := a.service.Leaderboard(r.Context(), store.LeaderboardSort(q.Get("type")), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": users})
}

func (a *API) userProfile(w http.ResponseWriter, r *http.Request, wallet string) {
	user, err := a.service.Profile(r.Context(), wallet)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, user)
}

func (a *API) userTransactions(w http.ResponseWriter, r *http.Request, wallet string) {
	txs, err := a.service.WalletTransactions(r.Context(), wallet)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, txs)
}

// webhookEvent is one delivered transaction notification; deliveries repeat,
// ingestion upserts by signature.
type webhookEvent struct {
	Signature        string          `json:"signature"`
	Type             string          `json:"type"`
	Timestamp        int64           `json:"timestamp"`
	Slot             uint64          `json:"slot"`
	Description      string          `json:"description"`
	TransactionError json.RawMessage `json:"transactionError"`
	NativeTransfers  []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"`
	} `json:"nativeTransfers"`
}

func (a *API) transactionWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var events []webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		a.writeError(w, errInvalidBody(err))
		return
	}
	ingested := 0
	for _, event := range events {
		if event.Signature == "" {
			continue
		}
		tx := webhookTransaction(event)
		if err := a.service.IngestTransaction(r.Context(), tx); err != nil {
			a.logger.Error("failed to ingest webhook transaction", "signature", event.Signature, "error", err)
			continue
		}
		ingested++
	}
	a.writeJSON(w, http.StatusOK, map[string]int{"ingested": ingested})
}

func webhookTransaction(event webhookEvent) *types.Transaction {
	tx := &types.Transaction{
		Signature:   event.Signature,
		Type:        classifyWebhookType(event.Type),
		Description: event.Description,
		Status:      types.TxConfirmed,
		Slot:        event.Slot,
	}
	if len(event.TransactionError) > 0 && string(event.TransactionError) != "null" {
		tx.Status = types.TxFailed
	}
	if event.Timestamp > 0 {
		tx.BlockTime = time.Unix(event.Timestamp, 0).UTC()
	}
	if len(event.NativeTransfers) > 0 {
		transfer := event.NativeTransfers[0]
		tx.FromWallet = transfer.FromUserAccount
		tx.ToWallet = transfer.ToUserAccount
		// lamports to native units
		tx.Amount = decimal.New(transfer.Amount, -9)
	}
	return tx
}

func classifyWebhookType(eventType string) types.TxType {
	switch strings.ToUpper(eventType) {
	case "TRANSFER":
		return types.TxReward
	case "COMPRESSED_NFT_MINT":
		return types.TxMintCNFT
	default:
		return types.TxUnknown
	}
}

func errInvalidBody(err error) error {
	return &apiError{status: http.StatusBadRequest, msg: "invalid request body: " + err.Error()}
}

type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func (a *API) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func errorStatus(err error) int {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidWallet):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrSelfVote):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrAlreadyVoted), errors.Is(err, types.ErrAlreadyFinalized),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
