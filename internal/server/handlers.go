package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stockbro/stockbro/internal/market"
	"github.com/stockbro/stockbro/internal/observ"
)

// handleStatus reports rate-limit budgets and aggregate data-layer health.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"health": observ.Snapshot(),
	}
	if s.limits != nil {
		response["budgets"] = s.limits.StatusAll()
	}
	if sizer, ok := s.market.(interface{ CacheSizes() map[string]int }); ok {
		response["caches"] = sizer.CacheSizes()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleQuote handles GET /api/v1/stocks/{symbol}.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	sd, stale, err := s.market.GetStockData(r.Context(), symbol)
	if err != nil {
		s.writeMarketError(w, symbol, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  sd,
		"stale": stale,
	})
}

// handleHistory handles GET /api/v1/stocks/{symbol}/history?duration=3M.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	exchange, trading := market.ParseSymbol(chi.URLParam(r, "symbol"))
	duration := r.URL.Query().Get("duration")
	if duration == "" {
		duration = "3M"
	}

	candles, err := s.market.HistoricalData(r.Context(), trading, exchange, duration)
	if err != nil {
		s.writeMarketError(w, trading, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     candles,
		"symbol":   trading,
		"exchange": exchange,
		"duration": duration,
	})
}

// handleSearch handles GET /api/v1/stocks/search?q=tata.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", 10)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": s.market.SearchStocks(r.Context(), query, limit),
	})
}

// handleTrending handles GET /api/v1/stocks/trending.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": s.market.TrendingStocks(r.Context()),
	})
}

// handleNewsSearch handles GET /api/v1/news/search?q=reliance.
func (s *Server) handleNewsSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", 5)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": s.news.SearchNews(r.Context(), query, limit),
	})
}

// handleHeadlines handles GET /api/v1/news/headlines?category=business.
func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "business"
	}
	limit := queryInt(r, "limit", 5)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": s.news.TopHeadlines(r.Context(), category, limit),
	})
}

type chatRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// handleChatQuery handles POST /api/v1/chat/query. The answer is always 200;
// data-layer failures surface as degraded answer text, not HTTP errors.
func (s *Server) handleChatQuery(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ans := s.assistant.Answer(r.Context(), req.Query)

	response := map[string]interface{}{
		"data": ans,
	}
	if s.store != nil {
		convID, err := s.persistTurn(r, req, ans.Text, string(ans.Intent))
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to persist conversation turn")
		} else {
			response["conversation_id"] = convID
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

// persistTurn records the user query and the assistant reply, creating the
// conversation first when the client did not supply one.
func (s *Server) persistTurn(r *http.Request, req chatRequest, answer, intent string) (string, error) {
	ctx := r.Context()
	convID := req.ConversationID
	if convID == "" {
		userID := req.UserID
		if userID == "" {
			userID = "anonymous"
		}
		conv, err := s.store.CreateConversation(ctx, userID, titleFor(req.Query))
		if err != nil {
			return "", err
		}
		convID = conv.ID
	}

	if _, err := s.store.AppendMessage(ctx, convID, "user", req.Query, intent); err != nil {
		return "", err
	}
	if _, err := s.store.AppendMessage(ctx, convID, "assistant", answer, intent); err != nil {
		return "", err
	}
	return convID, nil
}

// handleConversationMessages handles GET /api/v1/chat/conversations/{id}/messages.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "conversation history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 100)

	msgs, err := s.store.Messages(r.Context(), id, limit)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", id).Msg("failed to load messages")
		s.writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": msgs,
	})
}

type watchlistRequest struct {
	UserID  string   `json:"user_id"`
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// handleCreateWatchlist handles POST /api/v1/watchlists.
func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	list, err := s.store.CreateWatchlist(r.Context(), req.UserID, req.Name, normalizeSymbols(req.Symbols))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			s.writeError(w, http.StatusConflict, "watchlist name already in use")
			return
		}
		s.log.Error().Err(err).Msg("failed to create watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to create watchlist")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": list})
}

// handleListWatchlists handles GET /api/v1/watchlists?user_id=u1.
func (s *Server) handleListWatchlists(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	lists, err := s.store.ListWatchlists(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list watchlists")
		s.writeError(w, http.StatusInternalServerError, "failed to list watchlists")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": lists})
}

// handleGetWatchlist handles GET /api/v1/watchlists/{id}.
func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.GetWatchlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to load watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// handleUpdateWatchlist handles PUT /api/v1/watchlists/{id}, replacing the
// symbol set.
func (s *Server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.store.GetWatchlist(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to load watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}

	if err := s.store.UpdateWatchlistSymbols(r.Context(), id, normalizeSymbols(req.Symbols)); err != nil {
		s.log.Error().Err(err).Msg("failed to update watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to update watchlist")
		return
	}

	list, err := s.store.GetWatchlist(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to reload watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// handleDeleteWatchlist handles DELETE /api/v1/watchlists/{id}.
func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteWatchlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "watchlist not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to delete watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to delete watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMarketError maps data-layer errors onto HTTP statuses: unknown
// symbols are 404, exhausted budgets and upstream trouble are 503.
func (s *Server) writeMarketError(w http.ResponseWriter, symbol string, err error) {
	var fe *market.FetchError
	switch {
	case market.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, "no data found for "+symbol)
	case errors.As(err, &fe) && fe.Transient():
		s.writeError(w, http.StatusServiceUnavailable, "data source temporarily unavailable, retry shortly")
	default:
		s.log.Error().Err(err).Str("symbol", symbol).Msg("quote request failed")
		s.writeError(w, http.StatusBadGateway, "upstream data source error")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// titleFor derives a conversation title from the first query.
func titleFor(query string) string {
	query = strings.TrimSpace(query)
	if len(query) > 60 {
		return query[:60]
	}
	return query
}
