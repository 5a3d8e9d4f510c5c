package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

type logSessionRequest struct {
	Sets     []progress.Set `json:"sets"`
	Duration *int           `json:"duration,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

type balanceResponse struct {
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted"`
}

type modifiersRequest struct {
	StreakBonusEnabled bool `json:"streakBonusEnabled"`
	DailyBonusEnabled  bool `json:"dailyBonusEnabled"`
}

type modifiersResponse struct {
	chests.ModifierState
	DailyBonusActive  bool    `json:"dailyBonusActive"`
	StreakBonusActive bool    `json:"streakBonusActive"`
	BonusMagnitude    float64 `json:"bonusMagnitude"`
}

type walletResponse struct {
	Summary *chests.WalletSummary `json:"summary"`
	Items   []*chests.WalletItem  `json:"items"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.progress.Sessions(r.Context(), queryLimit(r, 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*progress.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleLogSession(w http.ResponseWriter, r *http.Request) {
	var req logSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.progress.LogSession(r.Context(), progress.SessionInput{
		Sets:     req.Sets,
		Duration: req.Duration,
		Tags:     req.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.economy.GetBalance(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance, Formatted: common.FormatBalance(balance)})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.economy.History(r.Context(), queryLimit(r, economy.DefaultHistoryLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []*economy.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov.Rank)
}

func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, progress.Ranks())
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	st, err := s.progress.Streak(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov.Records)
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	ms, err := s.progress.Milestones(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if ms == nil {
		ms = []*progress.Milestone{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.progress.Achievements(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleChestCatalogue(w http.ResponseWriter, r *http.Request) {
	defs := make([]chests.Definition, 0, len(chests.Tiers()))
	for _, t := range chests.Tiers() {
		def, err := t.Definition()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		defs = append(defs, def)
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleChestHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.chests.History(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*chests.OpenRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	tier, err := chests.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	table, err := s.chests.Odds(r.Context(), tier)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// handleOpenChest всегда возвращает OpenResult; статус отражает исход.
func (s *Server) handleOpenChest(w http.ResponseWriter, r *http.Request) {
	tier, err := chests.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := s.chests.OpenChest(r.Context(), tier)
	if err != nil && res == nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	switch res.Failure {
	case chests.FailureInsufficientFunds:
		status = http.StatusPaymentRequired
	case chests.FailureTransaction:
		status = http.StatusServiceUnavailable
	case chests.FailureRefund:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	summary, err := s.chests.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items, err := s.chests.WalletItems(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*chests.WalletItem{}
	}
	writeJSON(w, http.StatusOK, walletResponse{Summary: summary, Items: items})
}

func (s *Server) handleGetModifiers(w http.ResponseWriter, r *http.Request) {
	st, err := s.chests.Modifiers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.modifiersView(st))
}

func (s *Server) handleSetModifiers(w http.ResponseWriter, r *http.Request) {
	var req modifiersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.chests.SetModifierFlags(r.Context(), req.StreakBonusEnabled, req.DailyBonusEnabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.modifiersView(st))
}

func (s *Server) modifiersView(st chests.ModifierState) modifiersResponse {
	engine := s.chests.Engine()
	return modifiersResponse{
		ModifierState:     st,
		DailyBonusActive:  engine.IsDailyBonusActive(st),
		StreakBonusActive: engine.IsStreakBonusActive(st),
		BonusMagnitude:    engine.BonusMagnitude(st),
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.backup.ExportBytes(r.Context(), r.Header.Get(PassphraseHeader))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="pullups-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "файл бэкапа слишком большой")
		return
	}
	summary, err := s.backup.Import(r.Context(), data, r.Header.Get(PassphraseHeader))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleReset требует ?confirm=yes, чтобы данные не удалились случайным запросом.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		writeError(w, http.StatusBadRequest, "подтвердите сброс параметром ?confirm=yes")
		return
	}
	if err := s.backup.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
