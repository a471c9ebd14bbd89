package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/susu3304/warikanbot/internal/balance"
	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/nomikai"
	"github.com/susu3304/warikanbot/internal/renderer"
	"github.com/susu3304/warikanbot/internal/settle"
)

const maxBodyBytes = 1 << 20

//go:embed web/index.html
var indexHTML []byte

func (a *API) handleWebInterface(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// settleRequest is a ledger plus the balance options.
type settleRequest struct {
	balance.Ledger
	Truncate string `json:"truncate,omitempty"`
	Decimals *int   `json:"decimals,omitempty"`
}

func (a *API) handlePublicSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	trunc, err := balance.ParseTruncation(req.Truncate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := balance.Options{Truncation: trunc}
	if req.Decimals != nil {
		opts.Decimals = *req.Decimals
	}

	ledger := &req.Ledger
	if limit := a.config.MaxParticipants; limit > 0 && len(ledger.Participants) > limit {
		http.Error(w, fmt.Sprintf("too many participants: %d (max %d)", len(ledger.Participants), limit), http.StatusBadRequest)
		return
	}
	sheet, err := ledger.Calculate(opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if a.config.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.SettleTimeout)
		defer cancel()
	}
	res, err := settle.Settle(ctx, sheet.Participants, settle.Options{
		Precision: ledger.RoundingPrecision(),
		Tolerance: sheet.Slack,
	})
	if err != nil {
		writeSettleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(renderer.JSON(res, ledger.Currency))
}

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	guilds, err := a.getDiscordGuilds(r.Context(), claims.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get guilds: %v", err), http.StatusBadGateway)
		return
	}

	registeredIDs, err := a.events.RegisteredGuildIDs(r.Context())
	if err != nil {
		http.Error(w, "failed to get registered guilds", http.StatusInternalServerError)
		return
	}

	registered := make(map[int64]bool, len(registeredIDs))
	for _, id := range registeredIDs {
		registered[id] = true
	}

	filtered := []DiscordGuild{}
	for _, guild := range guilds {
		guildID, _ := strconv.ParseInt(guild.ID, 10, 64)
		if registered[guildID] {
			filtered = append(filtered, guild)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filtered)
}

// handleSettlement previews the settlement of a channel's active event.
// Nothing is persisted.
func (a *API) handleSettlement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	vars := mux.Vars(r)
	guildID, err := strconv.ParseInt(vars["guild_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid guild_id", http.StatusBadRequest)
		return
	}
	channelID := vars["channel_id"]

	// Verify user has access to guild
	if !a.userHasGuildAccess(r.Context(), claims.AccessToken, guildID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ev, err := a.events.ActiveEventByChannel(r.Context(), channelID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && ev.GuildID != guildID) {
		http.Error(w, "no active event in this channel", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load event", http.StatusInternalServerError)
		return
	}

	res, err := a.nomikai.Preview(r.Context(), channelID)
	if err != nil {
		writeSettleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(renderer.JSON(res, ""))
}

func writeSettleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nomikai.ErrNoActiveEvent):
		http.Error(w, "no active event in this channel", http.StatusNotFound)
	case errors.Is(err, balance.ErrInvalidLedger),
		errors.Is(err, nomikai.ErrNotEnoughParticipants),
		errors.Is(err, nomikai.ErrTooManyParticipants),
		errors.Is(err, settle.ErrNoParticipants),
		errors.Is(err, settle.ErrInvalidPrecision):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, settle.ErrUnreconciled):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "settlement search timed out", http.StatusServiceUnavailable)
	default:
		log.Printf("api: settle failed: %v", err)
		http.Error(w, "failed to settle", http.StatusInternalServerError)
	}
}
