package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"connect4-server/db"
	"connect4-server/lobby"
)

// Error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the read-only admin API and the websocket play endpoint.
type Handler struct {
	store        *db.Store
	hub          *lobby.Hub
	log          *zap.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	readTimeout  time.Duration
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // any origin may play
	},
}

func NewHandler(store *db.Store, hub *lobby.Hub, logger *zap.Logger, pingInterval, readTimeout time.Duration) *Handler {
	return &Handler{
		store:        store,
		hub:          hub,
		log:          logger,
		upgrader:     upgrader,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// Router wires every endpoint.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/games", h.GetGames).Methods("GET")
	router.HandleFunc("/api/games/{id}", h.GetGame).Methods("GET")
	router.HandleFunc("/api/games/{id}/board", h.GetBoard).Methods("GET")
	router.HandleFunc("/api/results", h.GetResults).Methods("GET")
	router.HandleFunc("/api/players/{name}", h.GetPlayer).Methods("GET")
	router.HandleFunc("/api/leaderboard", h.GetLeaderboard).Methods("GET")
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// WebSocket endpoint for real-time gameplay
	router.HandleFunc("/ws/play", h.Play)

	return router
}

// Response helpers
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// GetGames returns the games in progress
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.ListGames())
}

// GetGame returns a live or recently finished game
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, err := h.store.GetGame(gameID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}
	respondWithJSON(w, http.StatusOK, game)
}

// GetBoard renders a live game's board as the players see it
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	lines, err := h.store.GetBoard(gameID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Game not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(strings.Join(lines, "\n") + "\n"))
}

// GetResults returns finished games, newest first
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.History())
}

// GetPlayer returns one player's record
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	player, err := h.store.GetPlayer(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Player not found")
		return
	}
	respondWithJSON(w, http.StatusOK, player)
}

// GetLeaderboard returns the player leaderboard
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 10 // Default limit

	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
	}

	respondWithJSON(w, http.StatusOK, h.store.GetLeaderboard(limit))
}

// GetStats reports connection counters
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.hub.Stats())
}

// Play upgrades the request and runs a player session over the websocket.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("websocket connection attempt", zap.String("remote", r.RemoteAddr))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	h.hub.Handle(r.Context(), lobby.NewWebSocketConn(conn, h.pingInterval, h.readTimeout))
}
