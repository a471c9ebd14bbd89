package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/warikanbot/internal/config"
	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/nomikai"
	"github.com/susu3304/warikanbot/internal/settle"
	"golang.org/x/oauth2"
)

const discordAPIBase = "https://discord.com/api"

type eventStore interface {
	RegisteredGuildIDs(ctx context.Context) ([]int64, error)
	ActiveEventByChannel(ctx context.Context, channelID string) (*db.Event, error)
}

type settlementPreviewer interface {
	Preview(ctx context.Context, channelID string) (*settle.Result, error)
}

type API struct {
	router      *mux.Router
	events      eventStore
	nomikai     settlementPreviewer
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discordAPI  string
	httpClient  *http.Client
}

func New(cfg *config.Config, database *db.DB, svc *nomikai.Service) *API {
	return newAPI(cfg, database, svc)
}

func newAPI(cfg *config.Config, events eventStore, svc settlementPreviewer) *API {
	api := &API{
		router:     mux.NewRouter(),
		events:     events,
		nomikai:    svc,
		config:     cfg,
		jwtSecret:  []byte(cfg.JWTSecret),
		discordAPI: discordAPIBase,
		httpClient: http.DefaultClient,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleAuthCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/settle", a.handlePublicSettle).Methods("POST")

	// Web interface
	a.router.HandleFunc("/", a.handleWebInterface).Methods("GET")
	a.router.HandleFunc("/guilds/{guild_id}/channels/{channel_id}", a.handleWebInterface).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/channels/{channel_id}/settlement", a.handleSettlement).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, a.Handler())
}
