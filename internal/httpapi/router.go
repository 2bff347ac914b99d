package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Scraping
	sh := SearchHandler{
		RunSearch:    d.RunSearch,
		RunSearchAll: d.RunSearchAll,
		RunProduct:   d.RunProduct,
		Status:       d.ScrapeStatus,
		InBlackout:   d.InBlackout,
	}
	mux.HandleFunc("/api/search", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Search,
	}))
	mux.HandleFunc("/api/search/all", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SearchAll,
	}))
	mux.HandleFunc("/api/product", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Product,
	}))
	mux.HandleFunc("/api/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Statusz,
	}))

	// Credits and persisted stats
	uh := UsageHandler{
		Usage:         d.Usage,
		CurrentPeriod: d.CurrentPeriod,
		StatsSince:    d.StatsSince,
	}
	mux.HandleFunc("/api/usage", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: uh.Get,
	}))
	mux.HandleFunc("/api/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: uh.Stats,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets
	sec := SecretsHandler{}
	mux.HandleFunc("/api/secrets/proxy", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sec.SetProxyAPIKey,
	}))
	mux.HandleFunc("/api/secrets/structured", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sec.SetStructuredPassword,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Prometheus exposition
	if d.MetricsHandler != nil {
		mux.Handle("/metrics", d.MetricsHandler)
	}

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/healthz", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Maintenance
	if d.DB != nil {
		dbh := DBHandler{DB: d.DB.Pool}
		mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
			http.MethodPost: dbh.Checkpoint,
		}))
	}

	return mux
}
