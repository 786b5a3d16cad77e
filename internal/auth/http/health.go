package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

const readinessTimeout = 2 * time.Second

// Pinger is anything whose connection can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	Started time.Time
	Version string

	DB      Pinger
	Refresh Pinger // nil when refresh records live in DB
	Keys    *jwtx.KeyManager
}

func (h *HealthHandlers) report(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.Started).Round(time.Second).String(),
		Version: h.Version,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Reports that the process is serving, with uptime and version. Always 200.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandlers) HandleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.report("ok"))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the refresh store when it is separate, and the signing key.
//	@Description	Any failing check answers 503 with status "degraded".
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Router			/readyz [get].
func (h *HealthHandlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	healthy := true
	probe := func(p Pinger) string {
		if err := p.Ping(ctx); err != nil {
			healthy = false
			return "error: " + err.Error()
		}
		return "ok"
	}

	checks := &authsdk.HealthChecks{Database: probe(h.DB), Signer: "ok"}
	if h.Refresh != nil {
		checks.RefreshStore = probe(h.Refresh)
	}
	// Load retries a key that was unavailable at startup.
	if err := h.Keys.Load(); err != nil {
		healthy = false
		checks.Signer = "error: signing key unavailable"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	resp := h.report(status)
	resp.Checks = checks
	httpx.WriteJSON(w, code, resp)
}
