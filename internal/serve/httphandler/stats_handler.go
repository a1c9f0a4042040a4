package httphandler

import (
	"net/http"

	"github.com/hatchpay/offramp-backend/internal/serve/httpjson"
)

// StatsHandler exposes the engine's in-memory operational counters.
type StatsHandler struct {
	Engine VerificationEngineInterface
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpjson.Render(w, h.Engine.Stats())
}
