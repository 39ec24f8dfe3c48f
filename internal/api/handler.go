package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-hclog"

	"novasport-checker/internal/store"
)

// Handler holds shared dependencies for relay handlers.
type Handler struct {
	store      store.Store
	webpush    *webpush.Options
	userscript UserscriptParams
	logger     hclog.Logger
}

// NewHandler creates a new relay handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, script UserscriptParams, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		store:      s,
		webpush:    webpushOptions,
		userscript: script,
		logger:     logger,
	}
}
