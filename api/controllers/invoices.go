package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/chatcart-backend/api/responses"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
)

// InvoiceDownload serves a rendered invoice document by filename.
func InvoiceDownload(cfg config.InvoiceConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filename := filepath.Base(chi.URLParam(r, "filename"))
		if filename == "." || filename == "/" || !strings.HasSuffix(filename, ".pdf") {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice filename"))
			return
		}

		path := filepath.Join(cfg.Dir, filename)
		if _, err := os.Stat(path); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found"))
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		http.ServeFile(w, r, path)
	}
}
