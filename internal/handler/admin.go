package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pavelanni/provas/internal/bank"
	"github.com/pavelanni/provas/internal/handler/views"
	"github.com/pavelanni/provas/internal/model"
)

const maxUploadSize = 10 << 20

func (h *Handler) handleImportPage(w http.ResponseWriter, r *http.Request) {
	h.renderImport(w, r, http.StatusOK, nil, "")
}

func (h *Handler) renderImport(w http.ResponseWriter, r *http.Request, status int, result *model.ImportResult, importErr string) {
	history, err := h.store.ListImports(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, status, views.ImportPage(result, importErr, history))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	result, err := h.bank.Import(r.Context(), header.Filename, data, r.FormValue("forcar") != "")
	var missing *bank.MissingColumnsError
	switch {
	case errors.As(err, &missing), errors.Is(err, bank.ErrEmptyFile):
		h.renderImport(w, r, http.StatusUnprocessableEntity, nil, err.Error())
		return
	case errors.Is(err, bank.ErrUnreadableFile):
		slog.Warn("unreadable import file", "filename", header.Filename, "error", err)
		h.renderImport(w, r, http.StatusBadRequest, nil, err.Error())
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}

	slog.Info("uploaded questions", "filename", header.Filename,
		"inserted", result.Inserted, "skipped", result.Skipped, "rejected", result.Rejected)
	h.renderImport(w, r, http.StatusOK, &result, "")
}
