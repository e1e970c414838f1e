package http

import (
	"log/slog"
	"net/http"

	"obras/internal/report"
)

// handleReportXLSX streams the full workbook: one sheet per report view.
func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	summary, err := report.CollectSummary(r.Context(), s.repo)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	statement, err := report.CollectStatement(r.Context(), s.repo)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	f, err := report.Workbook(summary, statement)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.ErrorContext(r.Context(), "Failed to close workbook", "error", cerr)
		}
	}()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio_obras.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream workbook", "error", err)
	}
}

// handlePublishSheets pushes the summary rows to the configured spreadsheet.
// Returns 501 when no spreadsheet is configured.
func (s *Server) handlePublishSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusNotImplemented, "publicação em planilha não está configurada")
		return
	}
	summary, err := report.CollectSummary(r.Context(), s.repo)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	if err := s.sheets.PublishSummary(r.Context(), summary); err != nil {
		slog.ErrorContext(r.Context(), "Failed to publish summary", "error", err)
		writeError(w, http.StatusBadGateway, "falha ao publicar o resumo na planilha")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rows": len(summary)})
}
