package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aerodados/rab-proxy/engine/domain"
	"github.com/aerodados/rab-proxy/engine/rab"
	"github.com/aerodados/rab-proxy/engine/sheet"
)

// Lookuper resolves a raw tail number into a registry result.
type Lookuper interface {
	Lookup(ctx context.Context, raw string) (rab.Result, error)
}

// AeronaveResponse is the JSON body of GET /api/aeronave.
type AeronaveResponse struct {
	Marca         string     `json:"marca"`
	Fonte         string     `json:"fonte"`
	ConsultadoEm  string     `json:"consultado_em"`
	Fields        rab.Record `json:"fields"`
	Links         []rab.Link `json:"links"`
	MaybeNotFound bool       `json:"maybeNotFound"`
}

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error  string `json:"error"`
	Marca  string `json:"marca,omitempty"`
	Detail string `json:"detail,omitempty"`
}

const (
	msgMissingMarca = "Parâmetro 'marca' é obrigatório."
	msgNotFound     = "Aeronave não encontrada no RAB."
	msgUpstream     = "Falha ao consultar o RAB"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func handleAeronave(svc Lookuper, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Lookup(r.Context(), r.URL.Query().Get("marca"))
		if err != nil {
			status, body := classify(err, res.Marca)
			if status == http.StatusBadGateway {
				logger.ErrorContext(r.Context(), "aeronave lookup failed", "marca", r.URL.Query().Get("marca"), "err", err)
			}
			writeJSON(w, status, body)
			return
		}

		writeJSON(w, http.StatusOK, AeronaveResponse{
			Marca:         res.Marca,
			Fonte:         res.Source,
			ConsultadoEm:  res.Timestamp(),
			Fields:        res.Fields,
			Links:         res.Links,
			MaybeNotFound: res.MaybeNotFound,
		})
	}
}

func handleAeronaveXLSX(svc Lookuper, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Lookup(r.Context(), r.URL.Query().Get("marca"))
		if err != nil {
			status, body := classify(err, res.Marca)
			if status != http.StatusBadGateway {
				writeJSON(w, status, body)
				return
			}
			logger.ErrorContext(r.Context(), "aeronave xlsx lookup failed", "marca", r.URL.Query().Get("marca"), "err", err)
			http.Error(w, msgUpstream, http.StatusBadGateway)
			return
		}

		b, err := sheet.Render(res)
		if err != nil {
			logger.ErrorContext(r.Context(), "render xlsx failed", "marca", res.Marca, "err", err)
			http.Error(w, msgUpstream, http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", sheet.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sheet.Filename(res.Marca)))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

// classify maps a lookup error to its HTTP status and JSON body.
func classify(err error, marca string) (int, ErrorResponse) {
	var nf *domain.NotFoundError
	switch {
	case errors.Is(err, domain.ErrInvalidMarca):
		return http.StatusBadRequest, ErrorResponse{Error: msgMissingMarca}
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrorResponse{Error: msgNotFound, Marca: nf.Marca}
	default:
		return http.StatusBadGateway, ErrorResponse{Error: msgUpstream, Marca: marca, Detail: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
