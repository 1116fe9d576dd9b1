package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/credential-registry/api"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/urlsign"
)

// ContentVerifier checks signed content URLs issued by this server.
type ContentVerifier interface {
	Verify(addr interfaces.ContentAddress, expires, signature string) error
}

// Handler serves the registry read API.
type Handler struct {
	registry api.RegistryReader
	verifier ContentVerifier
	log      *slog.Logger
}

// NewHandler creates a handler over reader. verifier may be nil when every
// storage backend presigns natively, in which case the content route serves 404.
func NewHandler(reader api.RegistryReader, verifier ContentVerifier, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		registry: reader,
		verifier: verifier,
		log:      log,
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind interfaces.ErrorKind) int {
	switch kind {
	case interfaces.KindValidation:
		return http.StatusBadRequest
	case interfaces.KindNotAuthorized:
		return http.StatusForbidden
	case interfaces.KindNotFound, interfaces.KindNotRegistered, interfaces.KindInvalidIndex:
		return http.StatusNotFound
	case interfaces.KindAlreadyRegistered, interfaces.KindAlreadyEndorsed, interfaces.KindDuplicateID:
		return http.StatusConflict
	case interfaces.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case interfaces.KindUnsupportedType:
		return http.StatusUnsupportedMediaType
	case interfaces.KindStorageFailed, interfaces.KindLedgerWriteFailed, interfaces.KindTxRejected, interfaces.KindResolutionFailed:
		return http.StatusBadGateway
	case interfaces.KindStoreUnavailable, interfaces.KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := interfaces.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", r.URL.Path, "kind", kind, "err", err)
		if kind == interfaces.KindInternal {
			message = "internal server error"
		}
	}
	h.writeJSON(w, status, api.ErrorResponse{Error: kind, Message: message})
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: invalid wallet address %q", interfaces.ErrValidation, raw)
	}
	return common.HexToAddress(raw), nil
}

// HandleProfile serves GET /api/public/students/{address}.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.registry.GetProfile(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// HandleCertificates serves GET /api/public/certs/{unique_id}.
func (h *Handler) HandleCertificates(w http.ResponseWriter, r *http.Request) {
	uniqueID := r.PathValue("unique_id")

	docs, err := h.registry.GetDocumentsForDisplay(r.Context(), uniqueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.DocumentsResponse{UniqueID: uniqueID, Documents: docs})
}

// HandleEndorsements serves
// GET /api/public/students/{address}/documents/{index}/endorsements?quorum=N.
func (h *Handler) HandleEndorsements(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid document index", interfaces.ErrValidation))
		return
	}

	quorum := 0
	if raw := r.URL.Query().Get(api.QuorumParam); raw != "" {
		quorum, err = strconv.Atoi(raw)
		if err != nil || quorum < 0 {
			h.writeError(w, r, fmt.Errorf("%w: quorum must be a non-negative integer", interfaces.ErrValidation))
			return
		}
	}

	state, err := h.registry.EndorsementState(r.Context(), addr, index, quorum)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HandleContent serves document bytes for URLs signed by this server.
func (h *Handler) HandleContent(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		http.NotFound(w, r)
		return
	}

	addr, err := interfaces.ParseContentAddress(r.PathValue("content_address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	if err := h.verifier.Verify(addr, q.Get("expires"), q.Get("signature")); err != nil {
		h.log.Debug("Rejected content request", "content_address", addr.Short(), "err", err)
		msg := "invalid signature"
		if errors.Is(err, urlsign.ErrExpired) {
			msg = "url expired"
		}
		h.writeJSON(w, http.StatusForbidden, api.ErrorResponse{Error: interfaces.KindNotAuthorized, Message: msg})
		return
	}

	data, err := h.registry.Content(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn("Failed to write content", "content_address", addr.Short(), "err", err)
	}
}

// HandleOrphans serves GET /api/admin/orphans.
func (h *Handler) HandleOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.registry.Orphans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.OrphansResponse{Orphans: orphans})
}
