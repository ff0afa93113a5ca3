package claimapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/claimflow/internal/claim"
)

// maxEvidenceBytes caps a single evidence upload.
const maxEvidenceBytes = 16 << 20 // 16MB

// handleUploadEvidence accepts a multipart upload with a "type" field and a
// "file" part, stores it, and reports whether this upload completed the
// required evidence set and triggered automated decisioning.
func (a *API) handleUploadEvidence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes)
	if err := r.ParseMultipartForm(maxEvidenceBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	docType := claim.EvidenceType(r.FormValue("type"))
	if docType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	res, err := a.svc.UploadEvidence(r.Context(), id, docType, file)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}
