package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"mdm/internal/api"
	"mdm/internal/ingest"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.ingestLimiter, "ingest", func() {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

		req, err := s.decodeIngestRequest(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		req.Source = r.URL.Path
		req.Actor = "api"

		res, err := s.ingester.Ingest(r.Context(), req)
		if err != nil {
			s.writeIngestError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, api.IngestResponse{
			ID:              res.ID,
			ContentDigest:   res.ContentDigest,
			StorageTier:     string(res.StorageTier),
			StorageLocation: res.StorageLocation,
			ByteSize:        res.ByteSize,
			SHA256:          res.ContentDigest,
			StoragePath:     res.StorageLocation,
		})
	})
}

// decodeIngestRequest accepts either a raw body with metadata in the
// X-MDM-Meta header (falling back to ?meta= and then individual query
// parameters) or a multipart form with a file part and a metadata field.
func (s *Server) decodeIngestRequest(r *http.Request) (ingest.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.decodeMultipartIngest(r)
	}
	return s.decodeRawIngest(r)
}

func (s *Server) decodeRawIngest(r *http.Request) (ingest.Request, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return ingest.Request{}, classifyBodyError(err)
	}
	if len(data) == 0 {
		return ingest.Request{}, ingest.Wrap(ingest.KindValidation, "", ingest.ErrEmptyBody)
	}

	query := r.URL.Query()
	rawMeta := r.Header.Get(api.MetaHeader)
	if rawMeta == "" {
		rawMeta = query.Get("meta")
	}
	meta, err := ingest.DecodeMetadata([]byte(rawMeta))
	if err != nil {
		return ingest.Request{}, err
	}
	meta = meta.Merge(ingest.MetadataFromFields(query.Get))
	if meta.ContentType == "" {
		meta.ContentType = r.Header.Get("Content-Type")
	}
	return meta.Request(data)
}

func (s *Server) decodeMultipartIngest(r *http.Request) (ingest.Request, error) {
	if err := r.ParseMultipartForm(ingestMultipartMemory); err != nil {
		return ingest.Request{}, classifyBodyError(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return ingest.Request{}, ingest.Wrap(ingest.KindValidation, "", ingest.ErrMissingFile)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return ingest.Request{}, classifyBodyError(err)
	}
	if len(data) == 0 {
		return ingest.Request{}, ingest.Wrap(ingest.KindValidation, "", ingest.ErrEmptyBody)
	}

	meta, err := ingest.DecodeMetadata([]byte(r.FormValue("metadata")))
	if err != nil {
		return ingest.Request{}, err
	}
	meta = meta.Merge(ingest.MetadataFromFields(r.FormValue))
	if meta.LogicalName == "" {
		meta.LogicalName = strings.TrimSpace(header.Filename)
	}
	if meta.ContentType == "" {
		meta.ContentType = header.Header.Get("Content-Type")
	}
	return meta.Request(data)
}

func classifyBodyError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return makeAPIError(http.StatusRequestEntityTooLarge, "request_too_large", ErrCodeRequestTooLarge, fmt.Errorf("request body too large"))
	}
	return badRequestCode(fmt.Errorf("read request body: %w", err), ErrCodeInvalidArgument)
}
