package api

// MetaHeader carries the metadata JSON document on raw-body ingests.
const MetaHeader = "X-MDM-Meta"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// IngestResponse describes a persisted object.
type IngestResponse struct {
	ID              string `json:"id"`
	ContentDigest   string `json:"content_digest"`
	StorageTier     string `json:"storage_tier"`
	StorageLocation string `json:"storage_location"`
	ByteSize        int64  `json:"byte_size"`

	// Legacy field names kept for older clients.
	SHA256      string `json:"sha256"`
	StoragePath string `json:"storage_path"`
}
