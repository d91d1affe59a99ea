package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mdm/internal/digest"
	"mdm/internal/ident"
	"mdm/internal/metrics"
	"mdm/internal/models"
	"mdm/internal/storage"
	"mdm/internal/store"
)

const (
	defaultActor  = "api"
	defaultSource = "/ingest"
)

// Request is one validated ingestion request.
type Request struct {
	ID             string
	MissionID      string
	LogicalName    string
	Sensor         string
	Platform       string
	Classification string
	ObjectType     string
	ContentType    string
	CaptureTime    *time.Time
	PipelineRunID  string
	Tags           map[string]any
	Data           []byte

	// Source and Actor are recorded on the CREATED history event.
	Source string
	Actor  string
}

// Result describes a persisted object.
type Result struct {
	ID              string             `json:"id"`
	ContentDigest   string             `json:"content_digest"`
	StorageTier     models.StorageTier `json:"storage_tier"`
	StorageLocation string             `json:"storage_location"`
	ByteSize        int64              `json:"byte_size"`
}

// Service turns ingestion requests into stored bytes plus metadata.
// It holds no state across requests and takes no lock spanning steps.
type Service struct {
	backend storage.Backend
	objects store.ObjectStore
	logger  *slog.Logger
	metrics metrics.Recorder
	newID   func() (string, error)
	now     func() time.Time
}

// NewService wires the orchestrator to its storage backend and metadata store.
func NewService(backend storage.Backend, objects store.ObjectStore, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		backend: backend,
		objects: objects,
		logger:  logger,
		metrics: recorder,
		newID:   ident.New,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ingest persists req. Nothing is retried and nothing already written is
// rolled back on a later failure.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result, err := s.ingest(ctx, req)
	s.metrics.ObserveIngest(resultLabel(err), int64(len(req.Data)), time.Since(start).Seconds())
	return result, err
}

func (s *Service) ingest(ctx context.Context, req Request) (Result, error) {
	// 1. Validate before any side effect.
	if err := validateRequest(&req); err != nil {
		return Result{}, err
	}

	// 2. Resolve id.
	id := req.ID
	if id == "" {
		generated, err := s.newID()
		if err != nil {
			s.logger.Error("object id generation failed", "mission_id", req.MissionID, "error", err)
			return Result{}, fmt.Errorf("generate id: %w", err)
		}
		id = generated
	}

	// 3. Digest the exact bytes that will be stored.
	contentDigest := digest.Sum(req.Data)

	// 4. Write bytes to the hot tier.
	put, err := s.backend.Put(ctx, models.TierHot, req.MissionID, id, bytes.NewReader(req.Data))
	if err != nil {
		s.logger.Error("storage put failed", "id", id, "mission_id", req.MissionID, "error", err)
		return Result{}, Wrap(KindStorage, "store bytes", err)
	}
	if (put.SHA256 != "" && put.SHA256 != contentDigest) || put.SizeBytes != int64(len(req.Data)) {
		err := fmt.Errorf("stored bytes mismatch: digest %s size %d, expected %s size %d", put.SHA256, put.SizeBytes, contentDigest, len(req.Data))
		s.logger.Error("storage put verification failed", "id", id, "location", put.Location, "error", err)
		return Result{}, Wrap(KindStorage, "store bytes", err)
	}

	// 5. Build the record.
	now := s.now()
	rec := &models.ObjectRecord{
		ID:              id,
		LogicalName:     req.LogicalName,
		MissionID:       req.MissionID,
		Sensor:          req.Sensor,
		Platform:        req.Platform,
		Classification:  req.Classification,
		Tags:            req.Tags,
		ByteSize:        int64(len(req.Data)),
		ContentDigest:   contentDigest,
		StorageTier:     models.TierHot,
		StorageLocation: put.Location,
		CreatedAt:       now,
		UpdatedAt:       now,
		ObjectType:      req.ObjectType,
		ContentType:     req.ContentType,
		CaptureTime:     req.CaptureTime,
		PipelineRunID:   req.PipelineRunID,
	}

	// 6. Insert; the store's uniqueness constraint arbitrates id races. A
	// losing write has its own location, so the winner's bytes are intact.
	if err := s.objects.InsertObject(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateObject) {
			s.logger.Warn("object id conflict; new bytes left orphaned", "id", id, "mission_id", req.MissionID, "orphan_location", put.Location)
			return Result{}, Wrap(KindConflict, "insert object", err)
		}
		s.logger.Error("metadata insert failed; stored bytes left orphaned", "id", id, "orphan_location", put.Location, "error", err)
		return Result{}, Wrap(KindPersistence, "insert object", err)
	}

	// 7. Record CREATED. The object is committed, so a failure here is logged
	// and counted but not returned.
	event := &models.HistoryEvent{
		ObjectID: id,
		Kind:     models.EventCreated,
		Details: map[string]any{
			"source": req.Source,
			"sha256": contentDigest,
			"bytes":  rec.ByteSize,
		},
		At:    now,
		Actor: req.Actor,
	}
	if err := s.objects.AppendHistory(context.WithoutCancel(ctx), event); err != nil {
		s.metrics.IncHistoryAppendFailure()
		s.logger.Error("history append failed; object has no CREATED event", "id", id, "error", err)
	}

	// 8. Report.
	s.logger.Debug("object ingested", "id", id, "mission_id", req.MissionID, "bytes", rec.ByteSize, "sha256", contentDigest)
	return Result{
		ID:              id,
		ContentDigest:   contentDigest,
		StorageTier:     models.TierHot,
		StorageLocation: put.Location,
		ByteSize:        rec.ByteSize,
	}, nil
}

// validateRequest checks required input and applies field defaults.
func validateRequest(req *Request) error {
	req.MissionID = strings.TrimSpace(req.MissionID)
	if req.MissionID == "" {
		return Wrap(KindValidation, "", ErrMissionRequired)
	}
	if err := storage.ValidateSegment(req.MissionID); err != nil {
		return Validationf("invalid mission_id: %v", err)
	}
	if len(req.Data) == 0 {
		return Wrap(KindValidation, "", ErrEmptyBody)
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID != "" {
		if err := storage.ValidateSegment(req.ID); err != nil {
			return Validationf("invalid id: %v", err)
		}
	}

	if strings.TrimSpace(req.LogicalName) == "" {
		req.LogicalName = models.DefaultLogicalName
	}
	if strings.TrimSpace(req.Classification) == "" {
		req.Classification = models.DefaultClassification
	}
	if strings.TrimSpace(req.ContentType) == "" {
		req.ContentType = models.DefaultContentType
	}
	if req.Source == "" {
		req.Source = defaultSource
	}
	if req.Actor == "" {
		req.Actor = defaultActor
	}
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	switch KindOf(err) {
	case "":
		return metrics.ResultInternal
	case KindValidation:
		return metrics.ResultValidation
	case KindConflict:
		return metrics.ResultConflict
	case KindStorage:
		return metrics.ResultStorage
	default:
		return metrics.ResultMetadata
	}
}
