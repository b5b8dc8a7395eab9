package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/blobstore"
)

// PatientLookup resolves the patient a document belongs to.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Input is the create/update payload. PatientID is ignored on update.
type Input struct {
	PatientID    uuid.UUID `json:"patient_id"`
	Title        string    `json:"title"`
	DocumentType *string   `json:"document_type"`
	Content      string    `json:"content"`
}

type Service struct {
	repo        Repository
	patients    PatientLookup
	analyzer    Analyzer
	transcriber Transcriber
	blobs       blobstore.BlobStore
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, patients PatientLookup, analyzer Analyzer, transcriber Transcriber,
	blobs blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		patients:    patients,
		analyzer:    analyzer,
		transcriber: transcriber,
		blobs:       blobs,
		logger:      logger,
		now:         time.Now,
	}
}

func currentUser(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, fmt.Errorf("authenticated user required")
	}
	return id, nil
}

// authorize loads the document and checks the caller wrote it.
func (s *Service) authorize(ctx context.Context, id uuid.UUID) (*Document, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != uid {
		return nil, ErrForbidden
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Document, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if len(title) > 200 {
		return nil, fmt.Errorf("title must be at most 200 characters")
	}
	if _, err := s.patients.Get(ctx, in.PatientID); err != nil {
		return nil, err
	}

	d := &Document{
		PatientID:    in.PatientID,
		AuthorID:     uid,
		Title:        title,
		DocumentType: in.DocumentType,
		Content:      in.Content,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Document, error) {
	d, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	d.Title = title
	d.DocumentType = in.DocumentType
	d.Content = in.Content
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if d.AudioBlobID != nil {
		if err := s.blobs.Delete(ctx, *d.AudioBlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(err).Str("blob_id", *d.AudioBlobID).Msg("failed to remove document audio")
		}
	}
	return nil
}

// ListMine returns the caller's own documents, most recently edited first.
func (s *Service) ListMine(ctx context.Context, limit, offset int) ([]*Document, int, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListByAuthor(ctx, uid, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Document, int, error) {
	return s.repo.Filter(ctx, pred, limit, offset)
}

// Analyze fills the MEAT/TAMPER fields from the document text. On an LLM
// failure the document is left unchanged and ErrAnalysisFailed is returned.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(d.Text())
	if text == "" {
		return nil, ErrNoText
	}

	a, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Str("document_id", id.String()).Msg("document analysis failed")
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	now := s.now().UTC()
	d.Analysis = *a
	d.AnalyzedAt = &now
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AttachAudio stores a dictation for the document and transcribes it. The
// audio reference is saved even when transcription fails, in which case
// ErrAnalysisFailed is returned alongside the updated document.
func (s *Service) AttachAudio(ctx context.Context, id uuid.UUID, fileName string, audio io.Reader) (*Document, error) {
	d, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}
	contentType, err := blobstore.ValidateAudio(fileName)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(audio, blobstore.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) > blobstore.MaxFileSize {
		return nil, blobstore.ErrFileTooLarge
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		PatientID:   d.PatientID.String(),
		CreatedBy:   d.AuthorID.String(),
	}, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	previous := d.AudioBlobID
	d.AudioBlobID = &meta.ID
	text, terr := s.transcriber.Transcribe(ctx, fileName, bytes.NewReader(data))
	if terr == nil {
		d.Transcription = strings.TrimSpace(text)
	}
	if err := s.repo.Update(ctx, d); err != nil {
		if derr := s.blobs.Delete(ctx, meta.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("blob_id", meta.ID).Msg("failed to remove orphaned audio")
		}
		return nil, err
	}
	if previous != nil && *previous != meta.ID {
		if err := s.blobs.Delete(ctx, *previous); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(err).Str("blob_id", *previous).Msg("failed to remove replaced audio")
		}
	}
	if terr != nil {
		s.logger.Warn().Err(terr).Str("document_id", id.String()).Msg("transcription failed")
		return d, fmt.Errorf("%w: %v", ErrAnalysisFailed, terr)
	}
	return d, nil
}

// DocumentText returns the owning patient and the narrative of a document.
// Assessment extraction reads documents through it.
func (s *Service) DocumentText(ctx context.Context, id uuid.UUID) (uuid.UUID, string, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, "", err
	}
	return d.PatientID, d.Text(), nil
}
