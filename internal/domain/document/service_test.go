package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/blobstore"
)

type mockRepo struct {
	store      map[uuid.UUID]*Document
	order      []uuid.UUID
	updates    int
	failUpdate error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Document)}
}

func (m *mockRepo) Create(_ context.Context, d *Document) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.store[d.ID] = &cp
	m.order = append(m.order, d.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, d *Document) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	if _, ok := m.store[d.ID]; !ok {
		return ErrNotFound
	}
	m.updates++
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) all() []*Document {
	var out []*Document
	for _, id := range m.order {
		if d, ok := m.store[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (m *mockRepo) ListByAuthor(_ context.Context, authorID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var out []*Document
	for _, d := range m.all() {
		if d.AuthorID == authorID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var out []*Document
	for _, d := range m.all() {
		if d.PatientID == patientID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Filter(_ context.Context, pred htql.Predicate, limit, offset int) ([]*Document, int, error) {
	out := htql.Filter(pred, m.all())
	return out, len(out), nil
}

type fakePatients map[uuid.UUID]*patient.Patient

func (f fakePatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	audio []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	b, _ := io.ReadAll(audio)
	f.audio = b
	return f.text, f.err
}

type fixture struct {
	svc         *Service
	repo        *mockRepo
	llm         *fakeCompleter
	transcriber *fakeTranscriber
	blobs       *blobstore.InMemoryBlobStore
	patientID   uuid.UUID
	author      context.Context
	other       context.Context
}

func newFixture() *fixture {
	pid := uuid.New()
	f := &fixture{
		repo:        newMockRepo(),
		llm:         &fakeCompleter{reply: `{"meat_monitor":"weight","meat_treat":"metformin"}`},
		transcriber: &fakeTranscriber{text: " Patient reports improved sleep. "},
		blobs:       blobstore.NewInMemoryBlobStore(),
		patientID:   pid,
		author:      auth.WithIdentity(context.Background(), uuid.New().String(), "author", auth.RoleProvider),
		other:       auth.WithIdentity(context.Background(), uuid.New().String(), "other", auth.RoleProvider),
	}
	patients := fakePatients{pid: {ID: pid, Identifier: "MRN-1", FamilyName: "Doe", GivenName: "Jane"}}
	f.svc = NewService(f.repo, patients, NewLLMAnalyzer(f.llm), f.transcriber, f.blobs, zerolog.Nop())
	return f
}

func (f *fixture) create(t *testing.T, content string) *Document {
	t.Helper()
	d, err := f.svc.Create(f.author, Input{PatientID: f.patientID, Title: "Progress note", Content: content})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestCreate(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Follow-up visit")
	if d.AuthorID.String() != auth.UserIDFromContext(f.author) {
		t.Errorf("author = %s", d.AuthorID)
	}
	if d.PatientID != f.patientID {
		t.Errorf("patient = %s", d.PatientID)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		ctx  context.Context
		in   Input
		want error
	}{
		{"no identity", context.Background(), Input{PatientID: f.patientID, Title: "x"}, nil},
		{"missing patient id", f.author, Input{Title: "x"}, nil},
		{"blank title", f.author, Input{PatientID: f.patientID, Title: "  "}, nil},
		{"long title", f.author, Input{PatientID: f.patientID, Title: strings.Repeat("t", 201)}, nil},
		{"unknown patient", f.author, Input{PatientID: uuid.New(), Title: "x"}, patient.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(tt.ctx, tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateDelete_AuthorOnly(t *testing.T) {
	f := newFixture()
	d := f.create(t, "original")

	if _, err := f.svc.Update(f.other, d.ID, Input{Title: "hijack"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if err := f.svc.Delete(f.other, d.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	updated, err := f.svc.Update(f.author, d.ID, Input{Title: "Revised", Content: "amended"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Revised" || updated.Content != "amended" {
		t.Errorf("updated = %+v", updated)
	}
	if err := f.svc.Delete(f.author, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Get(f.author, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListMine(t *testing.T) {
	f := newFixture()
	f.create(t, "one")
	f.create(t, "two")
	if _, err := f.svc.Create(f.other, Input{PatientID: f.patientID, Title: "theirs"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mine, total, err := f.svc.ListMine(f.author, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("expected 2 own documents, got %d", total)
	}
	all, total, err := f.svc.ListByPatient(f.other, f.patientID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("expected 3 patient documents, got %d", total)
	}
}

func TestFilter(t *testing.T) {
	f := newFixture()
	f.create(t, "Patient reports chest pain")
	f.create(t, "Routine visit")

	out, total, err := f.svc.Filter(f.author, htql.Parse("document.content:chest"), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || out[0].Content != "Patient reports chest pain" {
		t.Errorf("filter result = %+v", out)
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Weight monitored. Continue metformin.")

	got, err := f.svc.Analyze(f.author, d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Analysis.MeatMonitor != "weight" || got.Analysis.MeatTreat != "metformin" {
		t.Errorf("analysis = %+v", got.Analysis)
	}
	if got.AnalyzedAt == nil {
		t.Error("expected analyzed_at to be set")
	}
	stored, _ := f.repo.GetByID(context.Background(), d.ID)
	if stored.Analysis.MeatTreat != "metformin" {
		t.Errorf("analysis not persisted: %+v", stored.Analysis)
	}
}

func TestAnalyze_PrefersTranscription(t *testing.T) {
	f := newFixture()
	d := f.create(t, "typed")
	stored := f.repo.store[d.ID]
	stored.Transcription = "dictated"

	if _, err := f.svc.Analyze(f.author, d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(f.llm.prompt, "dictated") || strings.Contains(f.llm.prompt, "typed") {
		t.Errorf("prompt should carry the transcription: %q", f.llm.prompt)
	}
}

func TestAnalyze_NoText(t *testing.T) {
	f := newFixture()
	d := f.create(t, "   ")
	if _, err := f.svc.Analyze(f.author, d.ID); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if f.llm.calls != 0 {
		t.Errorf("LLM should not be called, got %d calls", f.llm.calls)
	}
}

func TestAnalyze_LLMFailureLeavesDocument(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Some narrative")
	f.llm.err = errors.New("upstream timeout")

	if _, err := f.svc.Analyze(f.author, d.ID); !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if f.repo.updates != 0 {
		t.Errorf("document should not be updated, got %d updates", f.repo.updates)
	}
	stored, _ := f.repo.GetByID(context.Background(), d.ID)
	if stored.AnalyzedAt != nil {
		t.Error("analyzed_at should stay unset")
	}
}

func TestAnalyze_NotAuthor(t *testing.T) {
	f := newFixture()
	d := f.create(t, "text")
	if _, err := f.svc.Analyze(f.other, d.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAttachAudio(t *testing.T) {
	f := newFixture()
	d := f.create(t, "")
	audio := []byte("RIFF....WAVEfmt ")

	got, err := f.svc.AttachAudio(f.author, d.ID, "visit.wav", bytes.NewReader(audio))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Transcription != "Patient reports improved sleep." {
		t.Errorf("transcription = %q", got.Transcription)
	}
	if got.AudioBlobID == nil {
		t.Fatal("expected audio blob id")
	}
	if !bytes.Equal(f.transcriber.audio, audio) {
		t.Errorf("transcriber received %d bytes, want %d", len(f.transcriber.audio), len(audio))
	}
	rc, meta, err := f.blobs.Download(context.Background(), *got.AudioBlobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	if meta.ContentType != "audio/wav" {
		t.Errorf("content type = %q", meta.ContentType)
	}
}

func TestAttachAudio_ReplacesPreviousBlob(t *testing.T) {
	f := newFixture()
	d := f.create(t, "")
	first, err := f.svc.AttachAudio(f.author, d.ID, "a.mp3", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oldID := *first.AudioBlobID
	if _, err := f.svc.AttachAudio(f.author, d.ID, "b.mp3", strings.NewReader("two")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := f.blobs.Download(context.Background(), oldID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("expected previous blob to be removed, got %v", err)
	}
}

func TestAttachAudio_UpdateFailureRemovesBlob(t *testing.T) {
	f := newFixture()
	d := f.create(t, "")
	first, err := f.svc.AttachAudio(f.author, d.ID, "a.mp3", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("connection reset")
	f.repo.failUpdate = boom
	if _, err := f.svc.AttachAudio(f.author, d.ID, "b.mp3", strings.NewReader("two")); !errors.Is(err, boom) {
		t.Fatalf("expected update error, got %v", err)
	}
	if n := f.blobs.Len(); n != 1 {
		t.Errorf("expected only the original blob to remain, got %d", n)
	}
	if _, _, err := f.blobs.Download(context.Background(), *first.AudioBlobID); err != nil {
		t.Errorf("original audio should survive: %v", err)
	}
}

func TestAttachAudio_InvalidType(t *testing.T) {
	f := newFixture()
	d := f.create(t, "")
	_, err := f.svc.AttachAudio(f.author, d.ID, "notes.pdf", strings.NewReader("pdf"))
	if !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Fatalf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestAttachAudio_TranscriptionFailureKeepsBlob(t *testing.T) {
	f := newFixture()
	d := f.create(t, "")
	f.transcriber.err = errors.New("whisper unavailable")

	got, err := f.svc.AttachAudio(f.author, d.ID, "visit.ogg", strings.NewReader("audio"))
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if got == nil || got.AudioBlobID == nil {
		t.Fatal("expected audio reference to be saved")
	}
	stored, _ := f.repo.GetByID(context.Background(), d.ID)
	if stored.AudioBlobID == nil || stored.Transcription != "" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestDocumentText(t *testing.T) {
	f := newFixture()
	d := f.create(t, "narrative")
	pid, text, err := f.svc.DocumentText(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pid != f.patientID || text != "narrative" {
		t.Errorf("got (%s, %q)", pid, text)
	}
	if _, _, err := f.svc.DocumentText(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// -- handler --

func newRequest(ctx context.Context, method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(ctx)
}

func TestHandler_CreateAndGet(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"patient_id":"` + f.patientID.String() + `","title":"Intake","content":"New patient"}`
	req := newRequest(f.author, http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created Document
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = newRequest(f.author, http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"title":"Intake"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_ErrorCodes(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	d := f.create(t, "text")

	tests := []struct {
		name    string
		ctx     context.Context
		id      string
		setup   func()
		handler func(echo.Context) error
		want    int
	}{
		{"bad id", f.author, "nope", nil, h.Get, http.StatusBadRequest},
		{"missing", f.author, uuid.New().String(), nil, h.Get, http.StatusNotFound},
		{"not author", f.other, d.ID.String(), nil, h.Delete, http.StatusForbidden},
		{"llm failure", f.author, d.ID.String(), func() { f.llm.err = errors.New("down") }, h.Analyze, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(newRequest(tt.ctx, http.MethodPost, "/", nil), rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			err := tt.handler(c)
			he, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}

func multipartAudio(t *testing.T, field, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandler_UploadAudio(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	d := f.create(t, "")

	body, ct := multipartAudio(t, AudioField, "dictation.ogg", []byte("ogg-bytes"))
	req := newRequest(f.author, http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.UploadAudio(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "improved sleep") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_UploadAudio_BadRequests(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	d := f.create(t, "")

	tests := []struct {
		name     string
		field    string
		fileName string
	}{
		{"wrong field", "file", "a.wav"},
		{"wrong type", AudioField, "a.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartAudio(t, tt.field, tt.fileName, []byte("x"))
			req := newRequest(f.author, http.MethodPost, "/", body)
			req.Header.Set(echo.HeaderContentType, ct)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(d.ID.String())
			err := h.UploadAudio(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}
