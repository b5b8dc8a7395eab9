package document

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrForbidden is returned when someone other than the author edits.
	ErrForbidden = errors.New("only the author may modify this document")
	// ErrAnalysisFailed wraps LLM failures during analysis or transcription.
	ErrAnalysisFailed = errors.New("document analysis failed")
	ErrNoText         = errors.New("document has no content or transcription to analyze")
)

// Analysis holds the MEAT (Monitor, Evaluate, Assess, Treat) and TAMPER
// (Time, Action, Medical necessity, Plan, Education, Response) extraction.
type Analysis struct {
	MeatMonitor            string `db:"meat_monitor" json:"meat_monitor"`
	MeatEvaluate           string `db:"meat_evaluate" json:"meat_evaluate"`
	MeatAssess             string `db:"meat_assess" json:"meat_assess"`
	MeatTreat              string `db:"meat_treat" json:"meat_treat"`
	TamperTime             string `db:"tamper_time" json:"tamper_time"`
	TamperAction           string `db:"tamper_action" json:"tamper_action"`
	TamperMedicalNecessity string `db:"tamper_medical_necessity" json:"tamper_medical_necessity"`
	TamperPlan             string `db:"tamper_plan" json:"tamper_plan"`
	TamperEducation        string `db:"tamper_education" json:"tamper_education"`
	TamperResponse         string `db:"tamper_response" json:"tamper_response"`
}

// Document maps to the document table.
type Document struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AuthorID      uuid.UUID  `db:"author_id" json:"author_id"`
	Title         string     `db:"title" json:"title"`
	DocumentType  *string    `db:"document_type" json:"document_type,omitempty"`
	Content       string     `db:"content" json:"content"`
	Transcription string     `db:"transcription" json:"transcription"`
	AudioBlobID   *string    `db:"audio_blob_id" json:"audio_blob_id,omitempty"`
	Analysis      Analysis   `json:"analysis"`
	AnalyzedAt    *time.Time `db:"analyzed_at" json:"analyzed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Text is the best available narrative: the transcription when present,
// otherwise the typed content.
func (d *Document) Text() string {
	if d.Transcription != "" {
		return d.Transcription
	}
	return d.Content
}

// Values exposes the document's searchable attributes to htql.Match.
func (d *Document) Values(kind htql.Kind, attr string) []string {
	if kind != htql.KindDocument {
		return nil
	}
	switch attr {
	case "title":
		return []string{d.Title}
	case "content":
		return []string{d.Content}
	case "transcription":
		return []string{d.Transcription}
	}
	return nil
}
