package terminology

import (
	"strings"
	"time"
)

// SystemICD10 is the default code system for conditions.
const SystemICD10 = "ICD-10"

// CodeEntry is a persisted terminology row in the code_entry table.
type CodeEntry struct {
	Code       string    `db:"code" json:"code"`
	CodeSystem string    `db:"code_system" json:"code_system"`
	Display    string    `db:"display" json:"display"`
	Category   string    `db:"category" json:"category,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Suggestion is one ranked code returned to the condition form.
type Suggestion struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	System      string `json:"system"`
}

// CategoryOf returns the part of an ICD-10 code before the dot.
func CategoryOf(code string) string {
	if i := strings.IndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return code
}

// staticICD10 is the built-in code table consulted alongside persisted rows
// and imported by "seed icd10".
var staticICD10 = []Suggestion{
	{Code: "E11", Description: "Type 2 diabetes mellitus"},
	{Code: "E11.0", Description: "Type 2 diabetes with hyperosmolarity"},
	{Code: "E11.1", Description: "Type 2 diabetes with ketoacidosis"},
	{Code: "E11.2", Description: "Type 2 diabetes with kidney complications"},
	{Code: "E11.21", Description: "Type 2 diabetes with diabetic nephropathy"},
	{Code: "E11.22", Description: "Type 2 diabetes with diabetic chronic kidney disease"},
	{Code: "E11.3", Description: "Type 2 diabetes with ophthalmic complications"},
	{Code: "E11.31", Description: "Type 2 diabetes with background retinopathy"},
	{Code: "E11.32", Description: "Type 2 diabetes with proliferative retinopathy"},
	{Code: "E11.4", Description: "Type 2 diabetes with neurological complications"},
	{Code: "I10", Description: "Essential (primary) hypertension"},
	{Code: "I11", Description: "Hypertensive heart disease"},
	{Code: "I11.0", Description: "Hypertensive heart disease with heart failure"},
	{Code: "I11.9", Description: "Hypertensive heart disease without heart failure"},
	{Code: "J45", Description: "Asthma"},
	{Code: "J45.0", Description: "Predominantly allergic asthma"},
	{Code: "J45.1", Description: "Nonallergic asthma"},
	{Code: "J45.2", Description: "Mixed asthma"},
	{Code: "F32", Description: "Major depressive disorder, single episode"},
	{Code: "F41", Description: "Other anxiety disorders"},
	{Code: "F41.0", Description: "Panic disorder without agoraphobia"},
	{Code: "F41.1", Description: "Generalized anxiety disorder"},
}

// StaticICD10 returns a copy of the built-in table as code entries.
func StaticICD10() []*CodeEntry {
	out := make([]*CodeEntry, 0, len(staticICD10))
	for _, s := range staticICD10 {
		out = append(out, &CodeEntry{
			Code:       s.Code,
			CodeSystem: SystemICD10,
			Display:    s.Description,
			Category:   CategoryOf(s.Code),
		})
	}
	return out
}
