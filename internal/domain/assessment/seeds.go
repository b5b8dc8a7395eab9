package assessment

import (
	"context"
	"errors"
	"fmt"
)

func opt(value, text string, score float64) Option {
	return Option{Value: value, Text: text, Score: score}
}

const noAnswerText = "I choose not to answer this question"

func yesNo(yesScore float64) []Option {
	return []Option{opt("yes", "Yes", yesScore), opt("no", "No", 0), opt("no_answer", noAnswerText, 0)}
}

func strPtr(s string) *string { return &s }

func scale(order int, text, help string, options ...Option) *Question {
	return &Question{Order: order, Text: text, Type: QuestionScale, Required: true, HelpText: strPtr(help), Options: options}
}

func choice(order int, text, help string, options ...Option) *Question {
	return &Question{Order: order, Text: text, Type: QuestionMultipleChoice, Required: true, HelpText: strPtr(help), Options: options}
}

func freeForm(order int, kind, text, help string) *Question {
	return &Question{Order: order, Text: text, Type: kind, Required: true, HelpText: strPtr(help)}
}

// COWSTool is the Clinical Opiate Withdrawal Scale.
func COWSTool() *Tool {
	return &Tool{
		Name:        "Clinical Opiate Withdrawal Scale (COWS)",
		Description: strPtr("The Clinical Opiate Withdrawal Scale (COWS) is a clinical assessment tool used to measure the severity of opiate withdrawal symptoms."),
		Version:     "1.0",
		ToolType:    "COWS",
		Active:      true,
		ScoringRanges: []ScoreRange{
			{Min: 0, Max: 4, Severity: "Mild", Description: "Mild withdrawal"},
			{Min: 5, Max: 12, Severity: "Moderate", Description: "Moderate withdrawal"},
			{Min: 13, Max: 24, Severity: "Moderately severe", Description: "Moderately severe withdrawal"},
			{Min: 25, Max: 36, Severity: "Severe", Description: "Severe withdrawal"},
		},
		Questions: []*Question{
			scale(1, "Resting Pulse Rate (beats/minute)", "Measure after patient is sitting/lying for one minute",
				opt("0", "Pulse 80 or below", 0), opt("1", "Pulse 81-100", 1),
				opt("2", "Pulse 101-120", 2), opt("4", "Pulse greater than 120", 4)),
			scale(2, "Sweating", "Over past 30 minutes not accounted for by room temperature or patient activity",
				opt("0", "No report of chills or flushing", 0), opt("1", "Subjective report of chills or flushing", 1),
				opt("2", "Flushed or observable moistness on face", 2), opt("3", "Beads of sweat on brow or face", 3),
				opt("4", "Sweat streaming off face", 4)),
			scale(3, "Restlessness", "Observation during assessment",
				opt("0", "Able to sit still", 0), opt("1", "Reports difficulty sitting still, but is able to do so", 1),
				opt("3", "Frequent shifting or extraneous movements of legs/arms", 3),
				opt("5", "Unable to sit still for more than a few seconds", 5)),
			scale(4, "Pupil size", "Observe in normal room light",
				opt("0", "Pupils pinned or normal size for room light", 0),
				opt("1", "Pupils possibly larger than normal for room light", 1),
				opt("2", "Pupils moderately dilated", 2),
				opt("5", "Pupils so dilated that only rim of iris is visible", 5)),
			scale(5, "Bone or Joint aches", "If patient was having pain previously, only the additional component attributed to opiates withdrawal is scored",
				opt("0", "Not present", 0), opt("1", "Mild diffuse discomfort", 1),
				opt("2", "Patient reports severe diffuse aching of joints/muscles", 2),
				opt("4", "Patient is rubbing joints or muscles and is unable to sit still because of discomfort", 4)),
			scale(6, "Runny nose or tearing", "Not accounted for by cold symptoms or allergies",
				opt("0", "Not present", 0), opt("1", "Nasal stuffiness or unusually moist eyes", 1),
				opt("2", "Nose running or tearing", 2), opt("4", "Nose constantly running or tears streaming down cheeks", 4)),
			scale(7, "GI Upset", "Over last 30 minutes",
				opt("0", "No GI symptoms", 0), opt("1", "Stomach cramps", 1), opt("2", "Nausea or loose stool", 2),
				opt("3", "Vomiting or diarrhea", 3), opt("5", "Multiple episodes of vomiting or diarrhea", 5)),
			scale(8, "Tremor", "Observation of outstretched hands",
				opt("0", "No tremor", 0), opt("1", "Tremor can be felt, but not observed", 1),
				opt("2", "Slight tremor observable", 2), opt("4", "Gross tremor or muscle twitching", 4)),
			scale(9, "Yawning", "Observation during assessment",
				opt("0", "No yawning", 0), opt("1", "Yawning once or twice during assessment", 1),
				opt("2", "Yawning three or more times during assessment", 2), opt("4", "Yawning several times/minute", 4)),
			scale(10, "Anxiety or Irritability", "Observation during assessment",
				opt("0", "None", 0), opt("1", "Patient reports increasing irritability or anxiousness", 1),
				opt("2", "Patient obviously irritable or anxious", 2),
				opt("4", "Patient so irritable or anxious that participation in the assessment is difficult", 4)),
			scale(11, "Gooseflesh skin", "Can be felt or observed in a room of adequate temperature",
				opt("0", "Skin is smooth", 0),
				opt("3", "Piloerrection of skin can be felt or hairs standing up on arms", 3),
				opt("5", "Prominent piloerrection", 5)),
		},
	}
}

// PRAPARETool is the social determinants of health screener. Options scored
// 1 (or 0.5 for part-time work) flag a risk.
func PRAPARETool() *Tool {
	return &Tool{
		Name:        "PRAPARE Assessment",
		Description: strPtr("Protocol for Responding to and Assessing Patient Assets, Risks, and Experiences"),
		Version:     "September 2, 2016",
		ToolType:    "PRAPARE",
		Active:      true,
		Questions: []*Question{
			choice(1, "Are you Hispanic or Latino?", "Please select one option", yesNo(0)...),
			choice(2, "Which race(s) are you? Check all that apply", "You may select multiple options",
				opt("asian", "Asian", 0), opt("pacific_islander", "Pacific Islander", 0), opt("white", "White", 0),
				opt("black", "Black/African American", 0), opt("native", "American Indian/Alaskan Native", 0),
				opt("other", "Other (please write)", 0), opt("no_answer", noAnswerText, 0)),
			choice(3, "At any point in the past 2 years, has season or migrant farm work been your or your family's main source of income?",
				"This helps us understand your work situation", yesNo(1)...),
			choice(4, "Have you been discharged from the armed forces of the United States?",
				"This information helps us connect you with veteran services if applicable", yesNo(1)...),
			freeForm(5, QuestionText, "What language are you most comfortable speaking?", "Please specify your preferred language"),
			freeForm(6, QuestionNumber, "How many family members, including yourself, do you currently live with?",
				"Enter the total number of family members in your household"),
			choice(7, "What is your housing situation today?", "Select the option that best describes your current housing situation",
				opt("have_housing", "I have housing", 0),
				opt("no_housing", "I do not have housing (staying with others, in a hotel, in a shelter, living outside on the street, on a beach, in a car, or in a park)", 1),
				opt("no_answer", noAnswerText, 0)),
			choice(8, "Are you worried about losing your housing?", "This helps us understand your housing security concerns", yesNo(1)...),
			freeForm(9, QuestionText, "What address do you live at?",
				"Please provide your full address including Street, City, State, and Zip code"),
			choice(10, "What is the highest level of school that you have finished?", "Select your highest completed education level",
				opt("less_than_high_school", "Less than high school degree", 1), opt("high_school", "High school diploma or GED", 0),
				opt("more_than_high_school", "More than high school", 0), opt("no_answer", noAnswerText, 0)),
			choice(11, "What is your current work situation?", "Select the option that best describes your current employment status",
				opt("unemployed", "Unemployed", 1), opt("part_time", "Part-time or temporary work", 0.5),
				opt("full_time", "Full-time work", 0),
				opt("otherwise_unemployed", "Otherwise unemployed but not seeking work (ex: student, retired, disabled, unpaid primary care giver)", 0),
				opt("no_answer", noAnswerText, 0)),
			choice(12, "What is your main insurance?", "Select your primary insurance coverage",
				opt("none", "None/uninsured", 1), opt("medicaid", "Medicaid", 0), opt("chip", "CHIP Medicaid", 0),
				opt("medicare", "Medicare", 0), opt("other_public", "Other public insurance (not CHIP)", 0),
				opt("private", "Private Insurance", 0), opt("no_answer", noAnswerText, 0)),
			choice(13, "During the past year, what was the total combined income for you and the family members you live with? This information will help us determine if you are eligible for any benefits.",
				"This information is used to determine eligibility for various assistance programs",
				opt("below_poverty", "Below federal poverty level", 1), opt("above_poverty", "Above federal poverty level", 0),
				opt("no_answer", noAnswerText, 0)),
		},
	}
}

// SeedTools inserts the built-in tools that are not present yet, matching
// on name and version. It returns how many were created.
func (s *Service) SeedTools(ctx context.Context) (int, error) {
	created := 0
	for _, t := range []*Tool{COWSTool(), PRAPARETool()} {
		_, err := s.tools.FindByNameVersion(ctx, t.Name, t.Version)
		if err == nil {
			s.logger.Info().Str("tool", t.Name).Str("version", t.Version).Msg("assessment tool already present")
			continue
		}
		if !errors.Is(err, ErrToolNotFound) {
			return created, err
		}
		tool := t
		if err := s.tx.InTx(ctx, func(ctx context.Context) error { return s.tools.Create(ctx, tool) }); err != nil {
			return created, fmt.Errorf("seed %s: %w", t.Name, err)
		}
		s.logger.Info().Str("tool", t.Name).Int("questions", len(t.Questions)).Msg("assessment tool seeded")
		created++
	}
	return created, nil
}
