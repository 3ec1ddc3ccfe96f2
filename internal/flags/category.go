package flags

import "strings"

// Polarity says whether a flag is concerning (red) or positive (green).
type Polarity string

const (
	PolarityRed   Polarity = "red"
	PolarityGreen Polarity = "green"
)

// Severity is the four-level flag rating.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates s case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, true
	default:
		return "", false
	}
}

// Category is the closed set of behaviours a flag can describe.
type Category string

// Red categories.
const (
	CategoryLoveBombing         Category = "love_bombing"
	CategoryFinancialAsk        Category = "financial_ask"
	CategoryOffPlatformPush     Category = "off_platform_push"
	CategoryPressureUrgency     Category = "pressure_urgency"
	CategoryGuiltTripping       Category = "guilt_tripping"
	CategoryGaslighting         Category = "gaslighting"
	CategoryInconsistentStory   Category = "inconsistent_story"
	CategoryAvoidsVideoCall     Category = "avoids_video_call"
	CategoryExcessiveFlattery   Category = "excessive_flattery"
	CategoryIsolationAttempt    Category = "isolation_attempt"
	CategoryBoundaryViolation   Category = "boundary_violation"
	CategoryStalkingBehavior    Category = "stalking_behavior"
	CategoryThreats             Category = "threats"
	CategorySexualPressure      Category = "sexual_pressure"
	CategoryPersonalInfoProbing Category = "personal_info_probing"
	CategorySobStory            Category = "sob_story"
	CategoryFutureFaking        Category = "future_faking"
	CategoryJealousyControl     Category = "jealousy_control"
	CategoryIdentityEvasion     Category = "identity_evasion"
)

// Green categories.
const (
	CategoryAsksReciprocalQuestions Category = "asks_reciprocal_questions"
	CategoryRespectsBoundaries      Category = "respects_boundaries"
	CategoryConsistentStory         Category = "consistent_story"
	CategorySharesVerifiableInfo    Category = "shares_verifiable_info"
	CategoryOffersVideoCall         Category = "offers_video_call"
	CategoryPatientPacing           Category = "patient_pacing"
	CategorySharesPersonalInfo      Category = "shares_personal_info"
)

// CategoryUnknown holds any label outside the known set.
const CategoryUnknown Category = "unknown"

var defaultPolarity = map[Category]Polarity{
	CategoryLoveBombing:         PolarityRed,
	CategoryFinancialAsk:        PolarityRed,
	CategoryOffPlatformPush:     PolarityRed,
	CategoryPressureUrgency:     PolarityRed,
	CategoryGuiltTripping:       PolarityRed,
	CategoryGaslighting:         PolarityRed,
	CategoryInconsistentStory:   PolarityRed,
	CategoryAvoidsVideoCall:     PolarityRed,
	CategoryExcessiveFlattery:   PolarityRed,
	CategoryIsolationAttempt:    PolarityRed,
	CategoryBoundaryViolation:   PolarityRed,
	CategoryStalkingBehavior:    PolarityRed,
	CategoryThreats:             PolarityRed,
	CategorySexualPressure:      PolarityRed,
	CategoryPersonalInfoProbing: PolarityRed,
	CategorySobStory:            PolarityRed,
	CategoryFutureFaking:        PolarityRed,
	CategoryJealousyControl:     PolarityRed,
	CategoryIdentityEvasion:     PolarityRed,

	CategoryAsksReciprocalQuestions: PolarityGreen,
	CategoryRespectsBoundaries:      PolarityGreen,
	CategoryConsistentStory:         PolarityGreen,
	CategorySharesVerifiableInfo:    PolarityGreen,
	CategoryOffersVideoCall:         PolarityGreen,
	CategoryPatientPacing:           PolarityGreen,
	CategorySharesPersonalInfo:      PolarityGreen,
}

// ParseCategory maps a label to a Category. Labels outside the known set
// become CategoryUnknown; the category is never an arbitrary string.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultPolarity[c]; ok {
		return c
	}
	return CategoryUnknown
}

// Known reports whether c is part of the closed set.
func (c Category) Known() bool {
	_, ok := defaultPolarity[c]
	return ok
}

// DefaultPolarity returns the polarity the category implies. Unknown is red.
func (c Category) DefaultPolarity() Polarity {
	if p, ok := defaultPolarity[c]; ok {
		return p
	}
	return PolarityRed
}

// KnownCategories returns every known category, red first, in declaration order.
func KnownCategories() []Category {
	return []Category{
		CategoryLoveBombing, CategoryFinancialAsk, CategoryOffPlatformPush,
		CategoryPressureUrgency, CategoryGuiltTripping, CategoryGaslighting,
		CategoryInconsistentStory, CategoryAvoidsVideoCall, CategoryExcessiveFlattery,
		CategoryIsolationAttempt, CategoryBoundaryViolation, CategoryStalkingBehavior,
		CategoryThreats, CategorySexualPressure, CategoryPersonalInfoProbing,
		CategorySobStory, CategoryFutureFaking, CategoryJealousyControl,
		CategoryIdentityEvasion,
		CategoryAsksReciprocalQuestions, CategoryRespectsBoundaries,
		CategoryConsistentStory, CategorySharesVerifiableInfo,
		CategoryOffersVideoCall, CategoryPatientPacing, CategorySharesPersonalInfo,
	}
}
