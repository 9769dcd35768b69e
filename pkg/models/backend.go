package models

// BackendID identifies one of the facial-analysis backends that contribute results to a batch
type BackendID string

const (
	// BackendFER is the primary emotion classifier
	BackendFER BackendID = "fer"
	// BackendDeepFace is the secondary emotion classifier
	BackendDeepFace BackendID = "deepface"
	// BackendFACS is the Action Unit (muscle) analyzer
	BackendFACS BackendID = "facs"
	// BackendFACSDelta is the Action Unit analyzer in baseline-delta mode
	BackendFACSDelta BackendID = "facs_delta"
)

// BackendKind describes the payload shape a backend produces
type BackendKind string

const (
	KindEmotion     BackendKind = "emotion"
	KindMuscle      BackendKind = "muscle"
	KindMuscleDelta BackendKind = "muscle_delta"
)

// AllBackends lists every known backend in canonical order.
// Canonical order breaks ties when several backends first appear on the same image.
var AllBackends = []BackendID{BackendFER, BackendDeepFace, BackendFACS, BackendFACSDelta}

var backendKinds = map[BackendID]BackendKind{
	BackendFER:       KindEmotion,
	BackendDeepFace:  KindEmotion,
	BackendFACS:      KindMuscle,
	BackendFACSDelta: KindMuscleDelta,
}

var backendDisplayNames = map[BackendID]string{
	BackendFER:       "FER",
	BackendDeepFace:  "DeepFace",
	BackendFACS:      "FACS",
	BackendFACSDelta: "FACS Delta",
}

// Kind returns the payload kind produced by the backend
func (b BackendID) Kind() BackendKind {
	return backendKinds[b]
}

// IsKnown reports whether b belongs to the fixed backend set
func (b BackendID) IsKnown() bool {
	_, ok := backendKinds[b]
	return ok
}

// IsEmotion reports whether the backend produces emotion scores
func (b BackendID) IsEmotion() bool {
	return b.Kind() == KindEmotion
}

// DisplayName returns the label used for column headers and reports
func (b BackendID) DisplayName() string {
	if name, ok := backendDisplayNames[b]; ok {
		return name
	}
	return string(b)
}

// Ordinal returns the position of b in AllBackends, or len(AllBackends) when unknown
func (b BackendID) Ordinal() int {
	for i, known := range AllBackends {
		if known == b {
			return i
		}
	}
	return len(AllBackends)
}

// ParseBackendID converts a string into a known BackendID
func ParseBackendID(s string) (BackendID, bool) {
	id := BackendID(s)
	return id, id.IsKnown()
}

// AnalysisMode is set by the producing side and tells whether comparison logic applies
type AnalysisMode string

const (
	ModeSingle AnalysisMode = "single"
	ModeMulti  AnalysisMode = "multi"
)

// IsValid reports whether the mode is one of the defined values
func (m AnalysisMode) IsValid() bool {
	return m == ModeSingle || m == ModeMulti
}
