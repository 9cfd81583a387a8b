package types

import "strings"

// Expansion values ------------------------------------------------------------------

// Pivot is an alternative direction for the idea.
type Pivot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Expansion is the structured strategic analysis derived from a seed.
// Treat it as a value: callers get clones, never the stored instance.
type Expansion struct {
	Title               string   `json:"title"`
	Tagline             string   `json:"tagline"`
	Description         string   `json:"description"`
	TargetAudience      []string `json:"targetAudience"`
	KeyFeatures         []string `json:"keyFeatures"`
	PotentialChallenges []string `json:"potentialChallenges"`
	PivotOptions        []Pivot  `json:"pivotOptions"`
}

// Clone copies the slices so the result shares no memory with e.
func (e Expansion) Clone() Expansion {
	out := e
	out.TargetAudience = append([]string(nil), e.TargetAudience...)
	out.KeyFeatures = append([]string(nil), e.KeyFeatures...)
	out.PotentialChallenges = append([]string(nil), e.PotentialChallenges...)
	out.PivotOptions = append([]Pivot(nil), e.PivotOptions...)
	return out
}

// Image artifacts -------------------------------------------------------------------

// ImageArtifact is the single string reference the presentation layer renders:
// a data URI for generated bytes, or FallbackImage.
type ImageArtifact string

// FallbackImage is returned whenever image generation does not yield bytes.
const FallbackImage ImageArtifact = "https://picsum.photos/800/600?grayscale&blur=2"

// IsFallback reports whether a is the placeholder image.
func (a ImageArtifact) IsFallback() bool { return a == FallbackImage }

func (a ImageArtifact) IsDataURI() bool { return strings.HasPrefix(string(a), "data:") }

func (a ImageArtifact) String() string { return string(a) }

// Application state -----------------------------------------------------------------

type Stage string

const (
	StageInput     Stage = "INPUT"
	StageExpanding Stage = "EXPANDING"
	StageComplete  Stage = "COMPLETE"
)

// State is one idea cycle as seen by the presentation layer.
// Empty Seed, nil Expansion, empty Image and empty Error mean "absent".
type State struct {
	Seed          string        `json:"seed"`
	Expansion     *Expansion    `json:"expansion"`
	Image         ImageArtifact `json:"image,omitempty"`
	Stage         Stage         `json:"stage"`
	Error         string        `json:"error,omitempty"`
	IsVisualizing bool          `json:"isVisualizing"`
}

// InitialState is the Input stage with every field absent.
func InitialState() State {
	return State{Stage: StageInput}
}

// Clone deep-copies the expansion so a snapshot can be handed out freely.
func (s State) Clone() State {
	out := s
	if s.Expansion != nil {
		exp := s.Expansion.Clone()
		out.Expansion = &exp
	}
	return out
}

