package models

// CopySquad is a cluster of copywriting personas sharing a philosophy.
type CopySquad string

const (
	SquadScientists   CopySquad = "scientists"
	SquadStorytellers CopySquad = "storytellers"
	SquadDisruptors   CopySquad = "disruptors"
)

// CopySquads lists every squad in scoring order.
var CopySquads = []CopySquad{SquadScientists, SquadStorytellers, SquadDisruptors}

// VisualSquad is the art-direction counterpart of a copy squad.
type VisualSquad string

const (
	VisualSquadMinimalists      VisualSquad = "the_minimalists"
	VisualSquadCinematographers VisualSquad = "the_cinematographers"
	VisualSquadProvocateurs     VisualSquad = "the_provocateurs"
)

// AwarenessStage is the funnel position of the target reader.
type AwarenessStage string

const (
	StageUnaware       AwarenessStage = "unaware"
	StageProblemAware  AwarenessStage = "problem_aware"
	StageSolutionAware AwarenessStage = "solution_aware"
	StageProductAware  AwarenessStage = "product_aware"
	StageMostAware     AwarenessStage = "most_aware"
)

// AwarenessStages lists the stages in funnel order.
var AwarenessStages = []AwarenessStage{
	StageUnaware, StageProblemAware, StageSolutionAware, StageProductAware, StageMostAware,
}

// RoutingReason records which routing rule decided the squad.
type RoutingReason string

const (
	RoutedByOverride    RoutingReason = "override"
	RoutedByContentType RoutingReason = "content_type"
	RoutedByKeywords    RoutingReason = "keywords"
	RoutedByDefault     RoutingReason = "default"
)

// RoutingStrategy is computed per generation request and never persisted;
// only the squad and stage names are recorded on the generation.
type RoutingStrategy struct {
	CopySquad         CopySquad      `json:"copy_squad"`
	VisualSquad       VisualSquad    `json:"visual_squad"`
	PrimaryMaster     string         `json:"primary_master"`
	SecondaryMaster   string         `json:"secondary_master,omitempty"`
	AwarenessStage    AwarenessStage `json:"awareness_stage"`
	ForbiddenLanguage []string       `json:"forbidden_language"`
	Reason            RoutingReason  `json:"reason"`
}

// MasterNames returns the primary master followed by the secondary, if any.
func (s RoutingStrategy) MasterNames() []string {
	names := []string{s.PrimaryMaster}
	if s.SecondaryMaster != "" {
		names = append(names, s.SecondaryMaster)
	}
	return names
}
