package pipeline

import (
	"encoding/json"
	"fmt"

	"skill-match/internal/domain"
	"skill-match/internal/repository"

	"github.com/google/uuid"
)

// NotifyChannel is the Postgres channel the change triggers publish on.
const NotifyChannel = "recommendation_events"

type EventKind string

const (
	EventJobChanged       EventKind = "job"
	EventCandidateChanged EventKind = "candidate"
	EventTestCompleted    EventKind = "test"
	EventFullRecompute    EventKind = "full"
	EventRetrainClusters  EventKind = "retrain"
)

type Event struct {
	Kind        EventKind `json:"kind"`
	JobID       uuid.UUID `json:"job_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	SkillID     uuid.UUID `json:"skill_id"`
	Force       bool      `json:"force"`

	// Run, when set, is the recompute run row the batch reports into.
	Run *repository.RecomputeRun `json:"-"`
}

func JobChanged(id uuid.UUID) Event       { return Event{Kind: EventJobChanged, JobID: id} }
func CandidateChanged(id uuid.UUID) Event { return Event{Kind: EventCandidateChanged, CandidateID: id} }
func FullRecompute() Event                { return Event{Kind: EventFullRecompute} }
func RetrainClusters(force bool) Event    { return Event{Kind: EventRetrainClusters, Force: force} }

func TestCompleted(candidateID, skillID uuid.UUID) Event {
	return Event{Kind: EventTestCompleted, CandidateID: candidateID, SkillID: skillID}
}

func (e Event) Validate() error {
	switch e.Kind {
	case EventJobChanged:
		if e.JobID == uuid.Nil {
			return fmt.Errorf("%w: job event without job_id", domain.ErrValidation)
		}
	case EventCandidateChanged:
		if e.CandidateID == uuid.Nil {
			return fmt.Errorf("%w: candidate event without candidate_id", domain.ErrValidation)
		}
	case EventTestCompleted:
		if e.CandidateID == uuid.Nil || e.SkillID == uuid.Nil {
			return fmt.Errorf("%w: test event needs candidate_id and skill_id", domain.ErrValidation)
		}
	case EventFullRecompute, EventRetrainClusters:
	default:
		return fmt.Errorf("%w: unknown event kind %q", domain.ErrValidation, e.Kind)
	}
	return nil
}

// Key identifies events that do the same work, so the pool can coalesce them.
func (e Event) Key() string {
	if e.Run != nil {
		return "run:" + e.Run.ID.String()
	}
	switch e.Kind {
	case EventJobChanged:
		return "job:" + e.JobID.String()
	case EventCandidateChanged:
		return "candidate:" + e.CandidateID.String()
	case EventTestCompleted:
		return "test:" + e.CandidateID.String() + ":" + e.SkillID.String()
	case EventRetrainClusters:
		if e.Force {
			return "retrain:force"
		}
		return "retrain"
	default:
		return string(e.Kind)
	}
}

// ParseEvent decodes a notification payload such as {"kind":"job","job_id":"..."}.
func ParseEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("%w: bad event payload: %v", domain.ErrValidation, err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
