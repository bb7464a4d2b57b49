package firstcall

import (
	"encoding/json"
	"slices"
	"time"
)

// Stage is one discrete phase of the First Call workflow.
type Stage string

const (
	StageIntake     Stage = "intake"
	StageSummary    Stage = "summary"
	StageSignatures Stage = "signatures"
	StageFaxing     Stage = "faxing"
	StageComplete   Stage = "complete"
)

// Status is the externally visible classification of a case. It is always
// derived from the stage and signature progress and never stored.
type Status string

const (
	StatusIntakeInProgress Status = "intake-in-progress"
	StatusWaitingOnFamily  Status = "waiting-on-family"
	StatusActionNeeded     Status = "action-needed"
	StatusFaxing           Status = "faxing"
	StatusComplete         Status = "complete"
)

// Details holds the descriptive fields captured progressively during intake.
type Details struct {
	DeceasedName       string `json:"deceased_name,omitempty"`
	NextOfKinName      string `json:"next_of_kin_name,omitempty"`
	NextOfKinPhone     string `json:"next_of_kin_phone,omitempty"`
	CallerName         string `json:"caller_name,omitempty"`
	CallerPhone        string `json:"caller_phone,omitempty"`
	CallerRelationship string `json:"caller_relationship,omitempty"`
	Address            string `json:"address,omitempty"`
	DateOfBirth        string `json:"date_of_birth,omitempty"`
	TimeOfDeath        string `json:"time_of_death,omitempty"`
	LocationOfPickup   string `json:"location_of_pickup,omitempty"`
	Weight             string `json:"weight,omitempty"`
	IsWeightKnown      bool   `json:"is_weight_known"`
	ReadyForPickup     bool   `json:"ready_for_pickup"`
	ReadyTime          string `json:"ready_time,omitempty"`
	HasStairs          bool   `json:"has_stairs"`
	IsFamilyPresent    bool   `json:"is_family_present"`
}

// DetailsPatch is a partial update of Details; nil fields are left untouched.
type DetailsPatch struct {
	DeceasedName       *string `json:"deceased_name,omitempty"`
	NextOfKinName      *string `json:"next_of_kin_name,omitempty"`
	NextOfKinPhone     *string `json:"next_of_kin_phone,omitempty"`
	CallerName         *string `json:"caller_name,omitempty"`
	CallerPhone        *string `json:"caller_phone,omitempty"`
	CallerRelationship *string `json:"caller_relationship,omitempty"`
	Address            *string `json:"address,omitempty"`
	DateOfBirth        *string `json:"date_of_birth,omitempty"`
	TimeOfDeath        *string `json:"time_of_death,omitempty"`
	LocationOfPickup   *string `json:"location_of_pickup,omitempty"`
	Weight             *string `json:"weight,omitempty"`
	IsWeightKnown      *bool   `json:"is_weight_known,omitempty"`
	ReadyForPickup     *bool   `json:"ready_for_pickup,omitempty"`
	ReadyTime          *string `json:"ready_time,omitempty"`
	HasStairs          *bool   `json:"has_stairs,omitempty"`
	IsFamilyPresent    *bool   `json:"is_family_present,omitempty"`
}

// Apply returns d with every non-nil field of p merged in.
func (p DetailsPatch) Apply(d Details) Details {
	setString(&d.DeceasedName, p.DeceasedName)
	setString(&d.NextOfKinName, p.NextOfKinName)
	setString(&d.NextOfKinPhone, p.NextOfKinPhone)
	setString(&d.CallerName, p.CallerName)
	setString(&d.CallerPhone, p.CallerPhone)
	setString(&d.CallerRelationship, p.CallerRelationship)
	setString(&d.Address, p.Address)
	setString(&d.DateOfBirth, p.DateOfBirth)
	setString(&d.TimeOfDeath, p.TimeOfDeath)
	setString(&d.LocationOfPickup, p.LocationOfPickup)
	setString(&d.Weight, p.Weight)
	setBool(&d.IsWeightKnown, p.IsWeightKnown)
	setBool(&d.ReadyForPickup, p.ReadyForPickup)
	setString(&d.ReadyTime, p.ReadyTime)
	setBool(&d.HasStairs, p.HasStairs)
	setBool(&d.IsFamilyPresent, p.IsFamilyPresent)
	return d
}

// IsEmpty reports whether the patch changes nothing.
func (p DetailsPatch) IsEmpty() bool {
	return p == DetailsPatch{}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Case is a First Call case: the mutable unit of work that moves from
// intake to complete.
type Case struct {
	ID                 string     `json:"id"`
	Seq                int64      `json:"seq"`
	Version            int64      `json:"version"`
	Details            Details    `json:"details"`
	IsVerbalRelease    bool       `json:"is_verbal_release"`
	SignaturesReceived int        `json:"signatures_received"`
	SignaturesTotal    int        `json:"signatures_total"`
	FaxesSent          int        `json:"faxes_sent"`
	FaxesTotal         int        `json:"faxes_total"`
	CurrentStage       Stage      `json:"current_stage"`
	CompletedStages    []Stage    `json:"completed_stages"`
	ReleaseFormSentAt  *time.Time `json:"release_form_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Status derives the case status from its stage and signature progress.
func (c Case) Status() Status {
	return DeriveStatus(c.CurrentStage, c.SignaturesReceived, c.SignaturesTotal)
}

// IntakeCompleted reports whether intake has been submitted. Once true the
// verbal release flag is frozen.
func (c Case) IntakeCompleted() bool {
	return c.HasCompleted(StageIntake)
}

// HasCompleted reports whether stage is listed in CompletedStages.
func (c Case) HasCompleted(stage Stage) bool {
	return slices.Contains(c.CompletedStages, stage)
}

// Clone returns a deep copy so callers never share the CompletedStages
// backing array or the release timestamp with a stored value.
func (c Case) Clone() Case {
	out := c
	out.CompletedStages = slices.Clone(c.CompletedStages)
	if c.ReleaseFormSentAt != nil {
		t := *c.ReleaseFormSentAt
		out.ReleaseFormSentAt = &t
	}
	return out
}

// MarshalJSON adds the derived status to the wire form.
func (c Case) MarshalJSON() ([]byte, error) {
	type plain Case
	return json.Marshal(struct {
		plain
		Status Status `json:"status"`
	}{plain: plain(c), Status: c.Status()})
}

// complete appends stage to CompletedStages once.
func (c *Case) complete(stage Stage) {
	if !c.HasCompleted(stage) {
		c.CompletedStages = append(c.CompletedStages, stage)
	}
}

// IntakeData is what the operator submits when intake is finished.
type IntakeData struct {
	Details         DetailsPatch `json:"details"`
	IsVerbalRelease bool         `json:"is_verbal_release"`
	// SignaturesTotal is the operator-selected number of required documents.
	SignaturesTotal int `json:"signatures_total"`
}

// UpdateRequest describes a generic case update.
type UpdateRequest struct {
	ID              string
	Details         DetailsPatch
	SignaturesTotal *int
	FaxesTotal      *int
	// IsVerbalRelease is honoured only while the case is still in intake.
	IsVerbalRelease *bool
	// ExpectedVersion, when set, turns the update into a compare-and-swap
	// against the version the caller last read.
	ExpectedVersion *int64
}

// ConflictInfo describes a stale update rejected by version check.
type ConflictInfo struct {
	ConflictType    string `json:"conflict_type"`
	ExpectedVersion int64  `json:"expected_version"`
	Current         *Case  `json:"current,omitempty"`
	Message         string `json:"message"`
}

// FinalizedSnapshot is the flat record handed to Case Management when a
// case completes.
type FinalizedSnapshot struct {
	CallerName       string `json:"caller_name"`
	DeceasedName     string `json:"deceased_name"`
	DateOfBirth      string `json:"date_of_birth"`
	TimeOfDeath      string `json:"time_of_death"`
	LocationOfPickup string `json:"location_of_pickup"`
	Address          string `json:"address"`
	NextOfKinName    string `json:"next_of_kin_name"`
	NextOfKinPhone   string `json:"next_of_kin_phone"`
	Weight           string `json:"weight"`
	ReadyTime        string `json:"ready_time"`
	HasStairs        bool   `json:"has_stairs"`
	IsFamilyPresent  bool   `json:"is_family_present"`
	IsVerbalRelease  bool   `json:"is_verbal_release"`
}

// CaseFinalized is emitted once per case when it first reaches complete.
type CaseFinalized struct {
	EventID    string            `json:"event_id"`
	CaseID     string            `json:"case_id"`
	Snapshot   FinalizedSnapshot `json:"snapshot"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// SnapshotOf builds the finalization snapshot of c.
func SnapshotOf(c Case) FinalizedSnapshot {
	d := c.Details
	return FinalizedSnapshot{
		CallerName:       d.CallerName,
		DeceasedName:     d.DeceasedName,
		DateOfBirth:      d.DateOfBirth,
		TimeOfDeath:      d.TimeOfDeath,
		LocationOfPickup: d.LocationOfPickup,
		Address:          d.Address,
		NextOfKinName:    d.NextOfKinName,
		NextOfKinPhone:   d.NextOfKinPhone,
		Weight:           d.Weight,
		ReadyTime:        d.ReadyTime,
		HasStairs:        d.HasStairs,
		IsFamilyPresent:  d.IsFamilyPresent,
		IsVerbalRelease:  c.IsVerbalRelease,
	}
}
