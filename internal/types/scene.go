package types

type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

type TimeOfDay string

const (
	TimeOfDayDay   TimeOfDay = "day"
	TimeOfDayNight TimeOfDay = "night"
)

const (
	ScenarioPatrol      = "patrol"
	ScenarioTrafficStop = "traffic_stop"
	ScenarioArrest      = "arrest"
)

type SceneContext struct {
	ScenarioType   string      `json:"scenario_type"`
	ThreatLevel    ThreatLevel `json:"threat_level"`
	TimeOfDay      TimeOfDay   `json:"time_of_day"`
	WeaponsPresent *bool       `json:"weapons_present,omitempty"`
	SuspectCount   *int        `json:"suspect_count,omitempty"`
}

// SceneUpdate is a partial SceneContext. Nil fields are left untouched.
type SceneUpdate struct {
	ScenarioType   *string      `json:"scenario_type,omitempty"`
	ThreatLevel    *ThreatLevel `json:"threat_level,omitempty"`
	TimeOfDay      *TimeOfDay   `json:"time_of_day,omitempty"`
	WeaponsPresent *bool        `json:"weapons_present,omitempty"`
	SuspectCount   *int         `json:"suspect_count,omitempty"`
}

func (u SceneUpdate) IsEmpty() bool {
	return u.ScenarioType == nil &&
		u.ThreatLevel == nil &&
		u.TimeOfDay == nil &&
		u.WeaponsPresent == nil &&
		u.SuspectCount == nil
}

// Apply merges u into c field by field and returns the result.
func (c SceneContext) Apply(u SceneUpdate) SceneContext {
	out := c
	if u.ScenarioType != nil {
		out.ScenarioType = *u.ScenarioType
	}
	if u.ThreatLevel != nil {
		out.ThreatLevel = *u.ThreatLevel
	}
	if u.TimeOfDay != nil {
		out.TimeOfDay = *u.TimeOfDay
	}
	if u.WeaponsPresent != nil {
		v := *u.WeaponsPresent
		out.WeaponsPresent = &v
	}
	if u.SuspectCount != nil {
		v := *u.SuspectCount
		out.SuspectCount = &v
	}
	return out
}

// Clone returns a copy that shares no pointers with c.
func (c SceneContext) Clone() SceneContext {
	return c.Apply(SceneUpdate{
		WeaponsPresent: c.WeaponsPresent,
		SuspectCount:   c.SuspectCount,
	})
}

func StringPtr(v string) *string { return &v }

func BoolPtr(v bool) *bool { return &v }

func IntPtr(v int) *int { return &v }

func ThreatPtr(v ThreatLevel) *ThreatLevel { return &v }
