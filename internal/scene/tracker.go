package scene

import (
	"sync"
	"time"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Tracker holds one SceneContext per session key for the process lifetime.
type Tracker struct {
	mu     sync.Mutex
	scenes map[types.SessionKey]types.SceneContext
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		scenes: make(map[types.SessionKey]types.SceneContext),
		now:    time.Now,
	}
}

// TimeOfDayAt treats 06:00 through 19:59 local time as day.
func TimeOfDayAt(t time.Time) types.TimeOfDay {
	if h := t.Hour(); h >= 6 && h < 20 {
		return types.TimeOfDayDay
	}
	return types.TimeOfDayNight
}

func (t *Tracker) defaultScene() types.SceneContext {
	return types.SceneContext{
		ScenarioType: types.ScenarioPatrol,
		ThreatLevel:  types.ThreatLow,
		TimeOfDay:    TimeOfDayAt(t.now()),
	}
}

func (t *Tracker) sceneLocked(key types.SessionKey) types.SceneContext {
	if sc, ok := t.scenes[key]; ok {
		return sc
	}
	sc := t.defaultScene()
	t.scenes[key] = sc
	return sc
}

func (t *Tracker) Get(key types.SessionKey) types.SceneContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sceneLocked(key).Clone()
}

// Update merges u into the key's scene and returns the result.
func (t *Tracker) Update(key types.SessionKey, u types.SceneUpdate) types.SceneContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.sceneLocked(key).Apply(u)
	t.scenes[key] = next
	return next.Clone()
}

// UpdateForIntent applies the scene rule for intent, if any. The returned
// bool reports whether a rule fired.
func (t *Tracker) UpdateForIntent(key types.SessionKey, intent types.Intent) (types.SceneContext, bool) {
	u := UpdateForIntent(intent)
	if u.IsEmpty() {
		return t.Get(key), false
	}
	return t.Update(key, u), true
}

// Forget drops the key's scene so the next Get starts from defaults.
func (t *Tracker) Forget(key types.SessionKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.scenes, key)
}

// UpdateForIntent maps a classified intent to the partial scene change it
// implies. Intents without a rule yield an empty update.
func UpdateForIntent(intent types.Intent) types.SceneUpdate {
	switch intent.Label {
	case types.IntentThreatDetected:
		return types.SceneUpdate{
			ThreatLevel:    types.ThreatPtr(types.ThreatCritical),
			WeaponsPresent: types.BoolPtr(true),
		}
	case types.IntentTrafficStop:
		return types.SceneUpdate{ScenarioType: types.StringPtr(types.ScenarioTrafficStop)}
	case types.IntentArrivingScene:
		if sceneType, ok := intent.EntityString("sceneType"); ok {
			return types.SceneUpdate{ScenarioType: types.StringPtr(sceneType)}
		}
		if sceneType, ok := intent.EntityString("scene_type"); ok {
			return types.SceneUpdate{ScenarioType: types.StringPtr(sceneType)}
		}
	case types.IntentArrestMade:
		count := 1
		if n, ok := entityInt(intent.Entities, "suspectCount", "suspect_count"); ok {
			count = n
		}
		return types.SceneUpdate{
			ScenarioType: types.StringPtr(types.ScenarioArrest),
			SuspectCount: types.IntPtr(count),
		}
	case types.IntentSceneSecure:
		return types.SceneUpdate{ThreatLevel: types.ThreatPtr(types.ThreatLow)}
	}
	return types.SceneUpdate{}
}

func entityInt(entities map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := entities[key].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}
