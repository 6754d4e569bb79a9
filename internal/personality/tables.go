package personality

import "github.com/sharronesofer/visual-dm-sub009/internal/npc"

// attrEffect is one attribute an event type can move: the base trigger
// probability, the direction, and the relative size of the shift.
type attrEffect struct {
	attr   npc.Attribute
	prob   float64
	sign   float64
	weight float64
}

// eventEffects maps each life-event type to the attributes it can change.
var eventEffects = map[npc.EventType][]attrEffect{
	npc.EventMajorSuccess: {
		{npc.AttrAmbition, 0.6, +1, 0.5},
		{npc.AttrDiscipline, 0.4, +1, 0.3},
		{npc.AttrImpulsivity, 0.3, -1, 0.2},
	},
	npc.EventMajorFailure: {
		{npc.AttrResilience, 0.5, +1, 0.4},
		{npc.AttrAmbition, 0.5, -1, 0.4},
		{npc.AttrPragmatism, 0.4, +1, 0.3},
	},
	npc.EventBetrayalEvent: {
		{npc.AttrIntegrity, 0.6, -1, 0.5},
		{npc.AttrPragmatism, 0.6, +1, 0.5},
		{npc.AttrImpulsivity, 0.3, +1, 0.2},
	},
	npc.EventLossEvent: {
		{npc.AttrResilience, 0.5, +1, 0.4},
		{npc.AttrAmbition, 0.4, -1, 0.3},
		{npc.AttrImpulsivity, 0.3, -1, 0.2},
	},
	npc.EventTriumphEvent: {
		{npc.AttrAmbition, 0.6, +1, 0.5},
		{npc.AttrResilience, 0.4, +1, 0.3},
	},
	npc.EventCrisisSurvival: {
		{npc.AttrResilience, 0.7, +1, 0.6},
		{npc.AttrDiscipline, 0.5, +1, 0.4},
		{npc.AttrPragmatism, 0.4, +1, 0.3},
	},
	npc.EventLeadershipRole: {
		{npc.AttrDiscipline, 0.6, +1, 0.5},
		{npc.AttrIntegrity, 0.4, +1, 0.3},
		{npc.AttrAmbition, 0.4, +1, 0.3},
	},
	npc.EventMentorship: {
		{npc.AttrDiscipline, 0.5, +1, 0.4},
		{npc.AttrIntegrity, 0.5, +1, 0.4},
		{npc.AttrImpulsivity, 0.4, -1, 0.3},
	},
	npc.EventIsolationPeriod: {
		{npc.AttrPragmatism, 0.4, +1, 0.3},
		{npc.AttrResilience, 0.3, +1, 0.2},
		{npc.AttrAmbition, 0.4, -1, 0.3},
	},
	npc.EventCommunityBond: {
		{npc.AttrIntegrity, 0.5, +1, 0.4},
		{npc.AttrImpulsivity, 0.3, -1, 0.2},
		{npc.AttrAmbition, 0.3, +1, 0.2},
	},
}

// changeTypeFor classifies an evolution by its provoking event.
func changeTypeFor(event npc.EventType, severity float64) npc.ChangeType {
	switch event {
	case npc.EventBetrayalEvent, npc.EventLossEvent:
		return npc.ChangeTraumaticShift
	case npc.EventCrisisSurvival:
		return npc.ChangeCrisisHardening
	case npc.EventMajorSuccess, npc.EventTriumphEvent:
		return npc.ChangeSuccessSoftening
	case npc.EventLeadershipRole, npc.EventMentorship, npc.EventCommunityBond:
		if severity >= 8 {
			return npc.ChangeGrowthSpurt
		}
		return npc.ChangeGradualDrift
	default:
		return npc.ChangeGradualDrift
	}
}

// adaptationMultiplier scales the adaptation period by how disruptive the
// change type is.
func adaptationMultiplier(ct npc.ChangeType) float64 {
	switch ct {
	case npc.ChangeTraumaticShift:
		return 3
	case npc.ChangeCrisisHardening:
		return 2
	default:
		return 1
	}
}

// lessonFor gives the qualitative lesson a completed event teaches.
var lessonFor = map[npc.EventType]string{
	npc.EventMajorSuccess:    "hard work pays off",
	npc.EventMajorFailure:    "plans must survive contact with reality",
	npc.EventBetrayalEvent:   "trust must be earned, not given",
	npc.EventLossEvent:       "nothing lasts forever",
	npc.EventTriumphEvent:    "boldness is rewarded",
	npc.EventCrisisSurvival:  "endurance outlasts disaster",
	npc.EventLeadershipRole:  "others depend on steady hands",
	npc.EventMentorship:      "wisdom is meant to be passed on",
	npc.EventIsolationPeriod: "one must rely on oneself",
	npc.EventCommunityBond:   "strength comes from standing together",
}
