package crisis

import "github.com/sharronesofer/visual-dm-sub009/internal/npc"

// responseProfile describes how a response type is scored: which traits make
// an NPC suited to it, its base viability, how it scales with crisis
// severity, and whether integrity penalizes it as ethically costly.
type responseProfile struct {
	traits       []npc.Attribute
	base         float64
	severityBias float64
	costly       bool
}

var responseProfiles = map[npc.ResponseType]responseProfile{
	npc.ResponseFleeArea:           {traits: []npc.Attribute{npc.AttrPragmatism, npc.AttrImpulsivity}, base: 5.0, severityBias: 0.8},
	npc.ResponseStockpileResources: {traits: []npc.Attribute{npc.AttrPragmatism, npc.AttrDiscipline}, base: 6.0, severityBias: 0.3},
	npc.ResponseSeekProtection:     {traits: []npc.Attribute{npc.AttrPragmatism, npc.AttrResilience}, base: 5.5, severityBias: 0.5},
	npc.ResponseJoinMilitia:        {traits: []npc.Attribute{npc.AttrResilience, npc.AttrDiscipline}, base: 4.5, severityBias: 0.6},
	npc.ResponseHelpOthers:         {traits: []npc.Attribute{npc.AttrIntegrity, npc.AttrResilience}, base: 5.0, severityBias: 0.2},
	npc.ResponseProfitOpportunity:  {traits: []npc.Attribute{npc.AttrAmbition, npc.AttrPragmatism}, base: 4.0, severityBias: -0.2, costly: true},
	npc.ResponseReligiousDevotion:  {traits: []npc.Attribute{npc.AttrIntegrity, npc.AttrDiscipline}, base: 4.0, severityBias: 0.1},
	npc.ResponsePanicParalysis:     {traits: []npc.Attribute{npc.AttrImpulsivity}, base: 3.5, severityBias: 0.4},
	npc.ResponseAdaptLifestyle:     {traits: []npc.Attribute{npc.AttrPragmatism, npc.AttrResilience}, base: 5.5, severityBias: 0.0},
	npc.ResponseOrganizeCommunity:  {traits: []npc.Attribute{npc.AttrIntegrity, npc.AttrAmbition}, base: 4.5, severityBias: 0.3},
}

// crisisCandidates lists the responses available per crisis type.
var crisisCandidates = map[npc.CrisisType][]npc.ResponseType{
	npc.CrisisEconomicCollapse: {
		npc.ResponseStockpileResources, npc.ResponseProfitOpportunity,
		npc.ResponseAdaptLifestyle, npc.ResponseFleeArea, npc.ResponseHelpOthers,
	},
	npc.CrisisPlagueOutbreak: {
		npc.ResponseFleeArea, npc.ResponseSeekProtection, npc.ResponseHelpOthers,
		npc.ResponseReligiousDevotion, npc.ResponsePanicParalysis,
	},
	npc.CrisisWarThreat: {
		npc.ResponseJoinMilitia, npc.ResponseFleeArea, npc.ResponseStockpileResources,
		npc.ResponseSeekProtection, npc.ResponseOrganizeCommunity,
	},
	npc.CrisisNaturalDisaster: {
		npc.ResponseHelpOthers, npc.ResponseAdaptLifestyle, npc.ResponseFleeArea,
		npc.ResponseOrganizeCommunity, npc.ResponsePanicParalysis,
	},
	npc.CrisisPoliticalUpheaval: {
		npc.ResponseAdaptLifestyle, npc.ResponseOrganizeCommunity, npc.ResponseFleeArea,
		npc.ResponseProfitOpportunity, npc.ResponseSeekProtection,
	},
	npc.CrisisResourceShortage: {
		npc.ResponseStockpileResources, npc.ResponseAdaptLifestyle,
		npc.ResponseHelpOthers, npc.ResponseProfitOpportunity, npc.ResponseFleeArea,
	},
	npc.CrisisBanditRaids: {
		npc.ResponseJoinMilitia, npc.ResponseSeekProtection, npc.ResponseFleeArea,
		npc.ResponseOrganizeCommunity, npc.ResponseStockpileResources,
	},
	npc.CrisisReligiousConflict: {
		npc.ResponseReligiousDevotion, npc.ResponseFleeArea, npc.ResponseAdaptLifestyle,
		npc.ResponseOrganizeCommunity, npc.ResponseSeekProtection,
	},
}

// durationRange gives the base span in days a crisis of each type runs,
// before severity scaling.
var durationRange = map[npc.CrisisType][2]int{
	npc.CrisisEconomicCollapse:  {30, 120},
	npc.CrisisPlagueOutbreak:    {20, 90},
	npc.CrisisWarThreat:         {30, 180},
	npc.CrisisNaturalDisaster:   {7, 30},
	npc.CrisisPoliticalUpheaval: {14, 60},
	npc.CrisisResourceShortage:  {14, 90},
	npc.CrisisBanditRaids:       {7, 45},
	npc.CrisisReligiousConflict: {14, 90},
}

// responseVerbs flavors the narrative description per response type.
var responseVerbs = map[npc.ResponseType]string{
	npc.ResponseFleeArea:           "fled the area",
	npc.ResponseStockpileResources: "began stockpiling supplies",
	npc.ResponseSeekProtection:     "sought protection from the powerful",
	npc.ResponseJoinMilitia:        "joined the local militia",
	npc.ResponseHelpOthers:         "devoted themselves to helping others",
	npc.ResponseProfitOpportunity:  "looked for profit in the chaos",
	npc.ResponseReligiousDevotion:  "turned to prayer and devotion",
	npc.ResponsePanicParalysis:     "froze, overwhelmed by events",
	npc.ResponseAdaptLifestyle:     "quietly adapted their way of life",
	npc.ResponseOrganizeCommunity:  "began organizing their neighbors",
}
