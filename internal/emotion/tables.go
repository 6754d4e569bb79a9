package emotion

import "github.com/sharronesofer/visual-dm-sub009/internal/npc"

// dimDelta is one additive adjustment to the six mood dimensions, stated at
// full severity (10) and scaled down by severity/10 when applied.
type dimDelta struct {
	happiness, energy, stress, confidence, sociability, optimism float64
}

// triggerCandidates lists the emotions a trigger type can move an NPC into.
// Selection among them is by compatibility score.
var triggerCandidates = map[npc.TriggerType][]npc.Emotion{
	npc.TriggerGoalSuccess:         {npc.EmotionJoyful, npc.EmotionConfident, npc.EmotionExcited},
	npc.TriggerGoalFailure:         {npc.EmotionDepressed, npc.EmotionBitter, npc.EmotionAnxious},
	npc.TriggerRelationshipChange:  {npc.EmotionLoveStruck, npc.EmotionContent, npc.EmotionMelancholy},
	npc.TriggerBetrayal:            {npc.EmotionAngry, npc.EmotionBitter, npc.EmotionDepressed},
	npc.TriggerLossOfLovedOne:      {npc.EmotionGriefStricken, npc.EmotionMelancholy, npc.EmotionDepressed},
	npc.TriggerPhysicalDanger:      {npc.EmotionFearful, npc.EmotionAnxious, npc.EmotionDetermined},
	npc.TriggerSocialTriumph:       {npc.EmotionConfident, npc.EmotionJoyful, npc.EmotionExcited},
	npc.TriggerSocialHumiliation:   {npc.EmotionBitter, npc.EmotionAnxious, npc.EmotionDepressed},
	npc.TriggerEconomicChange:      {npc.EmotionAnxious, npc.EmotionHopeful, npc.EmotionDetermined},
	npc.TriggerPoliticalEvent:      {npc.EmotionAnxious, npc.EmotionAngry, npc.EmotionHopeful},
	npc.TriggerLoyaltyReward:       {npc.EmotionContent, npc.EmotionConfident, npc.EmotionJoyful},
	npc.TriggerSeasonalChange:      {npc.EmotionContent, npc.EmotionMelancholy, npc.EmotionNeutral},
	npc.TriggerHealthChange:        {npc.EmotionAnxious, npc.EmotionFearful, npc.EmotionHopeful},
	npc.TriggerCrisisEvent:         {npc.EmotionFearful, npc.EmotionDetermined, npc.EmotionAnxious},
	npc.TriggerOngoingCrisisStress: {npc.EmotionAnxious, npc.EmotionFearful, npc.EmotionDepressed},
}

// triggerDeltas gives the dimension shifts at full severity per trigger type.
var triggerDeltas = map[npc.TriggerType]dimDelta{
	npc.TriggerGoalSuccess:         {happiness: 2.0, energy: 1.0, stress: -1.0, confidence: 1.5},
	npc.TriggerGoalFailure:         {happiness: -2.0, stress: 1.5, confidence: -1.5, optimism: -1.0},
	npc.TriggerRelationshipChange:  {happiness: 1.0, energy: 0.5, stress: 0.5, confidence: 0.5, sociability: 1.5, optimism: 0.5},
	npc.TriggerBetrayal:            {happiness: -3.0, stress: 2.0, sociability: -2.0, optimism: -2.0},
	npc.TriggerLossOfLovedOne:      {happiness: -4.0, energy: -2.0, stress: 3.0, sociability: -2.0},
	npc.TriggerPhysicalDanger:      {energy: 1.0, stress: 3.0, confidence: -1.0},
	npc.TriggerSocialTriumph:       {happiness: 2.0, energy: 1.0, confidence: 2.0, sociability: 1.0},
	npc.TriggerSocialHumiliation:   {happiness: -2.0, stress: 2.0, confidence: -2.5, sociability: -1.5},
	npc.TriggerEconomicChange:      {happiness: -0.5, energy: 0.5, stress: 1.5, confidence: -0.5, optimism: -0.5},
	npc.TriggerPoliticalEvent:      {happiness: -0.5, energy: 0.5, stress: 1.0, sociability: 0.5, optimism: -0.5},
	npc.TriggerLoyaltyReward:       {happiness: 1.5, stress: -0.5, confidence: 1.0, optimism: 1.0},
	npc.TriggerSeasonalChange:      {happiness: 0.5, energy: -0.5, optimism: 0.5},
	npc.TriggerHealthChange:        {happiness: -1.0, energy: -1.5, stress: 1.5, confidence: -1.0, sociability: -0.5, optimism: -1.0},
	npc.TriggerCrisisEvent:         {happiness: -1.5, energy: 1.0, stress: 2.5, confidence: -1.0, sociability: -0.5, optimism: -1.5},
	npc.TriggerOngoingCrisisStress: {happiness: -1.0, energy: -1.0, stress: 2.0, confidence: -0.5, sociability: -0.5, optimism: -1.0},
}

// emotionProfiles characterize each discrete emotion by its typical position
// on the six dimensions. Compatibility scoring compares an NPC's current
// dimensions against these.
var emotionProfiles = map[npc.Emotion]dimDelta{
	npc.EmotionNeutral:       {},
	npc.EmotionJoyful:        {happiness: 8, energy: 6, stress: -4, confidence: 5, sociability: 6, optimism: 7},
	npc.EmotionContent:       {happiness: 5, energy: 2, stress: -5, confidence: 4, sociability: 3, optimism: 4},
	npc.EmotionExcited:       {happiness: 6, energy: 9, stress: 2, confidence: 5, sociability: 6, optimism: 6},
	npc.EmotionConfident:     {happiness: 4, energy: 5, stress: -3, confidence: 9, sociability: 4, optimism: 6},
	npc.EmotionDetermined:    {happiness: 1, energy: 7, stress: 3, confidence: 7, sociability: 0, optimism: 4},
	npc.EmotionHopeful:       {happiness: 4, energy: 4, stress: 0, confidence: 4, sociability: 3, optimism: 8},
	npc.EmotionAnxious:       {happiness: -3, energy: 3, stress: 7, confidence: -4, sociability: -3, optimism: -3},
	npc.EmotionFearful:       {happiness: -5, energy: 4, stress: 9, confidence: -6, sociability: -4, optimism: -5},
	npc.EmotionAngry:         {happiness: -5, energy: 7, stress: 7, confidence: 2, sociability: -5, optimism: -3},
	npc.EmotionBitter:        {happiness: -6, energy: 0, stress: 5, confidence: -2, sociability: -6, optimism: -6},
	npc.EmotionDepressed:     {happiness: -8, energy: -7, stress: 6, confidence: -6, sociability: -6, optimism: -8},
	npc.EmotionMelancholy:    {happiness: -4, energy: -3, stress: 2, confidence: -2, sociability: -3, optimism: -3},
	npc.EmotionGriefStricken: {happiness: -9, energy: -6, stress: 8, confidence: -4, sociability: -5, optimism: -7},
	npc.EmotionLoveStruck:    {happiness: 8, energy: 6, stress: 1, confidence: 3, sociability: 8, optimism: 8},
}

// memoryClassFor maps a trigger type to the class of memory it forms.
func memoryClassFor(t npc.TriggerType) npc.MemoryClass {
	switch t {
	case npc.TriggerBetrayal, npc.TriggerLossOfLovedOne, npc.TriggerPhysicalDanger,
		npc.TriggerCrisisEvent, npc.TriggerSocialHumiliation:
		return npc.MemoryTrauma
	case npc.TriggerGoalSuccess, npc.TriggerSocialTriumph:
		return npc.MemoryTriumph
	case npc.TriggerRelationshipChange, npc.TriggerLoyaltyReward:
		return npc.MemoryJoy
	default:
		return npc.MemorySignificant
	}
}

// weatherDeltas gives full-sensitivity dimension shifts per weather condition.
var weatherDeltas = map[npc.Weather]dimDelta{
	npc.WeatherSunny:  {happiness: 0.5, energy: 0.5, stress: -0.3, optimism: 0.4},
	npc.WeatherRainy:  {happiness: -0.3, energy: -0.4, sociability: -0.2},
	npc.WeatherStormy: {happiness: -0.5, energy: -0.2, stress: 0.6, sociability: -0.4},
	npc.WeatherFoggy:  {happiness: -0.2, energy: -0.3, optimism: -0.3},
	npc.WeatherSnow:   {happiness: 0.2, energy: -0.4, sociability: -0.3},
}

// decisionBase maps each emotion to its decision-weighting adjustments at
// full intensity. Scaled by intensity/10 before use.
var decisionBase = map[npc.Emotion]map[string]float64{
	npc.EmotionJoyful:        {"risk_taking": 0.3, "cooperation": 0.4, "aggression": -0.3, "generosity": 0.4},
	npc.EmotionContent:       {"risk_taking": -0.2, "cooperation": 0.3, "aggression": -0.3, "patience": 0.3},
	npc.EmotionExcited:       {"risk_taking": 0.5, "cooperation": 0.2, "aggression": 0.1, "impulsiveness": 0.4},
	npc.EmotionConfident:     {"risk_taking": 0.4, "cooperation": 0.1, "aggression": 0.1, "leadership": 0.4},
	npc.EmotionDetermined:    {"risk_taking": 0.2, "cooperation": 0.0, "aggression": 0.2, "persistence": 0.5},
	npc.EmotionHopeful:       {"risk_taking": 0.2, "cooperation": 0.3, "aggression": -0.2, "patience": 0.2},
	npc.EmotionAnxious:       {"risk_taking": -0.4, "cooperation": -0.1, "aggression": 0.1, "caution": 0.5},
	npc.EmotionFearful:       {"risk_taking": -0.6, "cooperation": -0.2, "aggression": -0.1, "caution": 0.6},
	npc.EmotionAngry:         {"risk_taking": 0.3, "cooperation": -0.5, "aggression": 0.6, "patience": -0.5},
	npc.EmotionBitter:        {"risk_taking": 0.1, "cooperation": -0.4, "aggression": 0.3, "generosity": -0.4},
	npc.EmotionDepressed:     {"risk_taking": -0.3, "cooperation": -0.3, "aggression": -0.2, "withdrawal": 0.6},
	npc.EmotionMelancholy:    {"risk_taking": -0.2, "cooperation": -0.1, "aggression": -0.2, "withdrawal": 0.3},
	npc.EmotionGriefStricken: {"risk_taking": -0.4, "cooperation": -0.3, "aggression": -0.1, "withdrawal": 0.7},
	npc.EmotionLoveStruck:    {"risk_taking": 0.4, "cooperation": 0.4, "aggression": -0.4, "impulsiveness": 0.5},
}

func (d dimDelta) apply(s *npc.EmotionalState, scale float64, clamp func(float64) float64) {
	s.Happiness = clamp(s.Happiness + d.happiness*scale)
	s.Energy = clamp(s.Energy + d.energy*scale)
	s.Stress = clamp(s.Stress + d.stress*scale)
	s.Confidence = clamp(s.Confidence + d.confidence*scale)
	s.Sociability = clamp(s.Sociability + d.sociability*scale)
	s.Optimism = clamp(s.Optimism + d.optimism*scale)
}

func (d dimDelta) values() [6]float64 {
	return [6]float64{d.happiness, d.energy, d.stress, d.confidence, d.sociability, d.optimism}
}
