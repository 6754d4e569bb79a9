package npc

// TraitProfile holds the six hidden personality attributes, each on a 1–10
// scale. They drift only through completed personality evolutions.
type TraitProfile struct {
	Resilience  float64 `json:"resilience"`
	Ambition    float64 `json:"ambition"`
	Integrity   float64 `json:"integrity"`
	Discipline  float64 `json:"discipline"`
	Pragmatism  float64 `json:"pragmatism"`
	Impulsivity float64 `json:"impulsivity"`
}

// DefaultTraits returns a midpoint profile for NPCs with no recorded traits.
func DefaultTraits() TraitProfile {
	return TraitProfile{
		Resilience:  5,
		Ambition:    5,
		Integrity:   5,
		Discipline:  5,
		Pragmatism:  5,
		Impulsivity: 5,
	}
}

// Attribute identifies one trait for table-driven iteration. The accessor
// table lets engines walk traits without reflection.
type Attribute uint8

const (
	AttrResilience Attribute = iota
	AttrAmbition
	AttrIntegrity
	AttrDiscipline
	AttrPragmatism
	AttrImpulsivity
)

var attributeNames = [...]string{
	"resilience", "ambition", "integrity",
	"discipline", "pragmatism", "impulsivity",
}

// Name returns the attribute's snake_case name used in storage and reports.
func (a Attribute) Name() string {
	if int(a) < len(attributeNames) {
		return attributeNames[a]
	}
	return "unknown"
}

// Attributes lists every trait attribute in declaration order.
func Attributes() []Attribute {
	return []Attribute{
		AttrResilience, AttrAmbition, AttrIntegrity,
		AttrDiscipline, AttrPragmatism, AttrImpulsivity,
	}
}

// AttributeByName resolves a stored attribute name back to its Attribute.
func AttributeByName(name string) (Attribute, bool) {
	for i, n := range attributeNames {
		if n == name {
			return Attribute(i), true
		}
	}
	return 0, false
}

// Get reads the attribute's value from a profile.
func (a Attribute) Get(p *TraitProfile) float64 {
	switch a {
	case AttrResilience:
		return p.Resilience
	case AttrAmbition:
		return p.Ambition
	case AttrIntegrity:
		return p.Integrity
	case AttrDiscipline:
		return p.Discipline
	case AttrPragmatism:
		return p.Pragmatism
	case AttrImpulsivity:
		return p.Impulsivity
	}
	return 0
}

// Set writes the attribute's value into a profile.
func (a Attribute) Set(p *TraitProfile, v float64) {
	switch a {
	case AttrResilience:
		p.Resilience = v
	case AttrAmbition:
		p.Ambition = v
	case AttrIntegrity:
		p.Integrity = v
	case AttrDiscipline:
		p.Discipline = v
	case AttrPragmatism:
		p.Pragmatism = v
	case AttrImpulsivity:
		p.Impulsivity = v
	}
}
