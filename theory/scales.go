package theory

import (
	"fmt"
	"strings"
)

// ScaleID indexes a template inside a Catalog
type ScaleID int

// ScaleTemplate is a named ordered set of semitone offsets from a root
type ScaleTemplate struct {
	ID        ScaleID `json:"id"`
	Name      string  `json:"name"`
	Intervals []int   `json:"intervals"`
}

// Cardinality returns the number of distinct pitch classes in the template
func (t ScaleTemplate) Cardinality() int {
	return len(t.Intervals)
}

// PitchClasses returns the absolute pitch-class set of the template on root
func (t ScaleTemplate) PitchClasses(root PitchClass) PitchClassSet {
	var s PitchClassSet
	for _, interval := range t.Intervals {
		s = s.Add(root.Transpose(interval))
	}
	return s
}

// Catalog is an immutable, ID-indexed registry of scale templates. A single
// Catalog is meant to be shared by reference between the engine and the rest
// of the application.
type Catalog struct {
	templates []ScaleTemplate
	byName    map[string]ScaleID
}

// TemplateDef is the input form of a catalog entry
type TemplateDef struct {
	Name      string
	Intervals []int
}

// Template cardinality bounds
const (
	MinTemplateSize = 4
	MaxTemplateSize = 12
)

// NewCatalog validates the definitions and assigns IDs in declaration order
func NewCatalog(defs ...TemplateDef) (*Catalog, error) {
	c := &Catalog{
		templates: make([]ScaleTemplate, 0, len(defs)),
		byName:    make(map[string]ScaleID, len(defs)),
	}

	for _, def := range defs {
		if err := validateIntervals(def); err != nil {
			return nil, err
		}
		key := normalizeName(def.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate scale template %q", def.Name)
		}

		id := ScaleID(len(c.templates))
		intervals := make([]int, len(def.Intervals))
		copy(intervals, def.Intervals)

		c.templates = append(c.templates, ScaleTemplate{ID: id, Name: def.Name, Intervals: intervals})
		c.byName[key] = id
	}

	return c, nil
}

func validateIntervals(def TemplateDef) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("scale template has no name")
	}
	n := len(def.Intervals)
	if n < MinTemplateSize || n > MaxTemplateSize {
		return fmt.Errorf("scale template %q has %d intervals, want %d-%d", def.Name, n, MinTemplateSize, MaxTemplateSize)
	}

	var seen PitchClassSet
	hasRoot := false
	for _, interval := range def.Intervals {
		if interval < 0 || interval >= NumPitchClasses {
			return fmt.Errorf("scale template %q: interval %d out of range", def.Name, interval)
		}
		if seen.Contains(PitchClass(interval)) {
			return fmt.Errorf("scale template %q: duplicate interval %d", def.Name, interval)
		}
		seen = seen.Add(PitchClass(interval))
		if interval == 0 {
			hasRoot = true
		}
	}
	if !hasRoot {
		return fmt.Errorf("scale template %q does not contain the root", def.Name)
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	return len(c.templates)
}

// Templates returns the templates in ID order. The slice is shared; callers must not mutate it.
func (c *Catalog) Templates() []ScaleTemplate {
	return c.templates
}

// Template returns the template with the given ID
func (c *Catalog) Template(id ScaleID) (ScaleTemplate, bool) {
	if id < 0 || int(id) >= len(c.templates) {
		return ScaleTemplate{}, false
	}
	return c.templates[id], true
}

// Lookup finds a template by case-insensitive name
func (c *Catalog) Lookup(name string) (ScaleTemplate, bool) {
	id, ok := c.byName[normalizeName(name)]
	if !ok {
		return ScaleTemplate{}, false
	}
	return c.templates[id], true
}

// Standard template names
const (
	ScaleMajor           = "Major"
	ScaleMinor           = "Minor"
	ScaleHarmonicMinor   = "Harmonic Minor"
	ScaleMelodicMinor    = "Melodic Minor"
	ScalePentatonicMajor = "Pentatonic Major"
	ScalePentatonicMinor = "Pentatonic Minor"
	ScaleBlues           = "Blues"
	ScaleDorian          = "Dorian"
	ScaleChromatic       = "Chromatic"
)

// StandardTemplates is the built-in template set, Major first
var StandardTemplates = []TemplateDef{
	{ScaleMajor, []int{0, 2, 4, 5, 7, 9, 11}},
	{ScaleMinor, []int{0, 2, 3, 5, 7, 8, 10}},
	{ScaleHarmonicMinor, []int{0, 2, 3, 5, 7, 8, 11}},
	{ScaleMelodicMinor, []int{0, 2, 3, 5, 7, 9, 11}},
	{ScalePentatonicMajor, []int{0, 2, 4, 7, 9}},
	{ScalePentatonicMinor, []int{0, 3, 5, 7, 10}},
	{ScaleBlues, []int{0, 3, 5, 6, 7, 10}},
	{ScaleDorian, []int{0, 2, 3, 5, 7, 9, 10}},
	{"Phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	{"Lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	{"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	{"Locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	{"Whole Tone", []int{0, 2, 4, 6, 8, 10}},
	{"Hijaz (Phrygian Dominant)", []int{0, 1, 4, 5, 7, 8, 10}},
	{"Hirajoshi (Japanese)", []int{0, 2, 3, 7, 8}},
	{"In Sen (Japanese)", []int{0, 1, 5, 7, 10}},
	{"Gypsy Minor", []int{0, 2, 3, 6, 7, 8, 11}},
	{"Arabian (Double Harmonic)", []int{0, 1, 4, 5, 7, 8, 11}},
	{"Persian", []int{0, 1, 4, 5, 6, 8, 11}},
	{"Egyptian", []int{0, 2, 5, 7, 10}},
	{ScaleChromatic, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	{"Bebop Dominant", []int{0, 2, 4, 5, 7, 9, 10, 11}},
	{"Bebop Major", []int{0, 2, 4, 5, 7, 8, 9, 11}},
	{"Diminished (Whole-Half)", []int{0, 2, 3, 5, 6, 8, 9, 11}},
	{"Diminished (Half-Whole)", []int{0, 1, 3, 4, 6, 7, 9, 10}},
	{"Augmented", []int{0, 3, 4, 7, 8, 11}},
	{"Byzantine", []int{0, 1, 4, 5, 7, 8, 11}},
	{"Neapolitan Minor", []int{0, 1, 3, 5, 7, 8, 11}},
	{"Neapolitan Major", []int{0, 1, 3, 5, 7, 9, 11}},
	{"Hungarian Minor", []int{0, 2, 3, 6, 7, 8, 11}},
	{"Flamenco", []int{0, 1, 4, 5, 7, 8, 10}},
	{"Balinese (Pelog)", []int{0, 1, 3, 7, 8}},
	{"Chinese", []int{0, 4, 6, 7, 11}},
	{"Prometheus", []int{0, 2, 4, 6, 9, 10}},
	{"Super Locrian", []int{0, 1, 3, 4, 6, 8, 10}},
	{"Lydian Dominant", []int{0, 2, 4, 6, 7, 9, 10}},
}

var defaultCatalog = mustCatalog(StandardTemplates...)

// DefaultCatalog returns the process-wide shared catalog of StandardTemplates
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustCatalog(defs ...TemplateDef) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}
