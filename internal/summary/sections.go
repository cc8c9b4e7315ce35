// Package summary extracts a structured consent-summary document from the
// markdown the language model generates.
//
// The generated markdown uses a fixed, language-specific set of headings. The
// parser keeps the heading text exactly as written (trimmed only) but also
// resolves each heading to a canonical [SectionID], so downstream consumers can
// address sections without coupling to the presentation language.
package summary

import "github.com/evalden/concento/pkg/types"

// SectionID is a language-independent identifier for a summary section.
// The empty id marks a section whose heading is not part of the known schema;
// such sections stay addressable by their heading label.
type SectionID string

const (
	SectionTitle        SectionID = "title"
	SectionOverview     SectionID = "overview"
	SectionBenefits     SectionID = "benefits"
	SectionCommonRisks  SectionID = "common-risks"
	SectionRareRisks    SectionID = "rare-risks"
	SectionAlternatives SectionID = "alternatives"
	SectionPreparation  SectionID = "preparation"
	SectionSeekHelp     SectionID = "seek-help"
	SectionClosing      SectionID = "closing"
)

// labels maps each language to the exact heading text the model is instructed
// to emit for every canonical section, in document order.
var labels = map[types.Language]map[SectionID]string{
	types.LanguageEnglish: {
		SectionTitle:        "Title",
		SectionOverview:     "Overview",
		SectionBenefits:     "Benefits",
		SectionCommonRisks:  "Common risks",
		SectionRareRisks:    "Rare risks",
		SectionAlternatives: "Alternatives",
		SectionPreparation:  "Preparation",
		SectionSeekHelp:     "When to seek help",
		SectionClosing:      "More questions or click 'Save consent' button",
	},
	types.LanguageSvenska: {
		SectionTitle:        "Titel",
		SectionOverview:     "Översikt",
		SectionBenefits:     "Fördelar",
		SectionCommonRisks:  "Vanliga risker",
		SectionRareRisks:    "Sällsynta risker",
		SectionAlternatives: "Alternativ",
		SectionPreparation:  "Förberedelser",
		SectionSeekHelp:     "När ska man söka hjälp",
		SectionClosing:      "Fler frågor eller klicka på knappen 'Spara samtycke'",
	},
}

// Order is the canonical section order the model is instructed to follow.
var Order = []SectionID{
	SectionTitle,
	SectionOverview,
	SectionBenefits,
	SectionCommonRisks,
	SectionRareRisks,
	SectionAlternatives,
	SectionPreparation,
	SectionSeekHelp,
	SectionClosing,
}

// Label returns the heading text for id in the given language, or "" if the
// language or id is unknown.
func Label(lang types.Language, id SectionID) string {
	return labels[lang][id]
}

// Resolve maps a heading label back to its canonical SectionID for the given
// language. The second return is false for headings outside the known schema.
func Resolve(lang types.Language, label string) (SectionID, bool) {
	for id, l := range labels[lang] {
		if l == label {
			return id, true
		}
	}
	return "", false
}
