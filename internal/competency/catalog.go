// Package competency holds the competence reference catalog and the
// acquisition-rate projections computed from a student's records.
package competency

import (
	"strings"

	"gmao/internal/domain"
)

const familySeparator = "."

var (
	allLevels   = []domain.TrainingLevel{domain.Level2PMIA, domain.Level1MSPC, domain.LevelTMSPC}
	upperLevels = []domain.TrainingLevel{domain.Level1MSPC, domain.LevelTMSPC}
	finalLevel  = []domain.TrainingLevel{domain.LevelTMSPC}
)

// Family is a group of competences sharing a code prefix.
type Family struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

var familyTitles = map[string]string{
	"C1": "Préparer son intervention",
	"C2": "Réaliser la maintenance préventive",
	"C3": "Réaliser la maintenance corrective",
	"C4": "Améliorer et communiquer",
}

var catalog = []domain.CompetenceEntry{
	{Code: "C1.1", Label: "Analyser le fonctionnement d'un bien", Description: "Identifier les fonctions, les chaînes d'énergie et d'information d'un équipement.", ApplicableLevels: allLevels},
	{Code: "C1.2", Label: "Identifier les risques", Description: "Repérer les dangers et choisir les mesures de prévention avant d'intervenir.", ApplicableLevels: allLevels},
	{Code: "C1.3", Label: "Préparer les ressources", Description: "Rassembler la documentation, l'outillage et les pièces nécessaires.", ApplicableLevels: upperLevels},
	{Code: "C1.4", Label: "Planifier l'intervention", Description: "Ordonnancer les opérations et estimer leur durée.", ApplicableLevels: finalLevel},
	{Code: "C2.1", Label: "Appliquer une gamme de maintenance", Description: "Exécuter les opérations d'une gamme préventive systématique.", ApplicableLevels: allLevels},
	{Code: "C2.2", Label: "Réaliser des contrôles et mesures", Description: "Mesurer, comparer aux valeurs de référence et consigner les relevés.", ApplicableLevels: allLevels},
	{Code: "C2.3", Label: "Effectuer une surveillance conditionnelle", Description: "Exploiter les indicateurs d'usure pour déclencher une intervention.", ApplicableLevels: upperLevels},
	{Code: "C3.1", Label: "Diagnostiquer une défaillance", Description: "Formuler des hypothèses et localiser l'élément défaillant.", ApplicableLevels: allLevels},
	{Code: "C3.2", Label: "Remplacer un composant", Description: "Déposer, reposer et régler un composant en respectant les procédures.", ApplicableLevels: allLevels},
	{Code: "C3.3", Label: "Remettre en service", Description: "Réaliser les essais et restituer le bien à l'exploitation.", ApplicableLevels: upperLevels},
	{Code: "C3.4", Label: "Analyser les causes d'une panne", Description: "Mener une analyse des causes racines après intervention.", ApplicableLevels: finalLevel},
	{Code: "C4.1", Label: "Rendre compte de son intervention", Description: "Renseigner le compte rendu et l'historique du bien.", ApplicableLevels: allLevels},
	{Code: "C4.2", Label: "Proposer une amélioration", Description: "Formuler une proposition d'amélioration argumentée.", ApplicableLevels: upperLevels},
	{Code: "C4.3", Label: "Mettre en œuvre une amélioration", Description: "Réaliser et valider une modification du bien.", ApplicableLevels: finalLevel},
}

func init() {
	for i := range catalog {
		catalog[i].Family = FamilyOf(catalog[i].Code)
	}
}

// FamilyOf returns the family key of a competence code: the prefix before
// the first separator, or the whole code when there is none.
func FamilyOf(code string) string {
	if i := strings.Index(code, familySeparator); i >= 0 {
		return code[:i]
	}
	return code
}

// Catalog returns a copy of the full reference catalog in reference order.
func Catalog() []domain.CompetenceEntry {
	out := make([]domain.CompetenceEntry, len(catalog))
	for i, c := range catalog {
		c.ApplicableLevels = append([]domain.TrainingLevel(nil), c.ApplicableLevels...)
		out[i] = c
	}
	return out
}

// Families returns the families present in the catalog, in catalog order.
func Families() []Family {
	seen := map[string]bool{}
	var out []Family
	for _, c := range catalog {
		if seen[c.Family] {
			continue
		}
		seen[c.Family] = true
		out = append(out, Family{Key: c.Family, Title: FamilyTitle(c.Family)})
	}
	return out
}

// FamilyTitle returns the display title for a family key, or the key itself.
func FamilyTitle(key string) string {
	if t, ok := familyTitles[key]; ok {
		return t
	}
	return key
}

func Lookup(code string) (domain.CompetenceEntry, bool) {
	for _, c := range catalog {
		if c.Code == code {
			return c, true
		}
	}
	return domain.CompetenceEntry{}, false
}

func Known(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// ApplicableCatalog returns the entries taught at level, catalog order preserved.
func ApplicableCatalog(level domain.TrainingLevel) []domain.CompetenceEntry {
	var out []domain.CompetenceEntry
	for _, c := range Catalog() {
		if c.AppliesTo(level) {
			out = append(out, c)
		}
	}
	return out
}
