package dismissal

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/dismissal/core"
)

// similarNameRatio is the minimum difflib ratio for two campus keys to be reported as likely typos.
const similarNameRatio = 0.85

type (
	DateRange struct {
		First string `json:"first"`
		Last  string `json:"last"`
	}

	CampusInventory struct {
		Name      string `json:"name"`
		Records   int    `json:"records"`
		FirstDate string `json:"first_date"`
		LastDate  string `json:"last_date"`
	}

	CampusGroup struct {
		Key     string   `json:"key"`
		Names   []string `json:"names"`
		Records int      `json:"records"`
	}

	SimilarNames struct {
		A     string  `json:"a"`
		B     string  `json:"b"`
		Ratio float64 `json:"ratio"`
	}

	Inventory struct {
		TotalRecords       int               `json:"total_records"`
		DateRange          DateRange         `json:"date_range"`
		RecordsByMonth     map[string]int    `json:"records_by_month"`
		Campuses           []CampusInventory `json:"campuses"`
		CampusGroups       []CampusGroup     `json:"campus_groups"`
		SimilarCampusNames []SimilarNames    `json:"similar_campus_names"`
	}
)

// BuildInventory describes what the collection holds: volumes, dates and campus spellings.
func BuildInventory(events []Event) Inventory {
	inv := Inventory{
		TotalRecords:       len(events),
		RecordsByMonth:     make(map[string]int),
		Campuses:           make([]CampusInventory, 0),
		CampusGroups:       make([]CampusGroup, 0),
		SimilarCampusNames: make([]SimilarNames, 0),
	}

	campuses := make(map[string]*CampusInventory)
	groups := make(map[string]*CampusGroup)
	for _, e := range events {
		inv.RecordsByMonth[e.Month()]++

		day := e.Day()
		if IsValidDateFormat(e.Date) {
			if inv.DateRange.First == "" || day < inv.DateRange.First {
				inv.DateRange.First = day
			}
			if day > inv.DateRange.Last {
				inv.DateRange.Last = day
			}
		}

		c, ok := campuses[e.CampusLocation]
		if !ok {
			c = &CampusInventory{Name: e.CampusLocation, FirstDate: day, LastDate: day}
			campuses[e.CampusLocation] = c
		}
		c.Records++
		if day < c.FirstDate {
			c.FirstDate = day
		}
		if day > c.LastDate {
			c.LastDate = day
		}

		key := core.NormalizeKey(e.CampusLocation)
		g, ok := groups[key]
		if !ok {
			g = &CampusGroup{Key: key}
			groups[key] = g
		}
		g.Records++
		if !c.seenIn(g) {
			g.Names = append(g.Names, e.CampusLocation)
		}
	}

	for _, c := range campuses {
		inv.Campuses = append(inv.Campuses, *c)
	}
	sort.Slice(inv.Campuses, func(i, j int) bool { return inv.Campuses[i].Name < inv.Campuses[j].Name })

	keys := make([]string, 0, len(groups))
	for k, g := range groups {
		sort.Strings(g.Names)
		inv.CampusGroups = append(inv.CampusGroups, *g)
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(inv.CampusGroups, func(i, j int) bool { return inv.CampusGroups[i].Key < inv.CampusGroups[j].Key })

	inv.SimilarCampusNames = SimilarCampusNames(keys)
	return inv
}

func (c *CampusInventory) seenIn(g *CampusGroup) bool {
	for _, n := range g.Names {
		if n == c.Name {
			return true
		}
	}
	return false
}

// SimilarCampusNames pairs distinct names whose difflib similarity ratio is at least 0.85.
// Pairs are sorted by name.
func SimilarCampusNames(names []string) []SimilarNames {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	out := make([]SimilarNames, 0)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i] == sorted[j] {
				continue
			}
			m := difflib.NewMatcher(strings.Split(sorted[i], ""), strings.Split(sorted[j], ""))
			if ratio := m.Ratio(); ratio >= similarNameRatio {
				out = append(out, SimilarNames{A: sorted[i], B: sorted[j], Ratio: round(ratio, 2)})
			}
		}
	}
	return out
}
