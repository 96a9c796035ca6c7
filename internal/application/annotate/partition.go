package annotate

import (
	"sort"
	"strconv"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
)

// Singles turns every record into a one-item entity keyed by its row index.
func Singles(records []dataset.Record) []annotation.Entity {
	out := make([]annotation.Entity, len(records))
	for i, r := range records {
		out[i] = annotation.Entity{
			Seq:   i,
			Key:   strconv.Itoa(r.Row),
			Brand: r.Brand,
			Items: []annotation.Item{{Index: r.Row, Row: r.Row, Text: r.Text, Weight: r.Weight}},
		}
	}
	return out
}

// GroupOptions controls how records become brand groups.
type GroupOptions struct {
	// MaxItems keeps only the first items of each group after ordering; 0 keeps all.
	MaxItems int
	// ByWeight orders items by descending weight, input order breaking ties.
	ByWeight bool
	// RequireWeight drops records without a numeric weight.
	RequireWeight bool
	// Dedup drops repeated texts within a brand, keeping the first.
	Dedup bool
	// DropBlank drops records whose text is blank.
	DropBlank bool
}

// Groups partitions records into one entity per brand. Brands are ordered
// by name; records without a brand are dropped.
func Groups(records []dataset.Record, opt GroupOptions) []annotation.Entity {
	byBrand := map[string][]dataset.Record{}
	var brands []string
	for _, r := range records {
		if r.Brand == "" || annotation.IsBlank(r.Brand) {
			continue
		}
		if opt.RequireWeight && r.Weight == nil {
			continue
		}
		if opt.DropBlank && annotation.IsBlank(r.Text) {
			continue
		}
		if _, ok := byBrand[r.Brand]; !ok {
			brands = append(brands, r.Brand)
		}
		byBrand[r.Brand] = append(byBrand[r.Brand], r)
	}
	sort.Strings(brands)

	out := make([]annotation.Entity, 0, len(brands))
	for seq, b := range brands {
		recs := byBrand[b]
		if opt.ByWeight {
			sort.SliceStable(recs, func(i, j int) bool { return weight(recs[i]) > weight(recs[j]) })
		}
		if opt.Dedup {
			recs = dedup(recs)
		}
		if opt.MaxItems > 0 && len(recs) > opt.MaxItems {
			recs = recs[:opt.MaxItems]
		}
		items := make([]annotation.Item, len(recs))
		for i, r := range recs {
			items[i] = annotation.Item{Index: i, Row: r.Row, Text: r.Text, Weight: r.Weight}
		}
		out = append(out, annotation.Entity{Seq: seq, Key: b, Brand: b, Group: true, Items: items})
	}
	return out
}

// Expand splits groups into one single-item entity per item and variant,
// keyed "brand/variant/index". Seq follows group, variant, item order.
func Expand(groups []annotation.Entity, variants []string) []annotation.Entity {
	if len(variants) == 0 {
		variants = []string{""}
	}
	var out []annotation.Entity
	for _, g := range groups {
		for _, v := range variants {
			for _, it := range g.Items {
				key := g.Key + "/" + strconv.Itoa(it.Index)
				if v != "" {
					key = g.Key + "/" + v + "/" + strconv.Itoa(it.Index)
				}
				out = append(out, annotation.Entity{
					Seq:     len(out),
					Key:     key,
					Brand:   g.Brand,
					Variant: v,
					Items:   []annotation.Item{it},
				})
			}
		}
	}
	return out
}

func weight(r dataset.Record) float64 {
	if r.Weight == nil {
		return 0
	}
	return *r.Weight
}

func dedup(recs []dataset.Record) []dataset.Record {
	seen := map[string]bool{}
	out := recs[:0:0]
	for _, r := range recs {
		k := annotation.DedupKey(r.Text)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
