package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

func group(texts ...string) annotation.Entity {
	e := annotation.Entity{Key: "Acme", Brand: "Acme", Group: true}
	for i, t := range texts {
		e.Items = append(e.Items, annotation.Item{Index: i, Row: i + 10, Text: t})
	}
	return e
}

func TestCleanNormalizesAndCaps(t *testing.T) {
	b := Builder{MaxChars: 10}
	assert.Equal(t, "a b c", b.Clean("  a\n\tb \x00\x07 c  "))
	assert.Equal(t, "0123456789…", b.Clean("0123456789abc"))
	assert.Equal(t, "ąčęėįšųūž", Builder{MaxChars: 9}.Clean("ąčęėįšųūž"))
}

func TestArchetypePrompt(t *testing.T) {
	b := Builder{Media: annotation.MediaPR, MaxChars: 1000}
	e := annotation.Entity{Items: []annotation.Item{{Text: "We  keep\nyour data safe"}}}

	p := b.Archetype(e)
	assert.Equal(t, "We keep your data safe", p.User)
	assert.Contains(t, p.System, "16. The Optimizer")
	assert.Contains(t, p.System, "PR materials")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(p.System), ArchetypeMarker+" [Top Archetype]"))
}

func TestSelectionPromptTagsIndicesAndCapsK(t *testing.T) {
	b := Builder{Media: annotation.MediaAds, MaxChars: 1000, TopK: 10}
	e := group("first ad", "second ad", "third ad")

	p, err := b.Selection(e)
	require.NoError(t, err)
	assert.Contains(t, p.User, "choose the 3 most ORIGINAL ads")
	assert.Contains(t, p.User, `{"idx":0,"reach":null,"text":"first ad"}`)
	assert.Contains(t, p.User, `{"idx":2,"reach":null,"text":"third ad"}`)
}

func TestBuildIsPure(t *testing.T) {
	b := Builder{Media: annotation.MediaSocial, MaxChars: 50, TopK: 2}
	e := group("one", "two", "three")
	for _, k := range annotation.Kinds {
		if k == annotation.KindAffinity {
			continue
		}
		p1, err1 := b.Build(k, e)
		p2, err2 := b.Build(k, e)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, p1, p2, k)
	}
	assert.Equal(t, "one", e.Items[0].Text)
}

func TestPillarsPromptTagsItems(t *testing.T) {
	b := Builder{Media: annotation.MediaSocial, MaxChars: 1000}
	p := b.Pillars(group("Saturday workshop", "Big sale"))
	assert.Equal(t, "[0] Saturday workshop\n[1] Big sale", p.User)
	assert.Contains(t, p.System, "at most 2-3 themes")
	assert.Contains(t, p.System, "SHARE: [Percentage of content]%")
}

func TestAdvantagesPrompt(t *testing.T) {
	b := Builder{Media: annotation.MediaSocial, MaxChars: 1000}
	p, err := b.Advantages(group("Free parking", "Late opening"))
	require.NoError(t, err)
	assert.Contains(t, p.System, "post_index")
	assert.Contains(t, p.User, `"company":"Acme"`)
	assert.Contains(t, p.User, `{"index":1,"text":"Late opening","reach":null}`)
}

func TestAffinityPrompt(t *testing.T) {
	b := Builder{Media: annotation.MediaSocial, MaxChars: 1000}
	e := annotation.Entity{Variant: Personas[0].Name, Items: []annotation.Item{{Text: "Toy sale"}}}

	p, err := b.Affinity(e)
	require.NoError(t, err)
	assert.Equal(t, "Toy sale", p.User)
	assert.Contains(t, p.System, "from 1 to 7")
	assert.Contains(t, p.System, "Household Savings & Discounts: [score]")

	_, err = b.Affinity(annotation.Entity{Variant: "Nobody", Items: e.Items})
	assert.Error(t, err)
}

func TestPersonaDimensionsStartWithLabel(t *testing.T) {
	for _, p := range Personas {
		dims := p.Dimensions()
		require.Len(t, dims, 3)
		for i, d := range dims {
			assert.Equal(t, p.Criteria[i].Label, d.Aliases[0])
		}
	}
}

func TestCrossBrandPrompt(t *testing.T) {
	b := Builder{Media: annotation.MediaAds, CrossBrandChars: 20}
	e := group("a very long and original advertisement text", "plain")
	snips := b.Snippets(e, annotation.Selection{Indices: []int{0}})
	require.Len(t, snips, 1)
	assert.Equal(t, "a very long and orig…", snips[0].Text)

	p, err := b.CrossBrand([]BrandSelection{{Brand: "Acme", Selected: snips}})
	require.NoError(t, err)
	assert.Contains(t, p.User, `"brand":"Acme"`)
	assert.Contains(t, p.User, "Rank the brands")
}
