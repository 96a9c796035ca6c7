package prompt

import "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"

// Profile holds the wording that changes between media types.
type Profile struct {
	// Items is the plural noun used in prompts ("ads", "PR materials").
	Items string
	// Owner is the noun for the group ("brand", "company").
	Owner  string
	Owners string
	// IndexKey is the example reference key requested in JSON answers.
	IndexKey string
	// Channel describes the source ("Facebook posts", "advertising copy").
	Channel string
	// Relevance is an optional extra selection rule.
	Relevance string
}

var profiles = map[annotation.Media]Profile{
	annotation.MediaAds: {
		Items:    "ads",
		Owner:    "brand",
		Owners:   "brands",
		IndexKey: "ad_index",
		Channel:  "advertising copy",
	},
	annotation.MediaPR: {
		Items:     "PR materials",
		Owner:     "company",
		Owners:    "companies",
		IndexKey:  "article_index",
		Channel:   "PR content and press releases",
		Relevance: "Only consider items that are genuinely about the company; ignore articles that mention it as a side note.",
	},
	annotation.MediaSocial: {
		Items:     "posts",
		Owner:     "company",
		Owners:    "companies",
		IndexKey:  "post_index",
		Channel:   "social media posts",
		Relevance: "Only consider posts that are genuinely about the company; ignore posts where it is only mentioned in passing.",
	},
}

// ProfileFor returns the wording for m, defaulting to social media.
func ProfileFor(m annotation.Media) Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[annotation.MediaSocial]
}
