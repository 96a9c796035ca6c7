package annotation

import "fmt"

// Kind selects the analysis template family.
type Kind string

const (
	KindArchetype     Kind = "archetype"
	KindCreativity    Kind = "creativity"
	KindKeyAdvantages Kind = "key_advantages"
	KindPillars       Kind = "content_pillars"
	KindAffinity      Kind = "audience_affinity"
)

// Kinds lists every analysis in presentation order.
var Kinds = []Kind{KindArchetype, KindCreativity, KindKeyAdvantages, KindPillars, KindAffinity}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	switch s {
	case "compos":
		return KindArchetype, nil
	case "advantages":
		return KindKeyAdvantages, nil
	case "pillars":
		return KindPillars, nil
	case "affinity":
		return KindAffinity, nil
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

// Media is the content source a dataset comes from.
type Media string

const (
	MediaAds    Media = "ads"
	MediaSocial Media = "social_media"
	MediaPR     Media = "pr"
)

var MediaTypes = []Media{MediaAds, MediaSocial, MediaPR}

func ParseMedia(s string) (Media, error) {
	for _, m := range MediaTypes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown media type %q", s)
}
