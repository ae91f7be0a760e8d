// Package export turns a campaign flow into a downloadable JSON document.
package export

import (
	"encoding/json"
	"regexp"

	"github.com/dukex/campaignflow/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fallbackSlug = "campaign-flow"

// whitespaceRun matches the same characters as JavaScript's \s, including Unicode spaces.
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

// Filename is "<slug>-<id>.json" where slug is the lowercased name with whitespace runs
// replaced by "-". Names that produce an empty slug use "campaign-flow".
func Filename(flow *models.CampaignFlow) string {
	if flow == nil {
		return fallbackSlug + "-.json"
	}

	return Slug(flow.Name) + "-" + flow.ID + ".json"
}

// Slug lowercases name and replaces each whitespace run with "-", or returns "campaign-flow"
// when the result is empty.
func Slug(name string) string {
	slug := whitespaceRun.ReplaceAllString(cases.Lower(language.Und).String(name), "-")
	if slug == "" {
		return fallbackSlug
	}

	return slug
}

// Marshal renders the flow as indented JSON. Nodes and edges are always arrays.
func Marshal(flow *models.CampaignFlow) ([]byte, error) {
	if flow == nil {
		flow = &models.CampaignFlow{}
	}

	return json.MarshalIndent(flow, "", "  ")
}
