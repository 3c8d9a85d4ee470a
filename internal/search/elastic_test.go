package search

import (
	"testing"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchBodyFuzzyText(t *testing.T) {
	body := buildSearchBody(Query{Text: "paracetamol"})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQ["must"].([]map[string]interface{})
	require.Len(t, must, 1)

	match := must[0]["multi_match"].(map[string]interface{})
	assert.Equal(t, "paracetamol", match["query"])
	assert.Equal(t, 2, match["fuzziness"])
	assert.Equal(t, defaultSearchFields, match["fields"])

	// discontinued records are hidden by default
	mustNot := boolQ["must_not"].([]map[string]interface{})
	require.Len(t, mustNot, 1)
	assert.Equal(t, "DISCONTINUED", mustNot[0]["term"].(map[string]interface{})["status"])
}

func TestBuildSearchBodyPrefix(t *testing.T) {
	body := buildSearchBody(Query{Text: "para", Prefix: true, Fields: []string{"name^3", "generic_name"}})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	match := boolQ["must"].([]map[string]interface{})[0]["multi_match"].(map[string]interface{})
	assert.Equal(t, "bool_prefix", match["type"])
	assert.Nil(t, match["fuzziness"])
	assert.Equal(t, []string{"name^3", "generic_name"}, match["fields"])
}

func TestBuildSearchBodyEmptyTextMatchesAll(t *testing.T) {
	body := buildSearchBody(Query{})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQ["must"].([]map[string]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "match_all")
}

func TestBuildSearchBodyFilters(t *testing.T) {
	rx := true
	body := buildSearchBody(Query{
		Text:                 "crocin",
		Manufacturer:         "GSK",
		Form:                 "tablet",
		Schedule:             "H",
		RequiresPrescription: &rx,
	})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filter := boolQ["filter"].([]map[string]interface{})
	require.Len(t, filter, 4)
	assert.Equal(t, "GSK", filter[0]["match"].(map[string]interface{})["manufacturer_name"])
	assert.Equal(t, "tablet", filter[1]["term"].(map[string]interface{})["form"])
	assert.Equal(t, "H", filter[2]["term"].(map[string]interface{})["schedule"])
	assert.Equal(t, true, filter[3]["term"].(map[string]interface{})["requires_prescription"])
}

func TestBuildSearchBodyStatusOverridesDiscontinuedFilter(t *testing.T) {
	body := buildSearchBody(Query{Status: "DISCONTINUED"})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Nil(t, boolQ["must_not"])
	filter := boolQ["filter"].([]map[string]interface{})
	require.Len(t, filter, 1)
	assert.Equal(t, "DISCONTINUED", filter[0]["term"].(map[string]interface{})["status"])
}

func TestBuildSearchBodyIncludeDiscontinued(t *testing.T) {
	body := buildSearchBody(Query{IncludeDiscontinued: true})

	boolQ := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Nil(t, boolQ["must_not"])
}

func TestBuildSearchBodyPaginationAndSort(t *testing.T) {
	body := buildSearchBody(Query{Page: pagination.Page{Offset: 40, Limit: 20}})

	assert.Equal(t, 40, body["from"])
	assert.Equal(t, 20, body["size"])

	sort := body["sort"].([]map[string]interface{})
	require.Len(t, sort, 2)
	assert.Equal(t, "desc", sort[0]["usage_count"].(map[string]interface{})["order"])
	assert.Equal(t, "asc", sort[1]["canonical_id"].(map[string]interface{})["order"])
}

func TestBuildSearchBodyDefaultPagination(t *testing.T) {
	body := buildSearchBody(Query{})

	assert.Equal(t, 0, body["from"])
	assert.Equal(t, 50, body["size"])
}
