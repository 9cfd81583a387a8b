package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExpansion = `{
  "title": "PawPath",
  "tagline": "Walks on demand",
  "description": "A marketplace for dog walks. Vetted walkers. Live tracking.",
  "targetAudience": ["busy professionals", "elderly owners", "travellers"],
  "keyFeatures": ["booking", "tracking", "reviews", "insurance"],
  "potentialChallenges": ["trust", "liability", "seasonality"],
  "pivotOptions": [
    {"name": "PawSit", "description": "Pet sitting"},
    {"name": "PawVet", "description": "Vet visits"},
    {"name": "PawB2B", "description": "Corporate perks"}
  ]
}`

func TestExpansionRequiresAllSevenFields(t *testing.T) {
	n := Expansion()
	assert.Equal(t, ExpansionRequired, n.Required)
	for _, name := range ExpansionRequired {
		_, ok := n.Property(name)
		assert.True(t, ok, "property %s declared", name)
	}
}

func TestValidateAcceptsCompleteExpansion(t *testing.T) {
	require.NoError(t, Validate(Expansion(), []byte(validExpansion)))
}

func TestValidateRejectsMissingField(t *testing.T) {
	err := Validate(Expansion(), []byte(`{"title":"x","tagline":"y","description":"z","targetAudience":[],"keyFeatures":[],"potentialChallenges":[]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "$.pivotOptions", verr.Path)
}

func TestValidateRejectsNullField(t *testing.T) {
	err := Validate(Expansion(), []byte(`{"title":null,"tagline":"y","description":"z","targetAudience":[],"keyFeatures":[],"potentialChallenges":[],"pivotOptions":[]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "$.title", verr.Path)
}

func TestValidateRejectsWrongItemShape(t *testing.T) {
	cases := map[string]string{
		"string list holds number": `{"title":"x","tagline":"y","description":"z","targetAudience":[1],"keyFeatures":[],"potentialChallenges":[],"pivotOptions":[]}`,
		"pivot missing name":       `{"title":"x","tagline":"y","description":"z","targetAudience":[],"keyFeatures":[],"potentialChallenges":[],"pivotOptions":[{"description":"d"}]}`,
		"pivot is a string":        `{"title":"x","tagline":"y","description":"z","targetAudience":[],"keyFeatures":[],"potentialChallenges":[],"pivotOptions":["p"]}`,
		"features not an array":    `{"title":"x","tagline":"y","description":"z","targetAudience":[],"keyFeatures":"a","potentialChallenges":[],"pivotOptions":[]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var verr *ValidationError
			assert.ErrorAs(t, Validate(Expansion(), []byte(raw)), &verr)
		})
	}
}

func TestValidateRejectsNonJSON(t *testing.T) {
	err := Validate(Expansion(), []byte("Sure! Here is your idea"))
	assert.True(t, errors.Is(err, ErrNotJSON))
}

func TestJSONSchemaMirrorsDescriptor(t *testing.T) {
	doc := JSONSchema(Expansion())
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, ExpansionRequired, doc["required"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 7)
	pivots := props["pivotOptions"].(map[string]any)
	items := pivots["items"].(map[string]any)
	assert.Equal(t, []string{"name", "description"}, items["required"])
}
