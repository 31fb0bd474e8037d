package caspio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere_Constructors(t *testing.T) {
	tests := []struct {
		name     string
		w        Where
		expected string
	}{
		{"eq string", Eq("CompanyName", "Acme"), "CompanyName='Acme'"},
		{"eq escapes quotes", Eq("CompanyName", "O'Brien & Sons"), "CompanyName='O''Brien & Sons'"},
		{"eq bool true", Eq("sts_Active", true), "sts_Active=1"},
		{"eq bool false", Eq("sts_Active", false), "sts_Active=0"},
		{"eq int64", Eq("ID_Customer", int64(42)), "ID_Customer=42"},
		{"ne", Ne("Category", "Webstore"), "Category<>'Webstore'"},
		{"gt", Gt("PK_ID", int64(1000)), "PK_ID>1000"},
		{"is null", IsNull("ID_Customer"), "ID_Customer IS NULL"},
		{"is blank", IsBlank("CompanyName"), "(CompanyName IS NULL OR CompanyName='')"},
		{"like", Like("Description", "%emb%"), "Description LIKE '%emb%'"},
		{"contains", Contains("NOTES", "rush"), "NOTES LIKE '%rush%'"},
		{"in", In("PK_ID", []int64{1, 2, 3}), "PK_ID IN (1,2,3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.w.String())
		})
	}
}

func TestWhere_InEmpty(t *testing.T) {
	assert.True(t, In("PK_ID", nil).Empty())
}

func TestWhere_Combinators(t *testing.T) {
	a := Eq("sts_Active", true)
	b := IsBlank("CompanyName")
	c := IsNull("ID_Customer")

	assert.Equal(t,
		"(sts_Active=1 AND (CompanyName IS NULL OR CompanyName='') AND ID_Customer IS NULL)",
		And(a, b, c).String())
	assert.Equal(t,
		"(sts_Active=1 OR ID_Customer IS NULL)",
		Or(a, c).String())

	// Empty operands are skipped; a single survivor is not parenthesized.
	assert.Equal(t, "sts_Active=1", And(a, Where{}).String())
	assert.True(t, And().Empty())
	assert.True(t, Or(Where{}, Where{}).Empty())
}

func TestWhere_Nesting(t *testing.T) {
	w := And(Eq("sts_Active", true), Or(Eq("Category", "A"), Eq("Category", "B")))
	assert.Equal(t, "(sts_Active=1 AND (Category='A' OR Category='B'))", w.String())
}
