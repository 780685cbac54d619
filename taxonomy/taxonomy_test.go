package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"cs.AI", "math.NT", "stat.ML", "hep-th", "q-fin.PR"} {
		c, err := Parse(s)
		require.NoError(t, err, s)
		require.Equal(t, s, c.String())
		require.True(t, c.Valid())
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "cs.XX", "bogus", "bogus.AI", "hep-th.AI", "cs.ai"} {
		_, err := Parse(s)
		require.ErrorIs(t, err, ErrUnknownCategory, s)
	}
}

func TestArchiveLevelCategory(t *testing.T) {
	require.True(t, Category{Archive: "hep-ph"}.Valid())
	require.True(t, Category{Archive: "cs"}.Valid(), "classed archive at archive level")
	require.False(t, Category{Archive: "hep-ph", SubjectClass: "XX"}.Valid())
}

func TestExactMatchEquality(t *testing.T) {
	// Archive-level and subject-class categories are distinct buckets.
	require.NotEqual(t, Category{Archive: "cs"}, Category{Archive: "cs", SubjectClass: "AI"})
}

func TestSubjectClasses(t *testing.T) {
	require.Contains(t, SubjectClasses("cs"), "LG")
	require.Nil(t, SubjectClasses("hep-th"))
	require.Nil(t, SubjectClasses("nope"))
}

func TestAllCategoriesValid(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for _, c := range all {
		require.True(t, c.Valid(), c.String())
	}
}
