package court

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerYAML = `
courts:
  - code: B01
    name: Bedfordshire Magistrates' Court
    email: bedfordshire@example.test
    regions: ["06", "07"]
    notice_types: both
  - code: L01
    name: Lavender Hill Magistrates' Court
    email: lavenderhill@example.test
    regions: ["20"]
    notice_types: sjp
  - code: X01
    name: Central Traffic Court
    email: traffic@example.test
    notice_types: charge
    match: 'region == "99" and urn contains "/TR/"'
`

func TestParse(t *testing.T) {
	t.Run("parses courts and compiles match rules", func(t *testing.T) {
		register, err := Parse([]byte(registerYAML))
		require.NoError(t, err)

		c, err := register.ByCode("B01")
		require.NoError(t, err)
		assert.Equal(t, "Bedfordshire Magistrates' Court", c.Name)
		assert.Equal(t, []string{"06", "07"}, c.Regions)
	})

	t.Run("rejects entries without a code", func(t *testing.T) {
		_, err := Parse([]byte("courts:\n  - name: Nameless Court\n"))
		assert.Error(t, err)
	})

	t.Run("rejects malformed match rules", func(t *testing.T) {
		_, err := Parse([]byte("courts:\n  - code: B01\n    match: 'region =='\n"))
		assert.Error(t, err)
	})
}

func TestRegisterMatch(t *testing.T) {
	register, err := Parse([]byte(registerYAML))
	require.NoError(t, err)

	t.Run("resolves by region prefix", func(t *testing.T) {
		c, err := register.Match("06/AA/1234567/20")
		require.NoError(t, err)
		assert.Equal(t, "B01", c.Code)

		c, err = register.Match("07/AA/1234567/20")
		require.NoError(t, err)
		assert.Equal(t, "B01", c.Code)
	})

	t.Run("rule expressions win over region prefixes", func(t *testing.T) {
		c, err := register.Match("99/TR/0000001/20")
		require.NoError(t, err)
		assert.Equal(t, "X01", c.Code)
	})

	t.Run("unmatched region is an error", func(t *testing.T) {
		_, err := register.Match("55/AA/1234567/20")
		assert.Error(t, err)
	})

	t.Run("unknown code is an error", func(t *testing.T) {
		_, err := register.ByCode("Z99")
		assert.Error(t, err)
	})
}

func TestFixedNoticeType(t *testing.T) {
	assert.Empty(t, (&Court{NoticeTypes: NoticeBoth}).FixedNoticeType())
	assert.Empty(t, (&Court{}).FixedNoticeType())
	assert.Equal(t, NoticeSJPNotice, (&Court{NoticeTypes: NoticeSJPNotice}).FixedNoticeType())
	assert.Equal(t, NoticeCharge, (&Court{NoticeTypes: NoticeCharge}).FixedNoticeType())
}

func TestRegionCode(t *testing.T) {
	assert.Equal(t, "06", RegionCode("06/AA/1234567/20"))
	assert.Equal(t, "06", RegionCode("06AA123"))
	assert.Equal(t, "6", RegionCode("6"))
}
