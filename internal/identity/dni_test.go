package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDNICurrentLayout(t *testing.T) {
	d, err := ParseDNI("00412345678@PEREZ@JUAN CARLOS@M@30123456@A@01/02/1985@15/03/2016@239")
	require.NoError(t, err)
	assert.Equal(t, DNI{
		Number:    "30123456",
		LastName:  "Perez",
		FirstName: "Juan Carlos",
		Sex:       "M",
		BirthDate: "01/02/1985",
	}, d)
	assert.Equal(t, "Juan Carlos Perez", d.FullName())
}

func TestParseDNILegacyLayout(t *testing.T) {
	d, err := ParseDNI("@ 7123456    @A@1@GONZALEZ@MARIA DEL CARMEN@ARGENTINA@20/11/1960@F@05/06/2009@00123456789@7055 @05/06/2024@")
	require.NoError(t, err)
	assert.Equal(t, "7123456", d.Number)
	assert.Equal(t, "Gonzalez", d.LastName)
	assert.Equal(t, "Maria Del Carmen", d.FirstName)
	assert.Equal(t, "F", d.Sex)
	assert.Equal(t, "20/11/1960", d.BirthDate)
}

func TestParseDNIRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"30123456",
		"a@b@c",
		"00412345678@PEREZ@JUAN@M@12@A@01/02/1985",
		"00412345678@@JUAN@M@30123456@A@01/02/1985",
	} {
		_, err := ParseDNI(raw)
		assert.ErrorIs(t, err, ErrInvalidDNI, raw)
	}
}

func TestNormalizeDNI(t *testing.T) {
	assert.Equal(t, "30123456", NormalizeDNI("30.123.456"))
	assert.Equal(t, "30123456", NormalizeDNI("00412345678@PEREZ@JUAN@M@30123456@A@01/02/1985@15/03/2016"))
	assert.Equal(t, "93123456", NormalizeDNI("M93123456"))
	assert.Empty(t, NormalizeDNI("not a document"))
	assert.Empty(t, NormalizeDNI(""))
}
