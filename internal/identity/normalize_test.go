package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail_TrimAndLowercase(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "joao.silva@gmail.com", NormalizeEmail("Joao.Silva@Gmail.Com"))
}

func TestNormalizeEmail_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeEmail(""))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizePhone_DigitsOnly(t *testing.T) {
	assert.Equal(t, "11988887777", NormalizePhone("(11) 98888-7777"))
	assert.Equal(t, "11988887777", NormalizePhone("11 9 8888 7777"))
}

func TestNormalizePhone_StripsCountryCode(t *testing.T) {
	assert.Equal(t, NormalizePhone("11988887777"), NormalizePhone("+55 11 98888-7777"))
	assert.Equal(t, "11988887777", NormalizePhone("+5511988887777"))
}

func TestNormalizePhone_ShortNumberKeeps55(t *testing.T) {
	// 10 digits starting with 55 is a local number, not a country code.
	assert.Equal(t, "5511988877", NormalizePhone("5511988877"))
}

func TestNormalizePhone_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizePhone(""))
	assert.Equal(t, "", NormalizePhone("abc"))
}
