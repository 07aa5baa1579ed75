package validate

import (
	"errors"
	"testing"

	"github.com/go-membership-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_SetPassword_Mismatch(t *testing.T) {
	err := Struct(domain.SetPasswordRequest{Token: "t", Password: "password1", ConfirmPassword: "password2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "ConfirmPassword")
}

func TestStruct_SetPassword_TooShort(t *testing.T) {
	err := Struct(domain.SetPasswordRequest{Token: "t", Password: "short", ConfirmPassword: "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'min'")
}

func TestStruct_Verification_RequiresConsent(t *testing.T) {
	err := Struct(domain.VerificationRequest{Email: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AgreeToPrivacy")

	assert.NoError(t, Struct(domain.VerificationRequest{Email: "a@x.com", AgreeToPrivacy: true}))
}

func TestStruct_RegisterMember_Ranges(t *testing.T) {
	ok := domain.RegisterMemberRequest{Age: 13, Gender: domain.GenderOther, HairType: domain.HairCurly}
	assert.NoError(t, Struct(ok))

	young := ok
	young.Age = 12
	assert.Error(t, Struct(young))

	old := ok
	old.Age = 121
	assert.Error(t, Struct(old))

	badHair := ok
	badHair.HairType = "wavy"
	assert.Error(t, Struct(badHair))
}
