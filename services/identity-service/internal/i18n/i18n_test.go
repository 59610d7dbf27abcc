package i18n

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func TestTranslator_FailureReasons(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	reasons := []model.FailedLoginReason{
		model.ReasonUserNameOrPasswordInvalid,
		model.ReasonRecaptchaError,
		model.ReasonLockedOut,
		model.ReasonNotWithinDateRange,
		model.ReasonEmailNotConfirmed,
		model.ReasonAccountNotConfirmed,
		model.ReasonFailedMfa,
		model.ReasonUnknown,
	}

	for _, locale := range []string{"en", "fr"} {
		for _, reason := range reasons {
			key := reason.MessageKey()
			assert.NotEqual(t, key, tr.Message(locale, key), "%s has no %s translation", key, locale)
		}
	}
}

func TestTranslator_Params(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	assert.Equal(t, "Your verification code is 123456", tr.Message("en", KeySmsVerificationCode, "123456"))
	assert.Equal(t, "Votre code de vérification est 123456", tr.Message("fr", KeySmsVerificationCode, "123456"))
}

func TestTranslator_Fallbacks(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	assert.Equal(t, "Invalid username or password.", tr.Message("de", "errorMessage:UserNameOrPasswordInvalid"))
	assert.Equal(t, "unknown:key", tr.Message("fr", "unknown:key"))
}

func TestTranslator_RegisterValidator(t *testing.T) {
	tr, err := New()
	require.NoError(t, err)

	v := validator.New()
	require.NoError(t, tr.RegisterValidator(v))

	type input struct {
		Email string `validate:"required"`
	}
	err = v.Struct(input{})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Email is a required field", verrs[0].Translate(tr.For("en")))
}
