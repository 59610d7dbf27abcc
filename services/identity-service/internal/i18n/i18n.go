// Package i18n resolves message keys (failure reasons, SMS bodies, validation errors)
// to localized text.
package i18n

import (
	"errors"
	"fmt"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
)

const (
	DefaultLocale = "en"

	KeySmsVerificationCode = "sms:verification_code"
)

// catalog maps locale to key to text. "{0}" placeholders are filled by Message params.
var catalog = map[string]map[string]string{
	"en": {
		"errorMessage:UserNameOrPasswordInvalid":     "Invalid username or password.",
		"errorMessage:RecaptchaError":                "The recaptcha validation failed. Please try again.",
		"errorMessage:no_access:LockedOut":           "This account is locked. Please try again later.",
		"errorMessage:no_access:NotWithinDateRange":  "This account is not active at this time.",
		"errorMessage:no_access:EmailNotConfirmed":   "You must confirm your email address before signing in.",
		"errorMessage:no_access:AccountNotConfirmed": "You must confirm your account before signing in.",
		"errorMessage.no_access.error":               "An error occurred while signing in.",
		KeySmsVerificationCode:                       "Your verification code is {0}",
	},
	"fr": {
		"errorMessage:UserNameOrPasswordInvalid":     "Nom d'utilisateur ou mot de passe invalide.",
		"errorMessage:RecaptchaError":                "La validation recaptcha a échoué. Veuillez réessayer.",
		"errorMessage:no_access:LockedOut":           "Ce compte est verrouillé. Veuillez réessayer plus tard.",
		"errorMessage:no_access:NotWithinDateRange":  "Ce compte n'est pas actif présentement.",
		"errorMessage:no_access:EmailNotConfirmed":   "Vous devez confirmer votre adresse courriel avant de vous connecter.",
		"errorMessage:no_access:AccountNotConfirmed": "Vous devez confirmer votre compte avant de vous connecter.",
		"errorMessage.no_access.error":               "Une erreur est survenue lors de la connexion.",
		KeySmsVerificationCode:                       "Votre code de vérification est {0}",
	},
}

// Translator looks up messages by locale, falling back to DefaultLocale.
type Translator struct {
	uni *ut.UniversalTranslator
}

// New builds a Translator with the en and fr catalogs loaded.
func New() (*Translator, error) {
	english := en.New()
	uni := ut.New(english, english, fr.New())

	for locale, messages := range catalog {
		trans, found := uni.GetTranslator(locale)
		if !found {
			return nil, fmt.Errorf("no translator for locale %q", locale)
		}
		for key, text := range messages {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("add %s translation %q: %w", locale, key, err)
			}
		}
	}

	return &Translator{uni: uni}, nil
}

// For returns the translator for locale, or the default one if the locale is unknown.
func (t *Translator) For(locale string) ut.Translator {
	trans, _ := t.uni.FindTranslator(locale, DefaultLocale)
	return trans
}

// Message resolves key in locale. Unknown keys resolve to the key itself.
func (t *Translator) Message(locale, key string, params ...string) string {
	text, err := t.For(locale).T(key, params...)
	if err != nil {
		if errors.Is(err, ut.ErrUnknowTranslation) && locale != DefaultLocale {
			return t.Message(DefaultLocale, key, params...)
		}
		return key
	}

	return text
}

// RegisterValidator installs localized messages for validator's built-in tags.
func (t *Translator) RegisterValidator(v *validator.Validate) error {
	registrations := map[string]func(*validator.Validate, ut.Translator) error{
		"en": en_translations.RegisterDefaultTranslations,
		"fr": fr_translations.RegisterDefaultTranslations,
	}

	for locale, register := range registrations {
		trans, found := t.uni.GetTranslator(locale)
		if !found {
			continue
		}
		if err := register(v, trans); err != nil {
			return fmt.Errorf("register %s validator translations: %w", locale, err)
		}
	}

	return nil
}
