package candidature

import (
	"regexp"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/candidature/core"
)

var (
	frPhoneTag   = "frphone"
	frPhoneText  = "invalid French phone number; e.g. +33612345678 or 0612345678"
	frPhoneRegex = regexp.MustCompile(`^(?:(?:\+33|0)[1-9])(?:[-.\s]?[0-9]{2}){4}$`)

	formationTag  = "formation"
	formationText = "unknown formation"

	statutProTag  = "statutpro"
	statutProText = "unknown professional status"

	pastDateTag  = "pastdate"
	pastDateText = "must be a valid date, not in the future"

	dateLayout = "2006-01-02"
)

// InitValidators registers the candidature package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(frPhoneTag, frPhoneValidation)
	core.RegisterCustomTranslation(validate, translator, frPhoneTag, frPhoneText)

	_ = validate.RegisterValidation(formationTag, formationValidation)
	core.RegisterCustomTranslation(validate, translator, formationTag, formationText)

	_ = validate.RegisterValidation(statutProTag, statutProValidation)
	core.RegisterCustomTranslation(validate, translator, statutProTag, statutProText)

	_ = validate.RegisterValidation(pastDateTag, pastDateValidation)
	core.RegisterCustomTranslation(validate, translator, pastDateTag, pastDateText)
}

func parseDate(val string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, val); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, val)
}

// Custom Validators

// frPhoneValidation matches French phone numbers ("+33..." or "0...").
func frPhoneValidation(fl validator.FieldLevel) bool {
	return frPhoneRegex.MatchString(fl.Field().String())
}

// formationValidation checks that the value is one of the offered Formations.
func formationValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, f := range Formations {
		if f == val {
			return true
		}
	}
	return false
}

// statutProValidation checks the value against StatutsProfessionnels.
func statutProValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, s := range StatutsProfessionnels {
		if s == val {
			return true
		}
	}
	return false
}

// pastDateValidation accepts parseable dates up to now.
func pastDateValidation(fl validator.FieldLevel) bool {
	t, err := parseDate(fl.Field().String())
	if err != nil {
		return false
	}
	return !t.After(time.Now())
}
