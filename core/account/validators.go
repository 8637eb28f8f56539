package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/candidature/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to account attributes"
)

// InitValidators registers the account package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(accountStructValidation, NewAccount{})
	validate.RegisterStructValidation(accountStructValidation, ChangePassword{})

	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// accountStructValidation does struct level validation on NewAccount and ChangePassword.
func accountStructValidation(sl validator.StructLevel) {
	switch obj := sl.Current().Interface().(type) {
	case NewAccount:
		validatePassword(obj.Password, "mot_de_passe", "Password", []string{obj.Nom, obj.Prenom, obj.Email}, sl)
	case ChangePassword:
		if obj.NewPassword != "" {
			validatePassword(obj.NewPassword, "nouveau_mot_de_passe", "NewPassword", nil, sl)
		}
	}
}

// validatePassword applies the password policy to the provided password:
// - minLen: 8
// - not all numeric
// - no account attrs similarity
func validatePassword(pwd, jsonName, fieldName string, attrs []string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, jsonName, fieldName, tag, "")
	}

	if pwd == "" {
		return // `required` handles this
	}

	if len(pwd) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range []rune(pwd) {
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		reportErr(pwdNotAllNumTag)
		return
	}

	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
