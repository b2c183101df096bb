package mailing

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/seatplan/core"
)

const weekdayTag = "weekday"

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	days := make(map[string]bool, len(Weekdays))
	for _, d := range Weekdays {
		days[d] = true
	}
	_ = validate.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		return days[fl.Field().String()]
	})
	core.RegisterCustomTranslation(validate, translator, weekdayTag, "{0} must be one of: Sun, Mon, Tue, Wed, Thu, Fri, Sat")
}
