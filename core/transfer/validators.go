package transfer

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/seatplan/core"
)

const exportRangeTag = "exportrange"

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(exportRangeTag, func(fl validator.FieldLevel) bool {
		return IsRelativeRange(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, exportRangeTag, "{0} must be one of: Past 24 hours, Past 7 days, Past 30 days")
}

func IsRelativeRange(s string) bool {
	_, ok := relativeRanges[s]
	return ok
}
