package activity

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/seatplan/core"
)

var (
	markValueTag  = "markvalue"
	markValueText = "mark value cannot exceed the maximum mark value"
)

// InitValidators registers the activity validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(quizStructValidation, NewQuizLog{})
	core.RegisterCustomTranslation(validate, translator, markValueTag, markValueText)
}

// quizStructValidation checks that a quiz mark does not exceed its maximum.
func quizStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuizLog)
	if nq.MarkValue != nil && nq.MaxMarkValue != nil && *nq.MarkValue > *nq.MaxMarkValue {
		sl.ReportError(nq.MarkValue, "mark_value", "MarkValue", markValueTag, "")
	}
}
