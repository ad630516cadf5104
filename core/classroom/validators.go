package classroom

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/educonnectpro/educonnect/core"
)

var (
	materialTypeTag  = "materialtype"
	materialTypeText = "must be one of notes, dpp, video, test_paper, study_guide or lesson_plan"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(materialTypeTag, func(fl validator.FieldLevel) bool {
		return MaterialType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, materialTypeTag, materialTypeText)
}
