package school

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/presencaapp/presenca/core"
)

var (
	periodTag  = "period"
	periodText = "invalid class period"

	tenureWindowTag  = "tenurewindow"
	tenureWindowText = "end day cannot precede start day"
)

// InitValidators registers this package's custom validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(periodTag, periodValidation)
	core.RegisterCustomTranslation(validate, translator, periodTag, periodText)

	validate.RegisterStructValidation(tenureStructValidation, NewTenureAssignment{})
	core.RegisterCustomTranslation(validate, translator, tenureWindowTag, tenureWindowText)
}

// periodValidation checks that the provided class period is in AllPeriods
func periodValidation(fl validator.FieldLevel) bool {
	sort.Strings(AllPeriods)
	period := fl.Field().String()
	idx := sort.SearchStrings(AllPeriods, period)
	return idx < len(AllPeriods) && AllPeriods[idx] == period
}

// tenureStructValidation checks that a tenure window is well-formed.
// StartDay and EndDay are already shape-checked by the isoday tag;
// "YYYY-MM-DD" strings order lexicographically.
func tenureStructValidation(sl validator.StructLevel) {
	if nta, ok := sl.Current().Interface().(NewTenureAssignment); ok {
		if core.ValidDay(nta.StartDay) && core.ValidDay(nta.EndDay) && nta.EndDay < nta.StartDay {
			sl.ReportError(nta.EndDay, "end_day", "EndDay", tenureWindowTag, "")
		}
	}
}
