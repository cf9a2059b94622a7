package attendance

import (
	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/school"
)

// ActiveTenure returns the tenure assignment that governs teacherID's
// authority over cls on the given calendar day, if any window covers it.
//
// A teacher may hold overlapping windows on the same class; the winner is
// picked deterministically: greatest StartDay first, then greatest
// CreatedAt. The winner's Active flag decides the verdict, so a later
// deactivated window shadows an earlier active one.
func ActiveTenure(cls school.Class, teacherID, day string) (school.TenureAssignment, bool) {
	var (
		winner school.TenureAssignment
		found  bool
	)
	if teacherID == "" || !core.ValidDay(day) {
		return winner, false
	}
	for _, ta := range cls.Tenures {
		if ta.TeacherID != teacherID || !ta.Covers(day) {
			continue
		}
		if !found ||
			ta.StartDay > winner.StartDay ||
			(ta.StartDay == winner.StartDay && ta.CreatedAt.After(winner.CreatedAt)) {
			winner = ta
			found = true
		}
	}
	return winner, found
}

// WithinTenure reports whether teacherID holds an active, date-bounded
// assignment to cls covering the given day. No match means no authority
// (fail closed): an empty assignment list, an unknown teacher or a day
// outside every window all deny mutation.
func WithinTenure(cls school.Class, teacherID, day string) bool {
	ta, ok := ActiveTenure(cls, teacherID, day)
	return ok && ta.Active
}
