package attendance

import (
	"time"

	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/school"
)

// StudentReport is one student's attendance totals over a month.
type StudentReport struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Presences   int     `json:"presencas"`
	Absences    int     `json:"faltas"`
	Justified   int     `json:"justificadas"`
	Total       int     `json:"total"`
	Percent     float64 `json:"percent"` // presences / total
}

// ClassTotals aggregates a whole class over a month.
type ClassTotals struct {
	Presences int     `json:"presencas"`
	Absences  int     `json:"faltas"`
	Justified int     `json:"justificadas"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"` // presences / total
}

// MonthlyReport consolidates one class's attendance for a calendar month.
type MonthlyReport struct {
	ClassID   string          `json:"class_id"`
	ClassName string          `json:"class_name"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Students  []StudentReport `json:"students"`
	Totals    ClassTotals     `json:"totals"`
}

// MonthlyReport reduces the class's records over the month's inclusive day
// range into per-student and per-class totals. Attendance percentage is
// presences over total records with any status; a student (or class) with
// no records reports 0%.
func (svc *Service) MonthlyReport(classID string, year int, month time.Month) (MonthlyReport, error) {
	cls, err := svc.roster.GetClassByID(classID)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return MonthlyReport{}, ErrClassNotFound
		}
		return MonthlyReport{}, err
	}
	students, err := svc.roster.GetStudentsByClassID(classID)
	if err != nil {
		return MonthlyReport{}, err
	}

	first, last := core.MonthBounds(year, month)
	recs, err := svc.repo.FindByDayRange(first, last)
	if err != nil {
		return MonthlyReport{}, err
	}

	rpt := MonthlyReport{
		ClassID:   cls.ID,
		ClassName: cls.Name,
		Year:      year,
		Month:     int(month),
		Students:  make([]StudentReport, 0, len(students)),
	}

	idx := make(map[string]int, len(students)) // studentID -> index into rpt.Students
	for i, std := range students {
		rpt.Students = append(rpt.Students, StudentReport{StudentID: std.ID, StudentName: std.Name})
		idx[std.ID] = i
	}

	// The store is one flat collection across all classes; records whose
	// student is not enrolled here are someone else's.
	for _, rec := range recs {
		i, ok := idx[rec.StudentID]
		if !ok {
			continue
		}
		sr := &rpt.Students[i]
		switch rec.Status {
		case StatusPresent:
			sr.Presences++
			rpt.Totals.Presences++
		case StatusAbsent:
			sr.Absences++
			rpt.Totals.Absences++
		case StatusJustified:
			sr.Justified++
			rpt.Totals.Justified++
		}
		sr.Total++
		rpt.Totals.Total++
	}

	for i := range rpt.Students {
		rpt.Students[i].Percent = percent(rpt.Students[i].Presences, rpt.Students[i].Total)
	}
	rpt.Totals.Percent = percent(rpt.Totals.Presences, rpt.Totals.Total)
	return rpt, nil
}

func percent(presences, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(presences) / float64(total) * 100
}
