package attendance

// Status is a student's attendance status for one class day.
type Status string

const (
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
	StatusJustified Status = "justified"
)

var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusJustified}

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusJustified:
		return true
	}
	return false
}

// Record is one student's attendance for one calendar day.
// Natural key: (Day, StudentID); there is no surrogate id. A record is
// created the first time a batch is committed for its (day, class) and is
// thereafter replaced in place by later commits; it is never deleted.
type Record struct {
	Day       string `json:"day" db:"day"` // "YYYY-MM-DD"
	StudentID string `json:"student_id" db:"student_id"`
	Status    Status `json:"status" db:"status"`
	Note      string `json:"note" db:"note"`
}

// Key returns the record's natural key.
func (r Record) Key() RecordKey {
	return RecordKey{Day: r.Day, StudentID: r.StudentID}
}

type RecordKey struct {
	Day       string
	StudentID string
}

// Mark is one student's draft entry in a commit payload.
type Mark struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	Status    Status `json:"status" validate:"required,status"`
	Note      string `json:"note"`
}
