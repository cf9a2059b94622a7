package core

// DBOrdering describes a single ORDER BY term requested by a client.
// Repositories are expected to whitelist Field before interpolating it.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
