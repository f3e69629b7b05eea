package jobs

type JobType string

const (
	JobDeleteUser JobType = "user:delete"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobDeleteUser:
		return true
	default:
		return false
	}
}
