package domain

const (
	StudentStatusPreEnrolled = "pre_enrolled"
	StudentStatusActive      = "active"
	StudentStatusCompleted   = "completed"
	StudentStatusCancelled   = "cancelled"
)

type EnrolledStudent struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RegistrationCode string `json:"registrationCode"`
	CourseID         ID     `json:"courseId"`
	ClassID          ID     `json:"classId"`
	City             string `json:"city"`
	Status           string `json:"status"`
}
