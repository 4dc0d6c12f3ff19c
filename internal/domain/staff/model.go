package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

// StaffType maps to the staff_type table (doctor, nurse, pharmacist, ...).
type StaffType struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TypeCode  string    `db:"type_code" json:"type_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRetired  Status = "retired"
)

type LaborType string

const (
	LaborFullTime LaborType = "full_time"
	LaborPartTime LaborType = "part_time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var (
	validStatuses   = map[Status]bool{StatusActive: true, StatusInactive: true, StatusRetired: true}
	validLaborTypes = map[LaborType]bool{LaborFullTime: true, LaborPartTime: true}
	validGenders    = map[Gender]bool{GenderMale: true, GenderFemale: true, GenderOther: true}
)

// Staff maps to the staff table.
type Staff struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	StaffCode      string     `db:"staff_code" json:"staff_code"`
	StaffTypeID    uuid.UUID  `db:"staff_type_id" json:"staff_type_id"`
	Name           string     `db:"name" json:"name"`
	ContactInfo    *string    `db:"contact_info" json:"contact_info,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	Gender         Gender     `db:"gender" json:"gender,omitempty"`
	Faculty        *string    `db:"faculty" json:"faculty,omitempty"`
	Department     *string    `db:"department" json:"department,omitempty"`
	LicenseNumber  *string    `db:"license_number" json:"license_number,omitempty"`
	Qualification  *string    `db:"qualification" json:"qualification,omitempty"`
	ExperienceYear int        `db:"experience_year" json:"experience_year"`
	Status         Status     `db:"status" json:"status"`
	LaborType      LaborType  `db:"labor_type" json:"labor_type"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// MaxRank is the highest qualification rank.
const MaxRank = 15

// QualificationRank grows by one every three years of experience, capped at MaxRank.
func QualificationRank(experienceYears int) int {
	if experienceYears < 0 {
		experienceYears = 0
	}
	rank := experienceYears/3 + 1
	if rank > MaxRank {
		return MaxRank
	}
	return rank
}

func (s *Staff) Rank() int { return QualificationRank(s.ExperienceYear) }

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ShiftStartHour is the hour after which a check-in counts as late.
const ShiftStartHour = 8

// Attendance maps to the staff_attendance table. Status and WorkHours are
// derived from the check times.
type Attendance struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	StaffID   uuid.UUID        `db:"staff_id" json:"staff_id"`
	Date      time.Time        `db:"date" json:"date"`
	CheckIn   *time.Time       `db:"check_in" json:"check_in,omitempty"`
	CheckOut  *time.Time       `db:"check_out" json:"check_out,omitempty"`
	Status    AttendanceStatus `db:"-" json:"status"`
	WorkHours float64          `db:"-" json:"work_hours"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceStatusOf classifies a day: no check-in is absent, a check-in
// after ShiftStartHour on that date is late.
func AttendanceStatusOf(date time.Time, checkIn *time.Time) AttendanceStatus {
	if checkIn == nil {
		return AttendanceAbsent
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, ShiftStartHour, 0, 0, 0, checkIn.Location())
	if checkIn.After(start) {
		return AttendanceLate
	}
	return AttendancePresent
}

// WorkHours is the time between check-in and check-out in hours, or 0 when
// either is missing.
func WorkHours(checkIn, checkOut *time.Time) (float64, error) {
	if checkIn == nil || checkOut == nil {
		return 0, nil
	}
	if checkOut.Before(*checkIn) {
		return 0, apperr.Validation("check_out cannot be before check_in")
	}
	return checkOut.Sub(*checkIn).Hours(), nil
}

// derive fills Status and WorkHours. Status is set even when the check-in
// and check-out pair is invalid; hours are then zero.
func (a *Attendance) derive() error {
	a.Status = AttendanceStatusOf(a.Date, a.CheckIn)
	h, err := WorkHours(a.CheckIn, a.CheckOut)
	a.WorkHours = h
	return err
}

type PerformanceState string

const (
	PerformanceDraft     PerformanceState = "draft"
	PerformanceConfirmed PerformanceState = "confirmed"
	PerformanceApproved  PerformanceState = "approved"
)

// Performance maps to the staff_performance table. Scores are computed
// from the month's attendance on every read.
type Performance struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	StaffID         uuid.UUID        `db:"staff_id" json:"staff_id"`
	Month           int              `db:"month" json:"month"`
	Year            int              `db:"year" json:"year"`
	ManagerNote     *string          `db:"manager_note" json:"manager_note,omitempty"`
	State           PerformanceState `db:"state" json:"state"`
	AttendanceScore float64          `db:"-" json:"attendance_score"`
	WorkHours       float64          `db:"-" json:"work_hours"`
	Score           float64          `db:"-" json:"score"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Evaluate scores a month of attendance rows.
func Evaluate(rows []*Attendance) (attendanceScore, workHours, score float64) {
	if len(rows) == 0 {
		return 0, 0, 0
	}
	var present, late int
	for _, a := range rows {
		switch AttendanceStatusOf(a.Date, a.CheckIn) {
		case AttendancePresent:
			present++
		case AttendanceLate:
			late++
		}
		h, _ := WorkHours(a.CheckIn, a.CheckOut)
		workHours += h
	}
	attendanceScore = float64(present) - float64(late)*0.5
	return attendanceScore, workHours, attendanceScore + workHours*0.1
}

var performanceTransitions = map[string]struct {
	from PerformanceState
	to   PerformanceState
}{
	"confirm": {PerformanceDraft, PerformanceConfirmed},
	"approve": {PerformanceConfirmed, PerformanceApproved},
}

func nextPerformanceState(from PerformanceState, action string) (PerformanceState, error) {
	t, ok := performanceTransitions[action]
	if !ok {
		return "", apperr.Validation("unknown performance action: %s", action)
	}
	if t.from != from {
		return "", apperr.User("cannot %s a performance review in state %s", action, from)
	}
	return t.to, nil
}
