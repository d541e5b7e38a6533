package dto

import "time"

type CommissionConfigRequestDTO struct {
	CourseID  *int   `json:"course_id,omitempty" example:"7"`
	TrainerID int    `json:"trainer_id" example:"42"`
	Percent   int    `json:"percent" example:"30"`
	Notes     string `json:"notes,omitempty"`
}

type CommissionConfigUpdateRequestDTO struct {
	Percent int `json:"percent" example:"35"`
}

type CommissionConfigResponseDTO struct {
	ID        int       `json:"id"`
	CourseID  *int      `json:"course_id,omitempty"`
	TrainerID int       `json:"trainer_id"`
	Percent   int       `json:"percent"`
	Active    bool      `json:"active"`
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
