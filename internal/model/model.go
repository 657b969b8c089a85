package model

import (
	"fmt"
	"time"
)

// Payment statuses. A registration starts unpaid and is only ever moved
// between these values through the admin API.
const (
	StatusUnpaid          = "unpaid"
	StatusPaidToThuva     = "paid_to_thuva"
	StatusPaidToThushanth = "paid_to_thushanth"
)

// Age categories, coarsest last.
const (
	CategoryU6   = "U6"
	CategoryU8   = "U8"
	CategoryU10  = "U10"
	CategoryU12  = "U12"
	CategoryU14  = "U14"
	CategoryU16  = "U16"
	CategoryOpen = "Open"
)

var Genders = []string{"Male", "Female", "Prefer not to say"}

var PaymentStatuses = []string{StatusUnpaid, StatusPaidToThuva, StatusPaidToThushanth}

type Registration struct {
	ID               string    `db:"id" json:"id"`
	FullName         string    `db:"full_name" json:"full_name"`
	NameWithInitials string    `db:"name_with_initials" json:"name_with_initials"`
	FideID           string    `db:"fide_id,omitempty" json:"fide_id,omitempty"`
	DateOfBirth      time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender           string    `db:"gender" json:"gender"`
	ContactNumber    string    `db:"contact_number" json:"contact_number"`
	AgeCategory      string    `db:"age_category" json:"age_category"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	ReferenceNumber  string    `db:"reference_number" json:"reference_number"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ValidPaymentStatus reports whether s is one of the three known statuses.
func ValidPaymentStatus(s string) bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DeriveAgeCategory buckets a date of birth into a tournament category.
// Calendar-year approximation: age = current year minus birth year, first
// matching band wins.
func DeriveAgeCategory(dateOfBirth, now time.Time) string {
	age := now.Year() - dateOfBirth.Year()
	switch {
	case age < 6:
		return CategoryU6
	case age < 8:
		return CategoryU8
	case age < 10:
		return CategoryU10
	case age < 12:
		return CategoryU12
	case age < 14:
		return CategoryU14
	case age < 16:
		return CategoryU16
	default:
		return CategoryOpen
	}
}

// NewReferenceNumber builds the human-quotable payment reference:
// "NCC-" plus the last six digits of the epoch-millisecond timestamp.
// Not globally unique; the store id is the real key.
func NewReferenceNumber(now time.Time) string {
	return fmt.Sprintf("NCC-%06d", now.UnixMilli()%1_000_000)
}
