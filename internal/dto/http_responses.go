package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	RegistrationNotFound = "REGISTRATION_NOT_FOUND"
	TableMissing         = "TABLE_MISSING"
	Unauthorized         = "UNAUTHORIZED"
)

type CreateRegistrationRequest struct {
	FullName         string `json:"full_name" validate:"required,min=2,max=255"`
	NameWithInitials string `json:"name_with_initials" validate:"required,min=2,max=255"`
	FideID           string `json:"fide_id" validate:"max=32"`
	DateOfBirth      string `json:"date_of_birth" validate:"required"`
	Gender           string `json:"gender" validate:"required,gender"`
	ContactNumber    string `json:"contact_number" validate:"required,slphone"`
	AgreeToTerms     bool   `json:"agree_to_terms" validate:"checked"`
	Honeypot         string `json:"honeypot"`
}

type RegistrationResponse struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	NameWithInitials string    `json:"name_with_initials"`
	FideID           string    `json:"fide_id,omitempty"`
	DateOfBirth      string    `json:"date_of_birth"`
	Gender           string    `json:"gender"`
	ContactNumber    string    `json:"contact_number"`
	AgeCategory      string    `json:"age_category"`
	PaymentStatus    string    `json:"payment_status"`
	ReferenceNumber  string    `json:"reference_number"`
	CreatedAt        time.Time `json:"created_at"`
}

type RegistrationCreatedMessage struct {
	RegistrationID  string `json:"registration_id"`
	FullName        string `json:"full_name"`
	AgeCategory     string `json:"age_category"`
	ContactNumber   string `json:"contact_number"`
	ReferenceNumber string `json:"reference_number"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StatsResponse struct {
	TotalRegistered        int `json:"total_registered"`
	TotalPaid              int `json:"total_paid"`
	PaidToThuva            int `json:"paid_to_thuva"`
	PaidToThushanth        int `json:"paid_to_thushanth"`
	PaidPercentOfTotal     int `json:"paid_percent_of_total"`
	ThuvaPercentOfPaid     int `json:"thuva_percent_of_paid"`
	ThushanthPercentOfPaid int `json:"thushanth_percent_of_paid"`
}

type RosterPageResponse struct {
	Rows          []RegistrationResponse `json:"rows"`
	Page          int                    `json:"page"`
	TotalPages    int                    `json:"total_pages"`
	FilteredCount int                    `json:"filtered_count"`
	Stats         StatsResponse          `json:"stats"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func UnauthorizedError(c *ginext.Context) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: Unauthorized,
			Desc: "Invalid or missing credentials",
		},
	})
}

func RegistrationNotFoundError(c *ginext.Context) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: RegistrationNotFound,
			Desc: "Registration not found",
		},
	})
}

func TableMissingError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: TableMissing,
			Desc: "Registrations table not found. Run the migrations before serving traffic.",
		},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
