package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"chessreg/internal/auth"
	"chessreg/internal/dto"
	"chessreg/internal/exporter"
	"chessreg/internal/model"
	"chessreg/internal/repo"
	"chessreg/internal/roster"
	"chessreg/pkg/validator"
)

// Date-of-birth bounds accepted by the form.
var minDateOfBirth = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Publisher is the slice of the rabbit client the service needs.
type Publisher interface {
	Publish(message []byte) error
}

type Service interface {
	Register(ctx *ginext.Context)
	List(ctx *ginext.Context)
	UpdatePaymentStatus(ctx *ginext.Context)
	Export(ctx *ginext.Context)
	Stats(ctx *ginext.Context)
	AdminLogin(ctx *ginext.Context)
}

type AdminConfig struct {
	Password  string
	JWTSecret []byte
}

type service struct {
	repo   repo.Repository
	log    *zerolog.Logger
	pub    Publisher
	roster *roster.Roster
	admin  AdminConfig
}

func NewService(repo repo.Repository, logger *zerolog.Logger, pub Publisher, admin AdminConfig) Service {
	return &service{
		repo:   repo,
		log:    logger,
		pub:    pub,
		roster: roster.New(),
		admin:  admin,
	}
}

func (s *service) Register(ctx *ginext.Context) {
	var req dto.CreateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse registration request")
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	// Honeypot hit: a hidden field no real user fills in. Respond with the
	// same generic envelope as any other rejection so the check stays
	// invisible, and never touch the store.
	if req.Honeypot != "" {
		s.log.Warn().Bool("bot", true).Msg("honeypot field set, dropping submission")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid submission")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Field 'date_of_birth' must be YYYY-MM-DD")
		return
	}
	now := time.Now()
	if dateOfBirth.After(now) || dateOfBirth.Before(minDateOfBirth) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Field 'date_of_birth' is out of range")
		return
	}

	// The category is always derived here; a client-sent value is ignored.
	registration := &model.Registration{
		FullName:         req.FullName,
		NameWithInitials: req.NameWithInitials,
		FideID:           req.FideID,
		DateOfBirth:      dateOfBirth,
		Gender:           req.Gender,
		ContactNumber:    req.ContactNumber,
		AgeCategory:      model.DeriveAgeCategory(dateOfBirth, now),
		PaymentStatus:    model.StatusUnpaid,
		ReferenceNumber:  model.NewReferenceNumber(now),
		CreatedAt:        now,
	}

	id, err := s.repo.Insert(ctx.Request.Context(), registration)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to insert registration")
		if errors.Is(err, repo.ErrTableMissing) {
			dto.TableMissingError(ctx)
			return
		}
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Str("registration_id", id).
		Str("reference_number", registration.ReferenceNumber).
		Str("age_category", registration.AgeCategory).
		Msg("registration created successfully")

	msg := dto.RegistrationCreatedMessage{
		RegistrationID:  id,
		FullName:        registration.FullName,
		AgeCategory:     registration.AgeCategory,
		ContactNumber:   registration.ContactNumber,
		ReferenceNumber: registration.ReferenceNumber,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal registration-created message")
	} else if err := s.pub.Publish(payload); err != nil {
		// Notification is best effort; the registration itself is stored.
		s.log.Error().Err(err).Msg("failed to publish registration-created message")
	}

	dto.SuccessCreatedResponse(ctx, toResponse(*registration))
}

func (s *service) List(ctx *ginext.Context) {
	q := parseQuery(ctx)

	refresh := ctx.Query("refresh") == "true"
	if refresh || !s.roster.Loaded() {
		if !s.refreshRoster(ctx) {
			return
		}
	}

	page := s.roster.View(q)
	resp := dto.RosterPageResponse{
		Rows:          make([]dto.RegistrationResponse, 0, len(page.Rows)),
		Page:          page.Page,
		TotalPages:    page.TotalPages,
		FilteredCount: page.FilteredCount,
		Stats:         statsToDTO(s.roster.Stats()),
	}
	for _, r := range page.Rows {
		resp.Rows = append(resp.Rows, toResponse(r))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) UpdatePaymentStatus(ctx *ginext.Context) {
	id := ctx.Param("id")
	if id == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid registration ID")
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}
	if !model.ValidPaymentStatus(req.PaymentStatus) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Field 'payment_status' is incorrect")
		return
	}

	if err := s.repo.UpdatePaymentStatusTx(ctx.Request.Context(), id, req.PaymentStatus); err != nil {
		switch {
		case errors.Is(err, repo.ErrRegistrationNotFound):
			dto.RegistrationNotFoundError(ctx)
		case errors.Is(err, repo.ErrTableMissing):
			dto.TableMissingError(ctx)
		default:
			s.log.Error().Err(err).Str("registration_id", id).Msg("failed to update payment status")
			dto.InternalServerError(ctx)
		}
		return
	}

	// The snapshot is only patched once the store has confirmed the write.
	s.roster.Patch(id, req.PaymentStatus)

	s.log.Info().
		Str("registration_id", id).
		Str("payment_status", req.PaymentStatus).
		Msg("payment status updated successfully")

	dto.SuccessResponse(ctx, map[string]string{
		"id":             id,
		"payment_status": req.PaymentStatus,
	})
}

func (s *service) Export(ctx *ginext.Context) {
	q := parseQuery(ctx)

	if !s.roster.Loaded() {
		if !s.refreshRoster(ctx) {
			return
		}
	}

	// Export covers the filtered and sorted view, never just the page.
	records := roster.Sort(
		roster.Filter(s.roster.Snapshot(), q.Filters),
		q.SortField, q.SortDirection,
	)

	format := ctx.DefaultQuery("format", "xlsx")
	switch format {
	case "xlsx":
		ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		ctx.Header("Content-Disposition", "attachment; filename="+exporter.Filename(time.Now(), "xlsx"))
		if err := exporter.WriteXLSX(ctx.Writer, records); err != nil {
			s.log.Error().Err(err).Msg("failed to write xlsx export")
		}
	case "csv":
		ctx.Header("Content-Type", "text/csv")
		ctx.Header("Content-Disposition", "attachment; filename="+exporter.Filename(time.Now(), "csv"))
		if err := exporter.WriteCSV(ctx.Writer, records); err != nil {
			s.log.Error().Err(err).Msg("failed to write csv export")
		}
	default:
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Field 'format' must be xlsx or csv")
	}
}

func (s *service) Stats(ctx *ginext.Context) {
	if !s.roster.Loaded() {
		if !s.refreshRoster(ctx) {
			return
		}
	}
	dto.SuccessResponse(ctx, statsToDTO(s.roster.Stats()))
}

func (s *service) AdminLogin(ctx *ginext.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid JSON format")
		return
	}

	if req.Password == "" || req.Password != s.admin.Password {
		s.log.Warn().Msg("admin login rejected")
		dto.UnauthorizedError(ctx)
		return
	}

	token, expiresAt, err := auth.NewSessionToken(s.admin.JWTSecret, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue admin session token")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.AdminLoginResponse{Token: token, ExpiresAt: expiresAt})
}

// refreshRoster replaces the snapshot wholesale from the store. Reports
// false after writing an error response.
func (s *service) refreshRoster(ctx *ginext.Context) bool {
	records, err := s.repo.GetAll(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch registrations")
		if errors.Is(err, repo.ErrTableMissing) {
			dto.TableMissingError(ctx)
			return false
		}
		dto.InternalServerError(ctx)
		return false
	}
	s.roster.Replace(records)
	return true
}

var filterableFields = []string{
	roster.FieldFullName,
	roster.FieldNameWithInitials,
	roster.FieldFideID,
	roster.FieldDateOfBirth,
	roster.FieldGender,
	roster.FieldContactNumber,
	roster.FieldAgeCategory,
	roster.FieldPaymentStatus,
	roster.FieldReferenceNumber,
	roster.FieldCreatedAt,
}

func parseQuery(ctx *ginext.Context) roster.Query {
	q := roster.Query{
		Filters:       map[string]string{},
		SortField:     ctx.DefaultQuery("sort_field", roster.FieldCreatedAt),
		SortDirection: ctx.DefaultQuery("sort_dir", roster.Desc),
		Page:          1,
	}
	if q.SortDirection != roster.Desc {
		q.SortDirection = roster.Asc
	}
	if page, err := strconv.Atoi(ctx.Query("page")); err == nil {
		q.Page = page
	}
	for _, field := range filterableFields {
		if v := ctx.Query("filter." + field); v != "" {
			q.Filters[field] = v
		}
	}
	return q
}

func statsToDTO(s roster.Stats) dto.StatsResponse {
	return dto.StatsResponse{
		TotalRegistered:        s.TotalRegistered,
		TotalPaid:              s.TotalPaid,
		PaidToThuva:            s.PaidToThuva,
		PaidToThushanth:        s.PaidToThushanth,
		PaidPercentOfTotal:     s.PaidPercentOfTotal,
		ThuvaPercentOfPaid:     s.ThuvaPercentOfPaid,
		ThushanthPercentOfPaid: s.ThushanthPercentOfPaid,
	}
}

func toResponse(r model.Registration) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		ID:               r.ID,
		FullName:         r.FullName,
		NameWithInitials: r.NameWithInitials,
		FideID:           r.FideID,
		DateOfBirth:      r.DateOfBirth.Format("2006-01-02"),
		Gender:           r.Gender,
		ContactNumber:    r.ContactNumber,
		AgeCategory:      r.AgeCategory,
		PaymentStatus:    r.PaymentStatus,
		ReferenceNumber:  r.ReferenceNumber,
		CreatedAt:        r.CreatedAt,
	}
}
