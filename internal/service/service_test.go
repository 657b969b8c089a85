package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"chessreg/internal/auth"
	"chessreg/internal/dto"
	"chessreg/internal/model"
	"chessreg/internal/repo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRepo struct {
	regs      []model.Registration
	nextID    int
	insertErr error
	getAllErr error
	updateErr error
}

func (f *fakeRepo) Insert(_ context.Context, reg *model.Registration) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	reg.ID = fmt.Sprintf("id-%03d", f.nextID)
	f.regs = append(f.regs, *reg)
	return reg.ID, nil
}

func (f *fakeRepo) GetAll(_ context.Context) ([]model.Registration, error) {
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	out := make([]model.Registration, len(f.regs))
	copy(out, f.regs)
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*model.Registration, error) {
	for i := range f.regs {
		if f.regs[i].ID == id {
			reg := f.regs[i]
			return &reg, nil
		}
	}
	return nil, repo.ErrRegistrationNotFound
}

func (f *fakeRepo) UpdatePaymentStatusTx(_ context.Context, id, newStatus string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.regs {
		if f.regs[i].ID == id {
			f.regs[i].PaymentStatus = newStatus
			return nil
		}
	}
	return repo.ErrRegistrationNotFound
}

func (f *fakeRepo) MigrateUp(string) error   { return nil }
func (f *fakeRepo) MigrateDown(string) error { return nil }

type fakePublisher struct {
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(message []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

type envelope struct {
	Status string          `json:"status"`
	Error  *dto.Error      `json:"error"`
	Data   json.RawMessage `json:"data"`
}

var testAdmin = AdminConfig{Password: "hunter2", JWTSecret: []byte("test-secret")}

func newService(f *fakeRepo, pub Publisher) Service {
	log := zerolog.Nop()
	return NewService(f, &log, pub, testAdmin)
}

func doJSON(handler func(*ginext.Context), method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func validRegisterBody() map[string]any {
	return map[string]any{
		"full_name":          "Anna Smith",
		"name_with_initials": "A. Smith",
		"fide_id":            "12345678",
		"date_of_birth":      fmt.Sprintf("%d-05-10", time.Now().Year()-11),
		"gender":             "Female",
		"contact_number":     "0771234567",
		"agree_to_terms":     true,
		"honeypot":           "",
	}
}

func TestRegisterSuccess(t *testing.T) {
	f := &fakeRepo{}
	pub := &fakePublisher{}
	s := newService(f, pub)

	w, env := doJSON(s.Register, "POST", "/v1/registrations", validRegisterBody())
	require.Equal(t, 201, w.Code, w.Body.String())
	require.Equal(t, "ok", env.Status)

	var resp dto.RegistrationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "U12", resp.AgeCategory, "birth year currentYear-11 lands in U12")
	assert.Equal(t, model.StatusUnpaid, resp.PaymentStatus)
	assert.Regexp(t, `^NCC-\d{6}$`, resp.ReferenceNumber)
	assert.NotEmpty(t, resp.ID)

	require.Len(t, f.regs, 1)
	assert.Equal(t, model.StatusUnpaid, f.regs[0].PaymentStatus)

	// A registration-created message went out for the worker.
	require.Len(t, pub.messages, 1)
	var msg dto.RegistrationCreatedMessage
	require.NoError(t, json.Unmarshal(pub.messages[0], &msg))
	assert.Equal(t, resp.ID, msg.RegistrationID)
	assert.Equal(t, resp.ReferenceNumber, msg.ReferenceNumber)
}

func TestRegisterHoneypot(t *testing.T) {
	f := &fakeRepo{}
	pub := &fakePublisher{}
	s := newService(f, pub)

	body := validRegisterBody()
	body["honeypot"] = "https://spam.example"
	w, env := doJSON(s.Register, "POST", "/v1/registrations", body)

	assert.Equal(t, 400, w.Code)
	require.NotNil(t, env.Error)
	// Generic rejection, nothing hinting at the honeypot.
	assert.Equal(t, "Invalid submission", env.Error.Desc)
	assert.Empty(t, f.regs, "bot submissions never reach the store")
	assert.Empty(t, pub.messages)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"short full name", func(b map[string]any) { b["full_name"] = "A" }},
		{"bad phone", func(b map[string]any) { b["contact_number"] = "123456" }},
		{"bad gender", func(b map[string]any) { b["gender"] = "Other" }},
		{"terms not agreed", func(b map[string]any) { b["agree_to_terms"] = false }},
		{"missing dob", func(b map[string]any) { b["date_of_birth"] = "" }},
		{"future dob", func(b map[string]any) { b["date_of_birth"] = fmt.Sprintf("%d-01-01", time.Now().Year()+1) }},
		{"dob before 1900", func(b map[string]any) { b["date_of_birth"] = "1899-12-31" }},
		{"unparseable dob", func(b map[string]any) { b["date_of_birth"] = "10/05/2015" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRepo{}
			s := newService(f, &fakePublisher{})
			body := validRegisterBody()
			tt.mutate(body)
			w, env := doJSON(s.Register, "POST", "/v1/registrations", body)
			assert.Equal(t, 400, w.Code)
			require.NotNil(t, env.Error)
			assert.Empty(t, f.regs)
		})
	}
}

func TestRegisterOptionalFideID(t *testing.T) {
	f := &fakeRepo{}
	s := newService(f, &fakePublisher{})
	body := validRegisterBody()
	body["fide_id"] = ""
	w, _ := doJSON(s.Register, "POST", "/v1/registrations", body)
	assert.Equal(t, 201, w.Code, w.Body.String())
}

func TestRegisterStoreFailure(t *testing.T) {
	f := &fakeRepo{insertErr: errors.New("connection refused")}
	pub := &fakePublisher{}
	s := newService(f, pub)

	w, env := doJSON(s.Register, "POST", "/v1/registrations", validRegisterBody())
	assert.Equal(t, 500, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ServiceUnavailable, env.Error.Code)
	assert.Empty(t, pub.messages, "no notification for a failed insert")
}

func TestRegisterTableMissing(t *testing.T) {
	f := &fakeRepo{insertErr: fmt.Errorf("insert: %w", repo.ErrTableMissing)}
	s := newService(f, &fakePublisher{})

	w, env := doJSON(s.Register, "POST", "/v1/registrations", validRegisterBody())
	assert.Equal(t, 500, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.TableMissing, env.Error.Code)
}

// Publish failures are logged, never surfaced: the registration is stored.
func TestRegisterPublishFailureStillSucceeds(t *testing.T) {
	f := &fakeRepo{}
	s := newService(f, &fakePublisher{err: errors.New("broker down")})

	w, _ := doJSON(s.Register, "POST", "/v1/registrations", validRegisterBody())
	assert.Equal(t, 201, w.Code)
	assert.Len(t, f.regs, 1)
}

func seededRepo(n int) *fakeRepo {
	f := &fakeRepo{}
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.regs = append(f.regs, model.Registration{
			ID:               fmt.Sprintf("id-%03d", i),
			FullName:         fmt.Sprintf("Player %03d", i),
			NameWithInitials: fmt.Sprintf("P. %03d", i),
			DateOfBirth:      time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC),
			Gender:           "Male",
			ContactNumber:    "0771234567",
			AgeCategory:      model.CategoryU12,
			PaymentStatus:    model.StatusUnpaid,
			ReferenceNumber:  fmt.Sprintf("NCC-%06d", i),
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
	}
	return f
}

func TestListPaginationAndStats(t *testing.T) {
	f := seededRepo(25)
	f.regs[0].PaymentStatus = model.StatusPaidToThuva
	f.regs[1].PaymentStatus = model.StatusPaidToThushanth
	s := newService(f, &fakePublisher{})

	w, env := doJSON(s.List, "GET", "/v1/registrations?page=3&sort_field=full_name&sort_dir=asc", nil)
	require.Equal(t, 200, w.Code, w.Body.String())

	var resp dto.RosterPageResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 25, resp.FilteredCount)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Player 024", resp.Rows[0].FullName)

	assert.Equal(t, 25, resp.Stats.TotalRegistered)
	assert.Equal(t, 2, resp.Stats.TotalPaid)
	assert.Equal(t, 8, resp.Stats.PaidPercentOfTotal)
	assert.Equal(t, 50, resp.Stats.ThuvaPercentOfPaid)
}

func TestListClampsPage(t *testing.T) {
	s := newService(seededRepo(25), &fakePublisher{})
	_, env := doJSON(s.List, "GET", "/v1/registrations?page=99", nil)
	var resp dto.RosterPageResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 3, resp.Page)
	assert.Len(t, resp.Rows, 1)
}

func TestListFilters(t *testing.T) {
	f := seededRepo(10)
	f.regs[3].Gender = "Female"
	f.regs[6].Gender = "Female"
	s := newService(f, &fakePublisher{})

	_, env := doJSON(s.List, "GET", "/v1/registrations?filter.gender=female&sort_field=full_name&sort_dir=asc", nil)
	var resp dto.RosterPageResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Equal(t, 2, resp.FilteredCount)
	assert.Equal(t, "Player 003", resp.Rows[0].FullName)
	// Aggregates still cover the unfiltered set.
	assert.Equal(t, 10, resp.Stats.TotalRegistered)
}

func TestListDefaultSortNewestFirst(t *testing.T) {
	s := newService(seededRepo(3), &fakePublisher{})
	_, env := doJSON(s.List, "GET", "/v1/registrations", nil)
	var resp dto.RosterPageResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "id-002", resp.Rows[0].ID)
}

func TestListTableMissing(t *testing.T) {
	f := seededRepo(0)
	f.getAllErr = fmt.Errorf("select: %w", repo.ErrTableMissing)
	s := newService(f, &fakePublisher{})

	w, env := doJSON(s.List, "GET", "/v1/registrations", nil)
	assert.Equal(t, 500, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.TableMissing, env.Error.Code)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := seededRepo(5)
	s := newService(f, &fakePublisher{})

	// Load the snapshot first, the way the admin page does.
	_, _ = doJSON(s.List, "GET", "/v1/registrations", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(dto.UpdatePaymentStatusRequest{PaymentStatus: model.StatusPaidToThuva})
	c.Request = httptest.NewRequest("PATCH", "/v1/registrations/id-002/payment", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "id-002"}}
	s.UpdatePaymentStatus(c)

	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Equal(t, model.StatusPaidToThuva, f.regs[2].PaymentStatus)

	// The in-memory snapshot was patched after store confirmation.
	_, env := doJSON(s.Stats, "GET", "/v1/stats", nil)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.PaidToThuva)
}

func TestUpdatePaymentStatusRejectsUnknownStatus(t *testing.T) {
	f := seededRepo(1)
	s := newService(f, &fakePublisher{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{"payment_status": "paid"})
	c.Request = httptest.NewRequest("PATCH", "/v1/registrations/id-000/payment", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "id-000"}}
	s.UpdatePaymentStatus(c)

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, model.StatusUnpaid, f.regs[0].PaymentStatus)
}

func TestUpdatePaymentStatusNotFound(t *testing.T) {
	s := newService(seededRepo(1), &fakePublisher{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(dto.UpdatePaymentStatusRequest{PaymentStatus: model.StatusPaidToThuva})
	c.Request = httptest.NewRequest("PATCH", "/v1/registrations/missing/payment", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	s.UpdatePaymentStatus(c)

	assert.Equal(t, 404, w.Code)
}

// A failed store update must leave the in-memory roster untouched.
func TestUpdatePaymentStatusStoreFailureLeavesSnapshot(t *testing.T) {
	f := seededRepo(2)
	s := newService(f, &fakePublisher{})
	_, _ = doJSON(s.List, "GET", "/v1/registrations", nil)

	f.updateErr = errors.New("connection reset")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(dto.UpdatePaymentStatusRequest{PaymentStatus: model.StatusPaidToThuva})
	c.Request = httptest.NewRequest("PATCH", "/v1/registrations/id-000/payment", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "id-000"}}
	s.UpdatePaymentStatus(c)

	assert.Equal(t, 500, w.Code)
	_, env := doJSON(s.Stats, "GET", "/v1/stats", nil)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Zero(t, stats.TotalPaid)
}

func TestExportCSV(t *testing.T) {
	f := seededRepo(15)
	s := newService(f, &fakePublisher{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/v1/registrations/export?format=csv&sort_field=full_name&sort_dir=asc", nil)
	s.Export(c)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chess_registrations_")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	lines := bytes.Split(bytes.TrimSpace(w.Body.Bytes()), []byte("\n"))
	// Header plus every filtered record, not just one page.
	assert.Len(t, lines, 16)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	s := newService(seededRepo(1), &fakePublisher{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/v1/registrations/export?format=pdf", nil)
	s.Export(c)

	assert.Equal(t, 400, w.Code)
}

func TestAdminLogin(t *testing.T) {
	s := newService(seededRepo(0), &fakePublisher{})

	w, env := doJSON(s.AdminLogin, "POST", "/v1/admin/login", dto.AdminLoginRequest{Password: "hunter2"})
	require.Equal(t, 200, w.Code)

	var resp dto.AdminLoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NoError(t, auth.VerifySessionToken(resp.Token, testAdmin.JWTSecret))

	w, _ = doJSON(s.AdminLogin, "POST", "/v1/admin/login", dto.AdminLoginRequest{Password: "wrong"})
	assert.Equal(t, 401, w.Code)

	w, _ = doJSON(s.AdminLogin, "POST", "/v1/admin/login", dto.AdminLoginRequest{})
	assert.Equal(t, 401, w.Code)
}

func TestStats(t *testing.T) {
	f := seededRepo(10)
	for i := 4; i < 7; i++ {
		f.regs[i].PaymentStatus = model.StatusPaidToThuva
	}
	for i := 7; i < 10; i++ {
		f.regs[i].PaymentStatus = model.StatusPaidToThushanth
	}
	s := newService(f, &fakePublisher{})

	w, env := doJSON(s.Stats, "GET", "/v1/stats", nil)
	require.Equal(t, 200, w.Code)

	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 6, stats.TotalPaid)
	assert.Equal(t, 50, stats.ThuvaPercentOfPaid)
	assert.Equal(t, 60, stats.PaidPercentOfTotal)
}
