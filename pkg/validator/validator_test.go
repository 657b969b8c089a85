package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationFixture struct {
	FullName      string `validate:"required,min=2"`
	ContactNumber string `validate:"required,slphone"`
	Gender        string `validate:"required,gender"`
	AgreeToTerms  bool   `validate:"checked"`
}

func validFixture() registrationFixture {
	return registrationFixture{
		FullName:      "Anna Smith",
		ContactNumber: "0771234567",
		Gender:        "Female",
		AgreeToTerms:  true,
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, Validate(context.Background(), validFixture()))
}

func TestPhonePattern(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"0771234567", true},
		{"+94771234567", true},
		{"123456", false},
		{"077123456", false},     // one digit short
		{"07712345678", false},   // one digit long
		{"+9477123456", false},   // one digit short
		{"+947712345678", false}, // one digit long
		{"94771234567", false},   // missing + or leading 0
		{"077 123 4567", false},  // spaces not allowed
		{"+44771234567", false},  // wrong country code
		{"0abcdefghij", false},
		{"", false},
	}
	for _, tt := range tests {
		f := validFixture()
		f.ContactNumber = tt.phone
		err := Validate(context.Background(), f)
		if tt.ok {
			assert.NoError(t, err, "phone %q", tt.phone)
		} else {
			assert.Error(t, err, "phone %q", tt.phone)
		}
	}
}

func TestGenderValues(t *testing.T) {
	for _, g := range []string{"Male", "Female", "Prefer not to say"} {
		f := validFixture()
		f.Gender = g
		assert.NoError(t, Validate(context.Background(), f), "gender %q", g)
	}
	f := validFixture()
	f.Gender = "Other"
	assert.Error(t, Validate(context.Background(), f))
}

func TestNameLength(t *testing.T) {
	f := validFixture()
	f.FullName = "A"
	assert.Error(t, Validate(context.Background(), f))
}

// A value the validator cannot walk must come back as an error, not as valid.
func TestValidateRejectsNonStruct(t *testing.T) {
	assert.Error(t, Validate(context.Background(), 42))
	assert.Error(t, Validate(context.Background(), nil))
}

func TestAgreeToTermsRequired(t *testing.T) {
	f := validFixture()
	f.AgreeToTerms = false
	err := Validate(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agree to the terms")
}
