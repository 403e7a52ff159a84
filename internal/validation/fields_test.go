package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"required,max=150"`
	Phone     string `json:"phone" validate:"max=256"`
}

func validSignup() signup {
	return signup{Email: "a@x.com", Password: "p1", FirstName: "A", LastName: "B"}
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(validSignup()))
}

func TestStruct_MissingFieldsReportedInOrder(t *testing.T) {
	err := Struct(signup{})
	var errs Errors
	require.True(t, errors.As(err, &errs), "error = %v", err)

	fields := make([]string, len(errs))
	for i, fe := range errs {
		fields[i] = fe.Field
		assert.Equal(t, "This field is required.", fe.Message)
	}
	assert.Equal(t, []string{"email", "password", "firstName", "lastName"}, fields)
}

func TestStruct_SingleMissingField(t *testing.T) {
	for _, field := range []string{"email", "password", "firstName", "lastName"} {
		t.Run(field, func(t *testing.T) {
			s := validSignup()
			switch field {
			case "email":
				s.Email = ""
			case "password":
				s.Password = ""
			case "firstName":
				s.FirstName = ""
			case "lastName":
				s.LastName = ""
			}
			var errs Errors
			require.True(t, errors.As(Struct(s), &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, field, errs[0].Field)
		})
	}
}

func TestStruct_OneErrorPerField(t *testing.T) {
	s := validSignup()
	s.Email = strings.Repeat("a", 300) // fails both email and max
	var errs Errors
	require.True(t, errors.As(Struct(s), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "Enter a valid email address.", errs[0].Message)
}

func TestStruct_MaxLength(t *testing.T) {
	s := validSignup()
	s.Phone = strings.Repeat("1", 257)
	var errs Errors
	require.True(t, errors.As(Struct(s), &errs))
	assert.Equal(t, Errors{{Field: "phone", Message: "Ensure this field has no more than 256 characters."}}, errs)
}

func TestErrors_Add(t *testing.T) {
	var e Errors
	e = e.Add("email", "first")
	e = e.Add("email", "second")
	e = e.Add("password", "third")
	assert.Equal(t, Errors{{"email", "first"}, {"password", "third"}}, e)
	assert.Contains(t, e.Error(), "email: first")
}

func TestErrors_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Errors{{Field: "email", Message: "This field is required."}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"field":"email","message":"This field is required."}]`, string(raw))
}

func TestFromDecodeError(t *testing.T) {
	var dst struct {
		FirstName string `json:"firstName"`
	}
	err := json.Unmarshal([]byte(`{"firstName": 42}`), &dst)
	require.Error(t, err)

	errs, ok := FromDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "firstName", errs[0].Field)

	_, ok = FromDecodeError(json.Unmarshal([]byte(`{`), &dst))
	assert.False(t, ok)
}
