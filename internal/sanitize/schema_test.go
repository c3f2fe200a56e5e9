package sanitize

import (
	"errors"
	"testing"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string, schema any) (Payload, error) {
	t.Helper()
	obj, err := ParseObject([]byte(body))
	require.NoError(t, err)
	return NewValidator().Decode(New().Map(obj), schema)
}

func TestParseObject(t *testing.T) {
	_, err := ParseObject([]byte(`[1,2]`))
	assert.EqualError(t, err, "request body must be a JSON object")

	_, err = ParseObject([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = ParseObject([]byte(`{"a":`))
	assert.Equal(t, apperrors.ErrValidation, kindOf(t, err))

	obj, err := ParseObject([]byte(`{"amount": 10.25}`))
	require.NoError(t, err)
	assert.Equal(t, "10.25", obj["amount"].(interface{ String() string }).String())
}

func TestDecodeDropsUnknownFields(t *testing.T) {
	p, err := decode(t, `{"title":"Write docs","created_by":"someone-else","id":"x","status":"done"}`, &model.TaskUpdate{})
	require.NoError(t, err)

	fields := p.Fields()
	assert.Equal(t, map[string]any{"title": "Write docs", "status": "done"}, fields)

	// Fields hands out copies
	fields["title"] = "changed"
	assert.Equal(t, "Write docs", p.Fields()["title"])

	task := p.Schema().(*model.TaskUpdate)
	require.NotNil(t, task.Title)
	assert.Equal(t, "Write docs", *task.Title)
}

func TestDecodeSanitizedTitle(t *testing.T) {
	p, err := decode(t, `{"title":"<script>x</script>Renamed"}`, &model.TaskUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Fields()["title"])
}

func TestDecodeTypeMismatch(t *testing.T) {
	_, err := decode(t, `{"title": 42}`, &model.TaskUpdate{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation, kindOf(t, err))
	assert.Equal(t, "title must be of type string", err.(*apperrors.AppError).Message)

	_, err = decode(t, `{"amount": true}`, &model.FinancialRecordUpdate{})
	assert.Equal(t, apperrors.ErrValidation, kindOf(t, err))
}

func TestDecodeValidationMessages(t *testing.T) {
	cases := []struct {
		body   string
		schema any
		want   string
	}{
		{`{"status":"finished"}`, &model.TaskUpdate{}, "status must be one of: todo, in_progress, done, blocked"},
		{`{"email":"not-an-email"}`, &model.ClientUpdate{}, "email must be a valid email address"},
		{`{"due_date":"31/12/2026"}`, &model.TaskUpdate{}, "due_date must be a date in YYYY-MM-DD format"},
		{`{"project_id":"abc"}`, &model.TaskUpdate{}, "project_id must be a valid identifier"},
		{`{"currency":"usd"}`, &model.FinancialRecordUpdate{}, "currency must be uppercase"},
		{`{"amount":"-3"}`, &model.FinancialRecordUpdate{}, "amount must be greater than zero"},
		{`{"role":"owner"}`, &model.ProfileUpdate{}, "role must be one of: member, admin"},
		{`{"unknown":"only"}`, &model.ClientUpdate{}, "no updatable fields supplied"},
	}
	for _, tc := range cases {
		_, err := decode(t, tc.body, tc.schema)
		require.Error(t, err, tc.body)
		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperrors.ErrValidation, appErr.Type, tc.body)
		assert.Equal(t, tc.want, appErr.Message, tc.body)
	}
}

func TestDecodeDecimalPrecision(t *testing.T) {
	p, err := decode(t, `{"amount": 1999.99, "currency": "EUR", "kind": "income"}`, &model.FinancialRecordUpdate{})
	require.NoError(t, err)
	rec := p.Schema().(*model.FinancialRecordUpdate)
	assert.Equal(t, "1999.99", rec.Amount.String())
	assert.Equal(t, "1999.99", p.Fields()["amount"])
}
