package submission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

func TestSession_DefaultFormCannotSubmit(t *testing.T) {
	var calls int
	s := NewSession(NewController(predictFunc(func(context.Context, assessment.Input) (*prediction.Result, error) {
		calls++
		r := prediction.Succeeded(0.5)
		return &r, nil
	})))

	st, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, calls)
	assert.NotEmpty(t, s.ID)
}

func TestSession_EditSubmitReset(t *testing.T) {
	s := NewSession(NewController(fixed(prediction.Succeeded(0.5))))

	form, err := s.SetField(assessment.FieldAge, "45")
	require.NoError(t, err)
	require.True(t, form.CanSubmit())

	st, err := s.Submit(context.Background())
	require.NoError(t, err)
	v, ok := st.Verdict()
	require.True(t, ok)
	assert.Equal(t, prediction.KindLowRisk, v.Kind)
	assert.Equal(t, "50.0%", v.Display())

	form = s.Reset()
	assert.False(t, form.Assigned(assessment.FieldAge))
	assert.Equal(t, StatusIdle, s.State().Status)
}

func TestSession_ClosedRejectsEdits(t *testing.T) {
	s := NewSession(NewController(fixed(prediction.Succeeded(0.5))))
	s.Close()

	_, err := s.SetField(assessment.FieldAge, "45")
	assert.ErrorIs(t, err, ErrDetached)
	_, err = s.Load(validInput())
	assert.ErrorIs(t, err, ErrDetached)
	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrDetached)
}
