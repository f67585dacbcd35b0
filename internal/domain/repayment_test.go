package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func TestRepayment_Finalize(t *testing.T) {
	tests := []struct {
		name          string
		current       RepaymentStatus
		target        RepaymentStatus
		expectedError bool
	}{
		{name: "Success - pending to applied", current: RepaymentStatusPending, target: RepaymentStatusApplied},
		{name: "Success - pending to rejected", current: RepaymentStatusPending, target: RepaymentStatusRejected},
		{name: "Failure - applied is terminal", current: RepaymentStatusApplied, target: RepaymentStatusRejected, expectedError: true},
		{name: "Failure - rejected is terminal", current: RepaymentStatusRejected, target: RepaymentStatusApplied, expectedError: true},
		{name: "Failure - cannot finalize as pending", current: RepaymentStatusPending, target: RepaymentStatusPending, expectedError: true},
		{name: "Failure - unknown status", current: RepaymentStatusPending, target: RepaymentStatus("PAID"), expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repayment := &Repayment{ID: uuid.New(), Status: tt.current}

			err := repayment.Finalize(tt.target, "declined")

			if tt.expectedError {
				assert.True(t, errors.Is(err, customError.ErrInvariantViolation))
				assert.Equal(t, tt.current, repayment.Status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.target, repayment.Status)
			assert.Equal(t, "declined", repayment.FailureReason)
		})
	}
}
