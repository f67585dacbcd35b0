package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

type Message struct {
	Subject string
	Body    string
}

func ApplicationRejected(app *domain.LoanApplication, outstanding decimal.Decimal) Message {
	return Message{
		Subject: "Loan Application Rejected",
		Body: fmt.Sprintf("Hello %s,\n\nYour loan application %s has been rejected due to an outstanding loan balance of %s.",
			app.AccountID, app.ID, outstanding.StringFixed(2)),
	}
}

func LoanApproved(loan *domain.Loan) Message {
	return Message{
		Subject: "Loan Application Approved",
		Body: fmt.Sprintf("Hello %s,\n\nCongratulations! Your loan of %s has been approved and disbursed.\n"+
			"Monthly EMI: %s over %d months.",
			loan.AccountID, loan.Principal.StringFixed(2), loan.EmiAmount.StringFixed(2), loan.TermMonths),
	}
}

func RepaymentReceived(loan *domain.Loan, amount decimal.Decimal) Message {
	return Message{
		Subject: "Loan Repayment Confirmation",
		Body: fmt.Sprintf("Dear %s,\n\nWe have successfully received your repayment of %s for loan %s.\n"+
			"Your updated outstanding balance is: %s.\n\nThank you for your payment.",
			loan.AccountID, amount.StringFixed(2), loan.ID, loan.RemainingPrincipal.StringFixed(2)),
	}
}

func InstallmentReminder(inst *domain.UpcomingInstallment) Message {
	return Message{
		Subject: fmt.Sprintf("Upcoming Payment Reminder: installment %d", inst.InstallmentNumber),
		Body: fmt.Sprintf("Dear %s,\n\nInstallment %d of loan %s for %s is due on %s.\n"+
			"Please ensure you have sufficient funds in your account.",
			inst.AccountID, inst.InstallmentNumber, inst.LoanID, inst.EmiAmount.StringFixed(2), inst.DueDate.Format("2006-01-02")),
	}
}
