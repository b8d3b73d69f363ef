package plea

import (
	"context"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/court"
	"github.com/opencourts/pleaflow-go/schema"
)

func urnForm(register *court.Register) *schema.Form {
	form := schema.NewForm(StageURN,
		&schema.Field{
			Name:     "urn",
			Type:     schema.TypeText,
			Required: true,
			Pattern:  schema.URNPattern,
			Error:    "enter the unique reference number from your notice",
		},
	)
	form.AddRule(schema.ValidationRuleFunc(func(ctx context.Context, clean map[string]any) *schema.FieldError {
		urn, _ := clean["urn"].(string)
		if _, err := register.Match(urn); err != nil {
			return &schema.FieldError{
				Field:   "urn",
				Message: "we do not recognise that reference number",
				Code:    "UNKNOWN_COURT",
				Value:   urn,
			}
		}
		return nil
	}))
	return form
}

func authForm() *schema.Form {
	return schema.NewForm(StageAuth,
		&schema.Field{
			Name:     "postcode",
			Type:     schema.TypeText,
			Required: true,
			Pattern:  schema.PostcodePattern,
			Error:    "enter the postcode the notice was sent to",
		},
		&schema.Field{
			Name:     "date_of_birth",
			Type:     schema.TypeDate,
			Required: true,
			Error:    "enter your date of birth",
		},
	)
}

func noticeTypeForm() *schema.Form {
	return schema.NewForm(StageNoticeType,
		&schema.Field{
			Name:     "notice_type",
			Type:     schema.TypeChoice,
			Required: true,
			Choices:  []string{court.NoticeCharge, court.NoticeSJPNotice},
			Error:    "select the type of notice you received",
		},
	)
}

func caseForm() *schema.Form {
	minCharges, maxCharges := 1, 10
	return schema.NewForm(StageCase,
		&schema.Field{
			Name:     "date_of_hearing",
			Type:     schema.TypeDate,
			Required: true,
			Error:    "enter the hearing date from your notice",
		},
		&schema.Field{
			Name:     "number_of_charges",
			Type:     schema.TypeInt,
			Required: true,
			Minimum:  &minCharges,
			Maximum:  &maxCharges,
			Error:    "enter the number of charges against you",
		},
		&schema.Field{
			Name:     "plea_made_by",
			Type:     schema.TypeChoice,
			Required: true,
			Choices:  []string{MadeByDefendant, MadeByCompany},
			Error:    "select who is making the plea",
		},
	)
}

func yourDetailsForm() *schema.Form {
	return schema.NewForm(StageYourDetails,
		&schema.Field{Name: "first_name", Type: schema.TypeText, Required: true, MaxLength: 100, Error: "enter your first name"},
		&schema.Field{Name: "last_name", Type: schema.TypeText, Required: true, MaxLength: 100, Error: "enter your last name"},
		&schema.Field{Name: "contact_number", Type: schema.TypeText, Required: true, MaxLength: 30, Error: "enter a contact number"},
		&schema.Field{Name: "email", Type: schema.TypeEmail},
	)
}

func companyDetailsForm() *schema.Form {
	return schema.NewForm(StageCompanyDetails,
		&schema.Field{Name: "company_name", Type: schema.TypeText, Required: true, MaxLength: 200, Error: "enter the company name"},
		&schema.Field{Name: "first_name", Type: schema.TypeText, Required: true, MaxLength: 100, Error: "enter your first name"},
		&schema.Field{Name: "last_name", Type: schema.TypeText, Required: true, MaxLength: 100, Error: "enter your last name"},
		&schema.Field{Name: "position_in_company", Type: schema.TypeText, Required: true, MaxLength: 100, Error: "enter your position in the company"},
		&schema.Field{Name: "contact_number", Type: schema.TypeText, Required: true, MaxLength: 30, Error: "enter a contact number"},
		&schema.Field{Name: "email", Type: schema.TypeEmail},
	)
}

func pleaItemForm() *schema.Form {
	return schema.NewForm(StagePlea,
		&schema.Field{
			Name:     "guilty",
			Type:     schema.TypeChoice,
			Required: true,
			Choices:  []string{PleaGuilty, PleaNotGuilty},
			Error:    "select guilty or not guilty for this charge",
		},
		&schema.Field{Name: "guilty_extra", Type: schema.TypeText, MaxLength: 5000},
		&schema.Field{
			Name:      "not_guilty_because",
			Type:      schema.TypeText,
			MaxLength: 5000,
			Error:     "tell us why you disagree with the charge",
			RequiredWhen: func(values map[string]string) bool {
				return values["guilty"] == PleaNotGuilty
			},
		},
		&schema.Field{Name: "interpreter_language", Type: schema.TypeText, MaxLength: 100},
	)
}

func defenceForm() *schema.Form {
	return schema.NewForm(StageDefence,
		&schema.Field{
			Name:     "call_witnesses",
			Type:     schema.TypeBool,
			Required: true,
			Error:    "tell us whether you want to call witnesses",
		},
		&schema.Field{
			Name:      "witness_details",
			Type:      schema.TypeText,
			MaxLength: 5000,
			Error:     "give the names and addresses of your witnesses",
			RequiredWhen: func(values map[string]string) bool {
				return values["call_witnesses"] == "true" || values["call_witnesses"] == "yes"
			},
		},
	)
}

// yourFinancesForm is the split-step finances stage: screen one asks for the
// employment status, screen two reveals the status-specific pay and hardship
// fields. The second screen's fields are only required once the submission
// carries the final split marker, so validation is enforced holistically on
// the last step.
func yourFinancesForm() *schema.Form {
	lastStep := func(values map[string]string) bool {
		return values[contracts.KeySplitForm] == contracts.SplitFormLastStep
	}
	whenStatus := func(status string) func(map[string]string) bool {
		return func(values map[string]string) bool {
			return lastStep(values) && values["you_are"] == status
		}
	}
	payPeriods := []string{"Weekly", "Fortnightly", "Monthly"}

	return schema.NewForm(StageYourFinances,
		&schema.Field{
			Name:     "you_are",
			Type:     schema.TypeChoice,
			Required: true,
			Choices:  []string{"Employed", "Self-employed", "Receiving benefits", "Other"},
			Error:    "select your employment status",
		},
		&schema.Field{Name: "employed_pay_period", Type: schema.TypeChoice, Choices: payPeriods, RequiredWhen: whenStatus("Employed"), Error: "select how often you are paid"},
		&schema.Field{Name: "employed_take_home_pay", Type: schema.TypeMoney, RequiredWhen: whenStatus("Employed"), Error: "enter your take home pay"},
		&schema.Field{Name: "employed_hardship", Type: schema.TypeBool, RequiredWhen: whenStatus("Employed"), Error: "tell us whether paying a fine would cause you hardship"},
		&schema.Field{Name: "self_employed_pay_period", Type: schema.TypeChoice, Choices: payPeriods, RequiredWhen: whenStatus("Self-employed"), Error: "select how often you are paid"},
		&schema.Field{Name: "self_employed_pay_amount", Type: schema.TypeMoney, RequiredWhen: whenStatus("Self-employed"), Error: "enter your average pay"},
		&schema.Field{Name: "self_employed_hardship", Type: schema.TypeBool, RequiredWhen: whenStatus("Self-employed"), Error: "tell us whether paying a fine would cause you hardship"},
		&schema.Field{Name: "benefits_period", Type: schema.TypeChoice, Choices: payPeriods, RequiredWhen: whenStatus("Receiving benefits"), Error: "select how often you receive benefits"},
		&schema.Field{Name: "benefits_amount", Type: schema.TypeMoney, RequiredWhen: whenStatus("Receiving benefits"), Error: "enter the amount you receive"},
		&schema.Field{Name: "benefits_hardship", Type: schema.TypeBool, RequiredWhen: whenStatus("Receiving benefits"), Error: "tell us whether paying a fine would cause you hardship"},
		&schema.Field{Name: "other_info", Type: schema.TypeText, MaxLength: 5000, RequiredWhen: whenStatus("Other"), Error: "tell us about your financial situation"},
		&schema.Field{Name: "other_hardship", Type: schema.TypeBool, RequiredWhen: whenStatus("Other"), Error: "tell us whether paying a fine would cause you hardship"},
	)
}

func hardshipForm() *schema.Form {
	return schema.NewForm(StageHardship,
		&schema.Field{
			Name:      "hardship_details",
			Type:      schema.TypeText,
			Required:  true,
			MaxLength: 5000,
			Error:     "tell us how paying a fine would affect you",
		},
	)
}

func householdExpensesForm() *schema.Form {
	return schema.NewForm(StageHouseholdExpenses,
		&schema.Field{Name: "household_accommodation", Type: schema.TypeMoney, Required: true, Error: "enter your accommodation costs"},
		&schema.Field{Name: "household_utility_bills", Type: schema.TypeMoney, Required: true, Error: "enter your utility bill costs"},
		&schema.Field{Name: "household_insurance", Type: schema.TypeMoney, Required: true, Error: "enter your insurance costs"},
		&schema.Field{Name: "household_council_tax", Type: schema.TypeMoney, Required: true, Error: "enter your council tax"},
		&schema.Field{Name: "other_bill_payers", Type: schema.TypeBool, Required: true, Error: "tell us whether anyone else pays these bills"},
	)
}

func otherExpensesForm() *schema.Form {
	return schema.NewForm(StageOtherExpenses,
		&schema.Field{Name: "other_tv_subscription", Type: schema.TypeMoney, Required: true, Error: "enter your TV subscription costs"},
		&schema.Field{Name: "other_travel_expenses", Type: schema.TypeMoney, Required: true, Error: "enter your travel costs"},
		&schema.Field{Name: "other_telephone", Type: schema.TypeMoney, Required: true, Error: "enter your phone costs"},
		&schema.Field{Name: "other_loan_repayments", Type: schema.TypeMoney, Required: true, Error: "enter your loan repayments"},
		&schema.Field{Name: "other_significant_expenses", Type: schema.TypeText, MaxLength: 5000},
	)
}

func companyFinancesForm() *schema.Form {
	minEmployees := 1
	return schema.NewForm(StageCompanyFinances,
		&schema.Field{
			Name:     "trading_period",
			Type:     schema.TypeBool,
			Required: true,
			Error:    "tell us whether the company has traded for more than 12 months",
		},
		&schema.Field{Name: "number_of_employees", Type: schema.TypeInt, Required: true, Minimum: &minEmployees, Error: "enter the number of employees"},
		&schema.Field{Name: "gross_turnover", Type: schema.TypeMoney, Required: true, Error: "enter the gross turnover"},
		&schema.Field{Name: "net_turnover", Type: schema.TypeMoney, Required: true, Error: "enter the net turnover"},
	)
}

func reviewForm() *schema.Form {
	return schema.NewForm(StageReview,
		&schema.Field{
			Name:     "understand",
			Type:     schema.TypeBool,
			Required: true,
			Error:    "confirm that you understand and accept the declaration",
		},
		&schema.Field{Name: "receive_email_updates", Type: schema.TypeBool},
	).AddRule(schema.ValidationRuleFunc(func(ctx context.Context, clean map[string]any) *schema.FieldError {
		if v, _ := clean["understand"].(bool); !v {
			return &schema.FieldError{
				Field:   "understand",
				Message: "confirm that you understand and accept the declaration",
				Code:    "DECLARATION_NOT_ACCEPTED",
			}
		}
		return nil
	}))
}
