package plea

import "github.com/opencourts/pleaflow-go/contracts"

// Stage names, in journey declaration order.
const (
	StageURN               = "urn_entry"
	StageAuth              = "auth"
	StageNoticeType        = "notice_type"
	StageCase              = "case"
	StageYourDetails       = "your_details"
	StageCompanyDetails    = "company_details"
	StagePlea              = "plea"
	StageDefence           = "not_guilty_defence"
	StageYourFinances      = "your_finances"
	StageHardship          = "hardship"
	StageHouseholdExpenses = "household_expenses"
	StageOtherExpenses     = "other_expenses"
	StageCompanyFinances   = "company_finances"
	StageReview            = "review"
	StageComplete          = "complete"
)

// Field values with branching significance.
const (
	PleaGuilty    = "guilty"
	PleaNotGuilty = "not_guilty"

	MadeByDefendant = "Defendant"
	MadeByCompany   = "Company representative"
)

// ListKeyPleas is the bag key holding the ordered per-charge plea bags.
const ListKeyPleas = "PleaForms"

// personalFinanceStages are bypassed for company representatives and for
// citizens with nothing to pay.
var personalFinanceStages = []string{StageYourFinances, StageHardship, StageHouseholdExpenses, StageOtherExpenses}

// expenseStages are bypassed when no financial hardship is reported.
var expenseStages = []string{StageHardship, StageHouseholdExpenses, StageOtherExpenses}

// madeByCompany reports whether the case stage recorded a company
// representative.
func madeByCompany(all contracts.JourneyData) bool {
	v, _ := all.Bag(StageCase)["plea_made_by"].(string)
	return v == MadeByCompany
}

// countPleas returns how many charges have a plea entered and how many of
// those are guilty.
func countPleas(all contracts.JourneyData) (total, guilty int) {
	for _, item := range all.Bag(StagePlea).ItemList(ListKeyPleas) {
		total++
		if v, _ := item["guilty"].(string); v == PleaGuilty {
			guilty++
		}
	}
	return total, guilty
}

// anyHardship reports whether any status-specific hardship answer was true.
func anyHardship(clean map[string]any) bool {
	for _, key := range []string{"employed_hardship", "self_employed_hardship", "benefits_hardship", "other_hardship"} {
		if v, _ := clean[key].(bool); v {
			return true
		}
	}
	return false
}
